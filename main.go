package main

import (
	"os"

	"github.com/abhisek/mastery/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
