package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/mastery/internal/catalog"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the competency catalog",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a catalog file against the seed schema and reference rules",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, path, err := loadCatalog(cmd, args)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d competencies, %d topics, %d questions\n",
			path, len(cat.Competencies()), len(cat.Topics()), cat.QuestionCount())
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List competencies with their topic placement",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := loadCatalog(cmd, args)
		if err != nil {
			return err
		}
		topic, _ := cmd.Flags().GetString("topic")
		if topic != "" && !cat.HasTopic(topic) {
			return fmt.Errorf("no topic %q in catalog", topic)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-20s  %-12s  %-36s  %-16s  %s\n", "ID", "Code", "Name", "Topic", "Subtopic")
		fmt.Fprintln(out, strings.Repeat("─", 104))

		n := 0
		for _, c := range cat.Competencies() {
			topicID, subtopicID, _ := cat.Placement(c.ID)
			if topic != "" && topicID != topic {
				continue
			}
			name := c.Name
			if len(name) > 36 {
				name = name[:33] + "..."
			}
			fmt.Fprintf(out, "%-20s  %-12s  %-36s  %-16s  %s\n", c.ID, c.Code, name, topicID, subtopicID)
			n++
		}

		fmt.Fprintf(out, "\n%d competencies\n", n)
		return nil
	},
}

func init() {
	catalogListCmd.Flags().String("topic", "", "Only list competencies placed under this topic")

	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogListCmd)
}

// loadCatalog loads the catalog named by args[0], or the configured one.
func loadCatalog(cmd *cobra.Command, args []string) (*catalog.Catalog, string, error) {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, "", err
		}
		path = cfg.Catalog.Path
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cat, path, nil
}
