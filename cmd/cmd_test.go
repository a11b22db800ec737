package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/mastery/internal/session"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleCatalog = "../configs/catalog.example.yaml"

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), "mastery %s:\n%s", strings.Join(args, " "), buf.String())
	return buf.String()
}

func TestCLIEndToEnd(t *testing.T) {
	db := filepath.Join(t.TempDir(), "mastery.db")
	common := []string{"--db", db, "--catalog", exampleCatalog}

	out := execute(t, append([]string{"user", "init", "alice"}, common...)...)
	assert.Contains(t, out, "Initialized 4 competencies for alice")

	out = execute(t, append([]string{"user", "level", "alice", "mul-facts", "1"}, common...)...)
	assert.Contains(t, out, "mul-facts -> level 1")

	out = execute(t, append([]string{"user", "level", "alice", "FRC1", "2"}, common...)...)
	assert.Contains(t, out, "frac-compare -> level 2")

	out = execute(t, append([]string{"streak", "register", "alice", "25"}, common...)...)
	assert.Contains(t, out, "25 questions")
	assert.Contains(t, out, "met")

	out = execute(t, append([]string{"streak", "history", "alice", "--json"}, common...)...)
	var days []struct {
		QuestionsCompleted int `json:"questions_completed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &days))
	require.Len(t, days, 1)
	assert.Equal(t, 25, days[0].QuestionsCompleted)

	out = execute(t, append([]string{"session", "compose", "alice", "--max", "4", "--json"}, common...)...)
	var plan session.Plan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, "alice", plan.UserID)
	assert.Equal(t, 4, plan.Total())

	out = execute(t, append([]string{"stats", "alice"}, common...)...)
	assert.Contains(t, out, "Statistics for alice")
	assert.Contains(t, out, "ADD2")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mastery.yaml")

	out := execute(t, "config", "init", path)
	assert.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "daily_goal: 20")
}

func TestCatalogValidate(t *testing.T) {
	out := execute(t, "catalog", "validate", exampleCatalog)
	assert.Contains(t, out, "4 competencies, 2 topics, 16 questions")
}

func TestResolveDBPathPrefersFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("db", "", "")
	want := filepath.Join(t.TempDir(), "sub", "x.db")
	require.NoError(t, cmd.Flags().Set("db", want))

	got, err := resolveDBPath(cmd, "configured.db")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = os.Stat(filepath.Dir(want))
	assert.NoError(t, err, "parent directory should be created")
}

func TestRenderPlanEmpty(t *testing.T) {
	out := renderPlan(&session.Plan{UserID: "bob", MaxQuestions: 5})
	assert.Contains(t, out, "0/5 questions")
	assert.Contains(t, out, "No questions selected.")
}
