package cmd

import (
	"fmt"
	"strconv"

	"github.com/abhisek/mastery/internal/ui/components"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage a user's mastery levels",
}

var userInitCmd = &cobra.Command{
	Use:   "init <user>",
	Short: "Create a level-0 mastery record for every competency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		created, err := engine.EnsureInitialized(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized %d competencies for %s\n", created, args[0])
		return nil
	},
}

var userLevelCmd = &cobra.Command{
	Use:   "level <user> <competency-id|code> <level>",
	Short: "Set a competency level directly",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("level must be an integer: %w", err)
		}

		engine, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		compID := engine.ResolveCompetency(args[1])
		if err := engine.SetLevel(cmd.Context(), args[0], compID, level); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> level %d\n", args[0], compID, level)
		return nil
	},
}

var userShowCmd = &cobra.Command{
	Use:   "show <user>",
	Short: "List a user's mastery records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		records, err := engine.MasteryRecords(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No mastery records for %s. Run 'mastery user init %s'.\n", args[0], args[0])
			return nil
		}

		cat := engine.Catalog()
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			code, name := r.CompetencyID, ""
			if c, ok := cat.Competency(r.CompetencyID); ok {
				code, name = c.Code, c.Name
			}
			rows = append(rows, []string{code, name, strconv.Itoa(r.Level), r.LastEvaluatedAt.Format("2006-01-02 15:04")})
		}
		fmt.Fprintln(cmd.OutOrStdout(), components.Table([]string{"CODE", "COMPETENCY", "LEVEL", "EVALUATED"}, rows))
		return nil
	},
}

func init() {
	userCmd.AddCommand(userInitCmd)
	userCmd.AddCommand(userLevelCmd)
	userCmd.AddCommand(userShowCmd)
}
