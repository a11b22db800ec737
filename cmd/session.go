package cmd

import (
	"fmt"
	"strconv"

	"github.com/abhisek/mastery/internal/session"
	"github.com/abhisek/mastery/internal/ui/components"
	"github.com/abhisek/mastery/internal/ui/theme"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Compose and manage practice sessions",
}

var sessionComposeCmd = &cobra.Command{
	Use:   "compose <user>",
	Short: "Preview the questions a new session would contain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		plan, err := engine.ComposeSession(cmd.Context(), args[0], maxQuestions(cmd, engine.Config().Session.DefaultMaxQuestions))
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(cmd.OutOrStdout(), plan)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderPlan(plan))
		return nil
	},
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <user>",
	Short: "Start a practice session, or resume the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeFlag, _ := cmd.Flags().GetString("mode")
		mode, err := session.ParseStartMode(modeFlag)
		if err != nil {
			return err
		}

		engine, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := engine.StartSession(cmd.Context(), args[0], maxQuestions(cmd, engine.Config().Session.DefaultMaxQuestions), mode)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(cmd.OutOrStdout(), res)
		}
		verb := "Started"
		if res.Resumed {
			verb = "Resumed"
		}
		s := res.Session
		fmt.Fprintf(cmd.OutOrStdout(), "%s session %s (%d/%d answered)\n", verb, s.ID, s.AnsweredQuestions, s.TotalQuestions)
		if next := s.Next(); next != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Next question: %s (%s, level %d)\n", next.QuestionID, next.CompetencyID, next.Level)
		}
		return nil
	},
}

var sessionAbandonCmd = &cobra.Command{
	Use:   "abandon <user>",
	Short: "Abandon the user's active session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		active, err := engine.ActiveSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if active == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "No active session for %s\n", args[0])
			return nil
		}
		s, err := engine.AbandonSession(cmd.Context(), active.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Abandoned session %s after %d/%d questions\n", s.ID, s.AnsweredQuestions, s.TotalQuestions)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{sessionComposeCmd, sessionStartCmd} {
		c.Flags().Int("max", 0, "Maximum number of questions (default session.default_max_questions)")
		addJSONFlag(c)
	}
	sessionStartCmd.Flags().String("mode", "resume", "What to do when a session is active: resume or fail")

	sessionCmd.AddCommand(sessionComposeCmd)
	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionAbandonCmd)
}

func maxQuestions(cmd *cobra.Command, fallback int) int {
	if n, _ := cmd.Flags().GetInt("max"); n > 0 {
		return n
	}
	return fallback
}

func renderPlan(p *session.Plan) string {
	out := theme.Title.Render(fmt.Sprintf("Session plan for %s: %d/%d questions", p.UserID, p.Total(), p.MaxQuestions)) + "\n"
	rows := make([][]string, 0, p.Total())
	for _, g := range p.Groups {
		for _, it := range g.Items {
			rows = append(rows, []string{strconv.Itoa(g.Level), it.CompetencyID, it.QuestionID})
		}
	}
	if len(rows) == 0 {
		return out + theme.Hint.Render("No questions selected.") + "\n"
	}
	return out + components.Table([]string{"LEVEL", "COMPETENCY", "QUESTION"}, rows) + "\n"
}
