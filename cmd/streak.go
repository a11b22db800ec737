package cmd

import (
	"fmt"
	"strconv"

	"github.com/abhisek/mastery/internal/streak"
	"github.com/abhisek/mastery/internal/ui/components"
	"github.com/abhisek/mastery/internal/ui/theme"
	"github.com/spf13/cobra"
)

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Register study and show streaks",
}

var streakRegisterCmd = &cobra.Command{
	Use:   "register <user> <questions>",
	Short: "Add completed questions to a study day",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		questions, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("questions must be an integer: %w", err)
		}
		date, _ := cmd.Flags().GetString("date")

		engine, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		reg, err := engine.RegisterDailyStudy(cmd.Context(), args[0], questions, date)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(cmd.OutOrStdout(), reg)
		}

		goal := theme.Bad.Render("not met")
		if reg.CompletedDailyGoal {
			goal = theme.Good.Render("met")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d questions, daily goal %s\n", reg.Date, reg.QuestionsCompleted, goal)
		fmt.Fprintf(cmd.OutOrStdout(), "Current streak: %s (next milestone %d)\n",
			theme.Streak.Render(strconv.Itoa(reg.CurrentStreak)), reg.NextMilestone)
		return nil
	},
}

var streakShowCmd = &cobra.Command{
	Use:   "show <user>",
	Short: "Show the current and longest streak",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		sum, err := engine.StreakSummary(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(cmd.OutOrStdout(), sum)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderStreakSummary(args[0], sum))
		return nil
	},
}

var streakHistoryCmd = &cobra.Command{
	Use:   "history <user>",
	Short: "List study days",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")

		engine, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		days, err := engine.StreakHistory(cmd.Context(), args[0], from, to)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(cmd.OutOrStdout(), days)
		}
		if len(days) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No study days recorded.")
			return nil
		}
		rows := make([][]string, 0, len(days))
		for _, d := range days {
			met := "no"
			if d.MetDailyGoal {
				met = "yes"
			}
			rows = append(rows, []string{d.Date, strconv.Itoa(d.QuestionsCompleted), met})
		}
		fmt.Fprintln(cmd.OutOrStdout(), components.Table([]string{"DATE", "QUESTIONS", "GOAL MET"}, rows))
		return nil
	},
}

func init() {
	streakRegisterCmd.Flags().String("date", "", "Study day as YYYY-MM-DD (default today)")
	streakHistoryCmd.Flags().String("from", "", "First day as YYYY-MM-DD (default 30 days before --to)")
	streakHistoryCmd.Flags().String("to", "", "Last day as YYYY-MM-DD (default today)")
	addJSONFlag(streakRegisterCmd)
	addJSONFlag(streakShowCmd)
	addJSONFlag(streakHistoryCmd)

	streakCmd.AddCommand(streakRegisterCmd)
	streakCmd.AddCommand(streakShowCmd)
	streakCmd.AddCommand(streakHistoryCmd)
}

func renderStreakSummary(userID string, s *streak.Summary) string {
	out := theme.Title.Render("Streak for "+userID) + "\n"
	out += fmt.Sprintf("Current: %s  Longest: %d  Next milestone: %d\n",
		theme.Streak.Render(strconv.Itoa(s.Current)), s.Longest, s.NextMilestone)

	pct := 0.0
	if s.DailyGoal > 0 {
		pct = min(100, float64(s.Today.QuestionsCompleted)*100/float64(s.DailyGoal))
	}
	label := fmt.Sprintf("Today %d/%d", s.Today.QuestionsCompleted, s.DailyGoal)
	out += components.NewProgressBar(label, pct, true, reportWidth).View() + "\n"
	return out
}
