package cmd

import (
	"fmt"
	"strconv"

	"github.com/abhisek/mastery/internal/stats"
	"github.com/abhisek/mastery/internal/ui/components"
	"github.com/abhisek/mastery/internal/ui/theme"
	"github.com/spf13/cobra"
)

const reportWidth = 60

var statsCmd = &cobra.Command{
	Use:   "stats <user>",
	Short: "Show learning statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := engine.UserStatistics(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(cmd.OutOrStdout(), report)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderStats(report))
		return nil
	},
}

func init() {
	addJSONFlag(statsCmd)
}

func renderStats(r *stats.UserStatistics) string {
	out := theme.Title.Render("Statistics for "+r.UserID) + "\n"
	out += fmt.Sprintf("Answered %d, correct %d, accuracy %g%%\n\n",
		r.General.TotalQuestions, r.General.TotalCorrect, r.General.OverallAccuracy)

	for _, t := range r.ByTopic {
		out += components.NewProgressBar(t.Name, t.TopicProgress, true, reportWidth).View() + "\n"
	}
	if len(r.ByTopic) > 0 {
		out += "\n"
	}

	rows := make([][]string, 0, len(r.ByCompetency))
	for _, c := range r.ByCompetency {
		rows = append(rows, []string{
			c.Code,
			c.Name,
			strconv.Itoa(c.QuestionsAnswered),
			strconv.Itoa(c.CorrectAnswers),
			fmt.Sprintf("%g%%", c.Accuracy),
			strconv.Itoa(c.MasteryLevel),
		})
	}
	out += components.Table([]string{"CODE", "COMPETENCY", "ANSWERED", "CORRECT", "ACCURACY", "LEVEL"}, rows) + "\n"
	return out
}
