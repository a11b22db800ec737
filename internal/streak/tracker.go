// Package streak tracks daily study counts and derives the study streak.
package streak

import (
	"context"
	"time"

	"github.com/abhisek/mastery/internal/apperr"
	"github.com/abhisek/mastery/internal/clock"
	"github.com/abhisek/mastery/internal/store"
	"github.com/rs/zerolog/log"
)

// DefaultDailyGoal is the questions-per-day threshold for a met day.
const DefaultDailyGoal = 20

// HistoryWindow is the number of days before to that History covers when
// from is empty.
const HistoryWindow = 30

// Entry is one calendar day of study.
type Entry struct {
	Date               string `json:"date"`
	QuestionsCompleted int    `json:"questions_completed"`
	MetDailyGoal       bool   `json:"met_daily_goal"`
}

// Registration is the result of RegisterDailyStudy.
type Registration struct {
	CurrentStreak      int    `json:"current_streak"`
	QuestionsCompleted int    `json:"questions_completed"`
	CompletedDailyGoal bool   `json:"completed_daily_goal"`
	Date               string `json:"date"`
	NextMilestone      int    `json:"next_milestone"`
}

// Summary is a user's streak overview.
type Summary struct {
	Current       int   `json:"current"`
	Longest       int   `json:"longest"`
	DailyGoal     int   `json:"daily_goal"`
	NextMilestone int   `json:"next_milestone"`
	Today         Entry `json:"today"`
}

// Tracker registers study and computes streaks in a fixed time zone.
type Tracker struct {
	repo  store.StreakRepo
	clock clock.Clock
	goal  int
	loc   *time.Location
}

// NewTracker creates a tracker. A non-positive goal uses DefaultDailyGoal
// and a nil location uses UTC.
func NewTracker(repo store.StreakRepo, clk clock.Clock, goal int, loc *time.Location) *Tracker {
	if goal <= 0 {
		goal = DefaultDailyGoal
	}
	if loc == nil {
		loc = time.UTC
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Tracker{repo: repo, clock: clk, goal: goal, loc: loc}
}

// DailyGoal returns the configured goal.
func (t *Tracker) DailyGoal() int {
	return t.goal
}

// Today returns the current calendar day in the tracker's time zone.
func (t *Tracker) Today() string {
	return t.DayOf(t.clock.Now())
}

// DayOf returns the calendar day of ts in the tracker's time zone.
func (t *Tracker) DayOf(ts time.Time) string {
	return ts.In(t.loc).Format(DayLayout)
}

// ParseDay validates a YYYY-MM-DD date.
func ParseDay(s string) (string, error) {
	d, err := time.Parse(DayLayout, s)
	if err != nil {
		return "", apperr.New(apperr.KindInvalidInput, "streak.ParseDay", "malformed date %q, want YYYY-MM-DD", s)
	}
	return d.Format(DayLayout), nil
}

// RegisterDailyStudy adds questions to the day's count and returns the
// updated entry with the current streak. questions is an increment, not
// a running total. An empty day means today; future days are rejected.
func (t *Tracker) RegisterDailyStudy(ctx context.Context, userID string, questions int, day string) (*Registration, error) {
	const op = "streak.RegisterDailyStudy"

	if userID == "" {
		return nil, apperr.New(apperr.KindInvalidInput, op, "user id is required")
	}
	if questions < 0 {
		return nil, apperr.New(apperr.KindInvalidInput, op, "questions must not be negative, got %d", questions)
	}

	today := t.Today()
	if day == "" {
		day = today
	} else {
		d, err := ParseDay(day)
		if err != nil {
			return nil, err
		}
		day = d
	}
	if day > today {
		return nil, apperr.New(apperr.KindInvalidInput, op, "date %s is in the future", day)
	}

	entry, err := t.repo.AddQuestions(ctx, userID, day, questions, t.goal, t.clock.Now())
	if err != nil {
		return nil, err
	}

	current, err := t.currentStreak(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	if entry.MetDailyGoal && entry.QuestionsCompleted-questions < t.goal {
		log.Info().
			Str("user_id", userID).
			Str("date", day).
			Int("streak", current).
			Msg("daily goal met")
	}

	return &Registration{
		CurrentStreak:      current,
		QuestionsCompleted: entry.QuestionsCompleted,
		CompletedDailyGoal: entry.MetDailyGoal,
		Date:               day,
		NextMilestone:      NextMilestone(current),
	}, nil
}

// CurrentStreak returns the user's streak as of today.
func (t *Tracker) CurrentStreak(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, apperr.New(apperr.KindInvalidInput, "streak.CurrentStreak", "user id is required")
	}
	return t.currentStreak(ctx, userID, t.Today())
}

func (t *Tracker) currentStreak(ctx context.Context, userID, today string) (int, error) {
	days, err := t.repo.MetDays(ctx, userID, today)
	if err != nil {
		return 0, err
	}
	return ComputeStreak(days, today), nil
}

// Summary returns current and longest streaks plus today's entry.
func (t *Tracker) Summary(ctx context.Context, userID string) (*Summary, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "streak.Summary", "user id is required")
	}

	today := t.Today()
	days, err := t.repo.MetDays(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	entry, err := t.repo.Day(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	current := ComputeStreak(days, today)
	out := &Summary{
		Current:       current,
		Longest:       LongestStreak(days),
		DailyGoal:     t.goal,
		NextMilestone: NextMilestone(current),
		Today:         Entry{Date: today},
	}
	if entry != nil {
		out.Today.QuestionsCompleted = entry.QuestionsCompleted
		out.Today.MetDailyGoal = entry.MetDailyGoal
	}
	return out, nil
}

// History returns the entries between from and to inclusive, oldest
// first. Days without an entry are omitted. An empty to means today and
// an empty from means HistoryWindow days before to.
func (t *Tracker) History(ctx context.Context, userID, from, to string) ([]Entry, error) {
	const op = "streak.History"

	if userID == "" {
		return nil, apperr.New(apperr.KindInvalidInput, op, "user id is required")
	}
	var err error
	if to == "" {
		to = t.Today()
	} else if to, err = ParseDay(to); err != nil {
		return nil, err
	}
	if from == "" {
		end, _ := time.Parse(DayLayout, to)
		from = end.AddDate(0, 0, -HistoryWindow).Format(DayLayout)
	} else if from, err = ParseDay(from); err != nil {
		return nil, err
	}
	if from > to {
		return nil, apperr.New(apperr.KindInvalidInput, op, "from %s is after to %s", from, to)
	}

	days, err := t.repo.Range(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(days))
	for i, d := range days {
		out[i] = Entry{
			Date:               d.Day,
			QuestionsCompleted: d.QuestionsCompleted,
			MetDailyGoal:       d.MetDailyGoal,
		}
	}
	return out, nil
}
