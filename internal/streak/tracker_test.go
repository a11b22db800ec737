package streak

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/mastery/internal/apperr"
	"github.com/abhisek/mastery/internal/clock"
	"github.com/abhisek/mastery/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, now time.Time, loc *time.Location) (*Tracker, *clock.Fixed) {
	t.Helper()
	s, err := store.Open(store.Options{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "mastery.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clk := clock.NewFixed(now)
	return NewTracker(s.StreakRepo(), clk, 20, loc), clk
}

func TestRegisterDailyStudy_GoalExamples(t *testing.T) {
	tr, _ := newTestTracker(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), nil)
	ctx := context.Background()

	reg, err := tr.RegisterDailyStudy(ctx, "u1", 20, "")
	require.NoError(t, err)
	assert.True(t, reg.CompletedDailyGoal)
	assert.Equal(t, 20, reg.QuestionsCompleted)
	assert.Equal(t, "2026-03-10", reg.Date)
	assert.Equal(t, 1, reg.CurrentStreak)
	assert.Equal(t, 5, reg.NextMilestone)

	reg, err = tr.RegisterDailyStudy(ctx, "u2", 15, "")
	require.NoError(t, err)
	assert.False(t, reg.CompletedDailyGoal)
	assert.Equal(t, 15, reg.QuestionsCompleted)
	assert.Equal(t, 0, reg.CurrentStreak)
}

func TestRegisterDailyStudy_Incremental(t *testing.T) {
	tr, _ := newTestTracker(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), nil)
	ctx := context.Background()

	reg, err := tr.RegisterDailyStudy(ctx, "u1", 12, "")
	require.NoError(t, err)
	assert.False(t, reg.CompletedDailyGoal)

	reg, err = tr.RegisterDailyStudy(ctx, "u1", 8, "")
	require.NoError(t, err)
	assert.Equal(t, 20, reg.QuestionsCompleted)
	assert.True(t, reg.CompletedDailyGoal)
}

func TestRegisterDailyStudy_Validation(t *testing.T) {
	tr, _ := newTestTracker(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		user      string
		questions int
		day       string
	}{
		{"missing user", "", 5, ""},
		{"negative count", "u1", -1, ""},
		{"malformed date", "u1", 5, "10/03/2026"},
		{"future date", "u1", 5, "2026-03-11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.RegisterDailyStudy(ctx, tt.user, tt.questions, tt.day)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}

	summary, err := tr.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, summary.Today.QuestionsCompleted, "rejected calls must not write")
}

func TestCurrentStreak_Scenario(t *testing.T) {
	tr, _ := newTestTracker(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), nil)
	ctx := context.Background()

	for _, day := range []string{"2026-03-06", "2026-03-07", "2026-03-08", "2026-03-09"} {
		_, err := tr.RegisterDailyStudy(ctx, "u1", 20, day)
		require.NoError(t, err)
	}

	n, err := tr.CurrentStreak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, n, "today not recorded yet")

	reg, err := tr.RegisterDailyStudy(ctx, "u1", 25, "")
	require.NoError(t, err)
	assert.Equal(t, 5, reg.CurrentStreak)

	n, err = tr.CurrentStreak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCurrentStreak_BelowGoalDayBreaksRun(t *testing.T) {
	tr, _ := newTestTracker(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), nil)
	ctx := context.Background()

	days := map[string]int{
		"2026-03-06": 20,
		"2026-03-07": 20,
		"2026-03-08": 5, // studied, below goal
		"2026-03-09": 20,
		"2026-03-10": 20,
	}
	for day, n := range days {
		_, err := tr.RegisterDailyStudy(ctx, "u1", n, day)
		require.NoError(t, err)
	}

	n, err := tr.CurrentStreak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	summary, err := tr.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Current)
	assert.Equal(t, 2, summary.Longest)
	assert.Equal(t, Entry{Date: "2026-03-10", QuestionsCompleted: 20, MetDailyGoal: true}, summary.Today)
}

func TestCurrentStreak_ResetsAfterTwoDayGap(t *testing.T) {
	tr, clk := newTestTracker(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), nil)
	ctx := context.Background()

	_, err := tr.RegisterDailyStudy(ctx, "u1", 20, "")
	require.NoError(t, err)

	clk.Advance(24 * time.Hour)
	n, err := tr.CurrentStreak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "yesterday still counts")

	clk.Advance(24 * time.Hour)
	n, err = tr.CurrentStreak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTracker_TimeZoneDecidesDay(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)

	// 02:00 UTC on the 11th is still the 10th at UTC-5.
	tr, _ := newTestTracker(t, time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, "2026-03-10", tr.Today())

	reg, err := tr.RegisterDailyStudy(context.Background(), "u1", 3, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", reg.Date)
}

func TestHistory(t *testing.T) {
	tr, _ := newTestTracker(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), nil)
	ctx := context.Background()

	for _, day := range []string{"2026-03-01", "2026-03-04", "2026-03-09"} {
		_, err := tr.RegisterDailyStudy(ctx, "u1", 21, day)
		require.NoError(t, err)
	}

	entries, err := tr.History(ctx, "u1", "2026-03-02", "2026-03-10")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2026-03-04", entries[0].Date)
	assert.Equal(t, "2026-03-09", entries[1].Date)

	_, err = tr.History(ctx, "u1", "2026-03-10", "2026-03-01")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = tr.History(ctx, "u1", "bad", "2026-03-01")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestHistory_DefaultWindow(t *testing.T) {
	tr, _ := newTestTracker(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), nil)
	ctx := context.Background()

	for _, day := range []string{"2026-02-07", "2026-02-08", "2026-03-10"} {
		_, err := tr.RegisterDailyStudy(ctx, "u1", 5, day)
		require.NoError(t, err)
	}

	entries, err := tr.History(ctx, "u1", "", "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2026-02-08", entries[0].Date)
	assert.Equal(t, "2026-03-10", entries[1].Date)

	entries, err = tr.History(ctx, "u1", "", "2026-03-09")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2026-02-07", entries[0].Date)

	entries, err = tr.History(ctx, "u1", "2026-03-01", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2026-03-10", entries[0].Date)
}
