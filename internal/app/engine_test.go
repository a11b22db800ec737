package app

import (
	"context"
	"fmt"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/mastery/internal/apperr"
	"github.com/abhisek/mastery/internal/catalog"
	"github.com/abhisek/mastery/internal/clock"
	"github.com/abhisek/mastery/internal/config"
	"github.com/abhisek/mastery/internal/session"
	"github.com/abhisek/mastery/internal/stats"
	"github.com/abhisek/mastery/internal/store"
	"github.com/abhisek/mastery/internal/streak"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, mutate func(*config.Config)) *Engine {
	t.Helper()

	st, err := store.Open(store.Options{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "mastery.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	var questions []catalog.Question
	for _, comp := range []string{"add", "sub"} {
		for lv := 0; lv <= 2; lv++ {
			for i := 0; i < 6; i++ {
				questions = append(questions, catalog.Question{
					ID:           fmt.Sprintf("%s-%d-%d", comp, lv, i),
					CompetencyID: comp,
					Level:        lv,
				})
			}
		}
	}
	cat, err := catalog.New(
		[]catalog.Competency{
			{ID: "add", Code: "ADD", Name: "Addition"},
			{ID: "sub", Code: "SUB", Name: "Subtraction"},
		},
		[]catalog.Topic{{ID: "arith", Name: "Arithmetic", Subtopics: []catalog.Subtopic{
			{ID: "adding", Name: "Adding", CompetencyIDs: []string{"add"}},
			{ID: "subtracting", Name: "Subtracting", CompetencyIDs: []string{"sub"}},
		}}},
		questions,
	)
	require.NoError(t, err)

	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}

	e, err := New(Options{
		Config:  cfg,
		Store:   st,
		Catalog: cat,
		Clock:   clock.NewFixed(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	return e
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestEngine_SessionFlow(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) {
		c.Streak.DailyGoal = 4
	})
	ctx := context.Background()

	res, err := e.StartSession(ctx, "u1", 4, session.FailIfActive)
	require.NoError(t, err)
	sess := res.Session
	require.Equal(t, 4, sess.TotalQuestions)

	for i := 0; i < 4; i++ {
		next := sess.Next()
		require.NotNil(t, next)
		out, err := e.SubmitSessionAnswer(ctx, sess.ID, SessionAnswer{
			QuestionID: next.QuestionID,
			IsCorrect:  i != 0,
		})
		require.NoError(t, err)
		sess = out.Session

		if i < 3 {
			assert.Nil(t, out.Streak)
			continue
		}
		assert.Equal(t, session.StatusCompleted, sess.Status)
		require.NotNil(t, out.Streak)
		assert.Equal(t, 4, out.Streak.QuestionsCompleted)
		assert.True(t, out.Streak.CompletedDailyGoal)
		assert.Equal(t, 1, out.Streak.CurrentStreak)
	}

	st, err := e.UserStatistics(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, stats.General{TotalQuestions: 4, TotalCorrect: 3, OverallAccuracy: 75}, st.General)

	n, err := e.CurrentStreak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = e.SubmitSessionAnswer(ctx, sess.ID, SessionAnswer{IsCorrect: true})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestEngine_SubmitRejectsWrongQuestion(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := e.StartSession(ctx, "u1", 2, session.ResumeExisting)
	require.NoError(t, err)

	_, err = e.SubmitSessionAnswer(ctx, res.Session.ID, SessionAnswer{QuestionID: "not-next"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = e.SubmitSessionAnswer(ctx, "missing", SessionAnswer{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	st, err := e.UserStatistics(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, st.General.TotalQuestions)
}

func TestEngine_AnswersPromoteMastery(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) {
		c.Mastery.ProblemsPerLevel = 2
		c.Mastery.PromotionAccuracy = 0.5
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, e.RecordAnswer(ctx, stats.AnswerEvent{
			UserID:       "u1",
			CompetencyID: "add",
			TopicID:      "arith",
			SubtopicID:   "adding",
			IsCorrect:    true,
		}))
	}

	st, err := e.UserStatistics(ctx, "u1")
	require.NoError(t, err)
	for _, cs := range st.ByCompetency {
		switch cs.CompetencyID {
		case "add":
			assert.Equal(t, 1, cs.MasteryLevel)
		case "sub":
			assert.Equal(t, 0, cs.MasteryLevel)
		}
	}
}

func TestEngine_CompleteEarlyRegistersAnswered(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := e.StartSession(ctx, "u1", 4, session.FailIfActive)
	require.NoError(t, err)
	_, err = e.SubmitSessionAnswer(ctx, res.Session.ID, SessionAnswer{IsCorrect: true})
	require.NoError(t, err)

	out, err := e.CompleteSession(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, out.Session.Status)
	require.NotNil(t, out.Streak)
	assert.Equal(t, 1, out.Streak.QuestionsCompleted)
	assert.False(t, out.Streak.CompletedDailyGoal)

	// Completing again does not register twice.
	out, err = e.CompleteSession(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Nil(t, out.Streak)
}

func TestEngine_AbandonDoesNotRegister(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := e.StartSession(ctx, "u1", 2, session.FailIfActive)
	require.NoError(t, err)
	_, err = e.SubmitSessionAnswer(ctx, res.Session.ID, SessionAnswer{IsCorrect: true})
	require.NoError(t, err)

	sess, err := e.AbandonSession(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusAbandoned, sess.Status)

	summary, err := e.StreakSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, summary.Today.QuestionsCompleted)
}

func TestEngine_EnsureInitializedAndSetLevel(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	n, err := e.EnsureInitialized(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = e.EnsureInitialized(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, e.SetLevel(ctx, "u1", "sub", 2))
	assert.ErrorIs(t, e.SetLevel(ctx, "u1", "sub", 6), apperr.ErrInvalidLevel)

	recs, err := e.MasteryRecords(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[1].Level)

	plan, err := e.ComposeSession(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, plan.Total())
}

func TestEngine_DuplicateSubmitCountsOnce(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := e.StartSession(ctx, "u1", 3, session.FailIfActive)
	require.NoError(t, err)
	first := res.Session.Next().QuestionID

	const callers = 6
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.SubmitSessionAnswer(ctx, res.Session.ID, SessionAnswer{QuestionID: first, IsCorrect: true})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	}
	assert.Equal(t, 1, succeeded)

	sess, err := e.GetSession(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.AnsweredQuestions)

	st, err := e.UserStatistics(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.General.TotalQuestions)
}

// flakyStreakRepo fails AddQuestions while failing is set.
type flakyStreakRepo struct {
	store.StreakRepo
	mu      sync.Mutex
	failing bool
}

func (r *flakyStreakRepo) setFailing(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing = v
}

func (r *flakyStreakRepo) AddQuestions(ctx context.Context, userID, day string, n, goal int, now time.Time) (store.StudyDay, error) {
	r.mu.Lock()
	failing := r.failing
	r.mu.Unlock()
	if failing {
		return store.StudyDay{}, errors.New("streak storage unavailable")
	}
	return r.StreakRepo.AddQuestions(ctx, userID, day, n, goal, now)
}

func TestEngine_CompleteRetriesFailedRegistration(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	repo := &flakyStreakRepo{StreakRepo: e.store.StreakRepo(), failing: true}
	e.streak = streak.NewTracker(repo, clock.NewFixed(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)), e.cfg.Streak.DailyGoal, e.cfg.Location())

	res, err := e.StartSession(ctx, "u1", 2, session.FailIfActive)
	require.NoError(t, err)
	_, err = e.SubmitSessionAnswer(ctx, res.Session.ID, SessionAnswer{IsCorrect: true})
	require.NoError(t, err)
	_, err = e.SubmitSessionAnswer(ctx, res.Session.ID, SessionAnswer{IsCorrect: false})
	require.Error(t, err)

	sess, err := e.GetSession(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, sess.Status)
	assert.False(t, sess.StreakRegistered)

	repo.setFailing(false)
	out, err := e.CompleteSession(ctx, res.Session.ID)
	require.NoError(t, err)
	require.NotNil(t, out.Streak)
	assert.Equal(t, 2, out.Streak.QuestionsCompleted)
	assert.Equal(t, "2026-03-10", out.Streak.Date)
	assert.True(t, out.Session.StreakRegistered)

	out, err = e.CompleteSession(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Nil(t, out.Streak)

	summary, err := e.StreakSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Today.QuestionsCompleted)
}

func TestEngine_SetLevelByCode(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	assert.Equal(t, "sub", e.ResolveCompetency("SUB"))
	assert.Equal(t, "sub", e.ResolveCompetency("sub"))
	assert.Equal(t, "nope", e.ResolveCompetency("nope"))

	require.NoError(t, e.SetLevel(ctx, "u1", "SUB", 3))
	recs, err := e.MasteryRecords(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "sub", recs[0].CompetencyID)
	assert.Equal(t, 3, recs[0].Level)

	assert.ErrorIs(t, e.SetLevel(ctx, "u1", "NOPE", 1), apperr.ErrNotFound)
}
