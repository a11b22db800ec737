// Package app wires the store, catalog and domain services into the Engine
// that the CLI and HTTP adapter drive.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/mastery/internal/apperr"
	"github.com/abhisek/mastery/internal/catalog"
	"github.com/abhisek/mastery/internal/clock"
	"github.com/abhisek/mastery/internal/config"
	"github.com/abhisek/mastery/internal/mastery"
	"github.com/abhisek/mastery/internal/session"
	"github.com/abhisek/mastery/internal/stats"
	"github.com/abhisek/mastery/internal/store"
	"github.com/abhisek/mastery/internal/streak"
	"github.com/rs/zerolog/log"
)

// Options holds the dependencies of an Engine.
type Options struct {
	Config  *config.Config
	Store   *store.Store
	Catalog *catalog.Catalog
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

// Engine is the entry point to every core operation.
type Engine struct {
	cfg     *config.Config
	store   *store.Store
	catalog *catalog.Catalog

	mastery  *mastery.Service
	stats    *stats.Aggregator
	streak   *streak.Tracker
	composer *session.Composer
	sessions *session.Manager
}

// New builds an Engine from opts.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("app: store is required")
	}
	if opts.Catalog == nil {
		return nil, errors.New("app: catalog is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	ms := mastery.NewService(opts.Store.MasteryRepo(), opts.Catalog, clk, cfg.Mastery.MaxLevel)

	agg := stats.NewAggregator(opts.Store.StatisticsRepo(), opts.Catalog, ms, clk, stats.Options{
		AccuracyDecimals: cfg.Statistics.AccuracyDecimals,
		MasteredLevel:    cfg.Mastery.MasteredLevel,
	})
	agg.SetHook(mastery.NewThresholdEvaluator(ms, opts.Store.StatisticsRepo(), mastery.Thresholds{
		ProblemsPerLevel: cfg.Mastery.ProblemsPerLevel,
		Accuracy:         cfg.Mastery.PromotionAccuracy,
	}))

	composer := session.NewComposer(ms, opts.Catalog, opts.Catalog, session.ComposerConfig{
		Policy:                session.WeightPolicy(cfg.Session.LevelWeights),
		RedistributeShortfall: cfg.Session.RedistributeShortfall,
	})

	return &Engine{
		cfg:      cfg,
		store:    opts.Store,
		catalog:  opts.Catalog,
		mastery:  ms,
		stats:    agg,
		streak:   streak.NewTracker(opts.Store.StreakRepo(), clk, cfg.Streak.DailyGoal, cfg.Location()),
		composer: composer,
		sessions: session.NewManager(opts.Store.SessionRepo(), composer, clk),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Catalog returns the catalog the engine serves.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Ping checks storage connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// RecordAnswer counts one answer and triggers mastery evaluation.
func (e *Engine) RecordAnswer(ctx context.Context, ev stats.AnswerEvent) error {
	return e.stats.RecordAnswer(ctx, ev)
}

// UserStatistics returns the user's statistics report.
func (e *Engine) UserStatistics(ctx context.Context, userID string) (*stats.UserStatistics, error) {
	return e.stats.UserStatistics(ctx, userID)
}

// RegisterDailyStudy adds an incremental question count to a day. An
// empty day means today.
func (e *Engine) RegisterDailyStudy(ctx context.Context, userID string, questions int, day string) (*streak.Registration, error) {
	return e.streak.RegisterDailyStudy(ctx, userID, questions, day)
}

// CurrentStreak returns the user's current streak.
func (e *Engine) CurrentStreak(ctx context.Context, userID string) (int, error) {
	return e.streak.CurrentStreak(ctx, userID)
}

// StreakSummary returns current and longest streaks and today's entry.
func (e *Engine) StreakSummary(ctx context.Context, userID string) (*streak.Summary, error) {
	return e.streak.Summary(ctx, userID)
}

// StreakHistory returns the study days between from and to.
func (e *Engine) StreakHistory(ctx context.Context, userID, from, to string) ([]streak.Entry, error) {
	return e.streak.History(ctx, userID, from, to)
}

// EnsureInitialized creates missing level-0 records for the whole catalog.
func (e *Engine) EnsureInitialized(ctx context.Context, userID string) (int, error) {
	return e.mastery.EnsureInitialized(ctx, userID, e.catalog.Competencies())
}

// SetLevel stores an explicit mastery level. ref is a competency ID or
// code.
func (e *Engine) SetLevel(ctx context.Context, userID, ref string, level int) error {
	return e.mastery.SetLevel(ctx, userID, e.ResolveCompetency(ref), level)
}

// ResolveCompetency maps a competency ID or code to its ID. An unknown
// reference is returned unchanged so the caller reports it as not found.
func (e *Engine) ResolveCompetency(ref string) string {
	if _, ok := e.catalog.Competency(ref); ok {
		return ref
	}
	if c, ok := e.catalog.ByCode(ref); ok {
		return c.ID
	}
	return ref
}

// MasteryRecords lists the user's explicit mastery records.
func (e *Engine) MasteryRecords(ctx context.Context, userID string) ([]mastery.Record, error) {
	return e.mastery.Records(ctx, userID)
}

// ComposeSession builds a plan without persisting a session.
func (e *Engine) ComposeSession(ctx context.Context, userID string, maxQuestions int) (*session.Plan, error) {
	return e.composer.Compose(ctx, userID, maxQuestions)
}

// StartSession starts or resumes the user's practice session.
func (e *Engine) StartSession(ctx context.Context, userID string, maxQuestions int, mode session.StartMode) (*session.StartResult, error) {
	return e.sessions.Start(ctx, userID, maxQuestions, mode)
}

// ActiveSession returns the user's in-progress session, or nil.
func (e *Engine) ActiveSession(ctx context.Context, userID string) (*session.Session, error) {
	return e.sessions.Active(ctx, userID)
}

// GetSession returns a session by ID.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*session.Session, error) {
	return e.sessions.Get(ctx, sessionID)
}

// SessionAnswer is an answer to the next question of a session. Topic and
// subtopic default to the competency's first placement in the catalog.
type SessionAnswer struct {
	QuestionID string    `json:"question_id"`
	TopicID    string    `json:"topic_id"`
	SubtopicID string    `json:"subtopic_id"`
	IsCorrect  bool      `json:"is_correct"`
	Timestamp  time.Time `json:"timestamp"`
}

// SessionResult is returned by operations that advance a session. Streak
// is set when the call ended the session and its answers were registered.
type SessionResult struct {
	Session *session.Session     `json:"session"`
	Streak  *streak.Registration `json:"streak,omitempty"`
}

// SubmitSessionAnswer records an answer to the session's next question.
// When the answer completes the session, the session's answers are
// registered as the day's study.
func (e *Engine) SubmitSessionAnswer(ctx context.Context, sessionID string, ans SessionAnswer) (*SessionResult, error) {
	const op = "app.SubmitSessionAnswer"

	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next := sess.Next()
	if next == nil {
		return nil, apperr.New(apperr.KindInvalidInput, op, "session %s has no pending question", sessionID)
	}
	if ans.QuestionID != "" && ans.QuestionID != next.QuestionID {
		return nil, apperr.New(apperr.KindInvalidInput, op, "expected answer to question %s, got %s", next.QuestionID, ans.QuestionID)
	}

	topicID, subtopicID := ans.TopicID, ans.SubtopicID
	if topicID == "" && subtopicID == "" {
		t, st, ok := e.catalog.Placement(next.CompetencyID)
		if !ok {
			return nil, apperr.New(apperr.KindNotFound, op, "competency %q is not placed in any subtopic", next.CompetencyID)
		}
		topicID, subtopicID = t, st
	}

	ev := stats.AnswerEvent{
		UserID:       sess.UserID,
		CompetencyID: next.CompetencyID,
		TopicID:      topicID,
		SubtopicID:   subtopicID,
		IsCorrect:    ans.IsCorrect,
		Timestamp:    ans.Timestamp,
	}
	data, err := e.stats.Prepare(ev)
	if err != nil {
		return nil, err
	}

	// The answer is counted in the same transaction that advances the
	// session past the question, so a concurrent duplicate writes nothing.
	p, err := e.sessions.RecordAnswer(ctx, sessionID, sess.AnsweredQuestions, &data)
	if err != nil {
		return nil, err
	}
	e.stats.Committed(ctx, ev)
	return e.finish(ctx, p.Session)
}

// CompleteSession ends a session early and registers its answers. Calling
// it on a completed session whose registration failed retries the
// registration.
func (e *Engine) CompleteSession(ctx context.Context, sessionID string) (*SessionResult, error) {
	p, err := e.sessions.Complete(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return e.finish(ctx, p.Session)
}

// AbandonSession releases an in-progress session. Its answers stay
// counted in statistics but are not registered toward the streak.
func (e *Engine) AbandonSession(ctx context.Context, sessionID string) (*session.Session, error) {
	p, err := e.sessions.Abandon(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return p.Session, nil
}

// finish registers a completed session's answers with the streak
// tracker exactly once. The credit is claimed on the session row first and
// released again when registration fails, so a later CompleteSession can
// retry.
func (e *Engine) finish(ctx context.Context, sess *session.Session) (*SessionResult, error) {
	out := &SessionResult{Session: sess}
	if sess.Status != session.StatusCompleted || sess.StreakRegistered || sess.AnsweredQuestions == 0 {
		return out, nil
	}

	claimed, err := e.sessions.ClaimStreakCredit(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		sess.StreakRegistered = true
		return out, nil
	}

	day := ""
	if sess.CompletedAt != nil {
		day = e.streak.DayOf(*sess.CompletedAt)
	}
	reg, err := e.streak.RegisterDailyStudy(ctx, sess.UserID, sess.AnsweredQuestions, day)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", sess.UserID).
			Str("session_id", sess.ID).
			Msg("register completed session failed")
		if rerr := e.sessions.ReleaseStreakCredit(context.WithoutCancel(ctx), sess.ID); rerr != nil {
			log.Error().
				Err(rerr).
				Str("session_id", sess.ID).
				Msg("release streak credit failed")
		}
		return nil, err
	}
	sess.StreakRegistered = true
	out.Streak = reg
	return out, nil
}
