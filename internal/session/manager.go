package session

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/mastery/internal/apperr"
	"github.com/abhisek/mastery/internal/clock"
	"github.com/abhisek/mastery/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Status is the lifecycle state of a session. A session that has not been
// started has no row and no status.
type Status string

const (
	StatusInProgress Status = store.SessionInProgress
	StatusCompleted  Status = store.SessionCompleted
	StatusAbandoned  Status = store.SessionAbandoned
)

// StartMode decides what Start does when the user already has a session
// in progress.
type StartMode int

const (
	// ResumeExisting returns the in-progress session.
	ResumeExisting StartMode = iota
	// FailIfActive returns SessionAlreadyActive.
	FailIfActive
)

// ParseStartMode maps "resume" and "fail" to a StartMode.
func ParseStartMode(s string) (StartMode, error) {
	switch s {
	case "", "resume":
		return ResumeExisting, nil
	case "fail":
		return FailIfActive, nil
	}
	return 0, apperr.New(apperr.KindInvalidInput, "session.ParseStartMode", "unknown start mode %q", s)
}

// Session is a persisted practice session.
type Session struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Status            Status     `json:"status"`
	TotalQuestions    int        `json:"total_questions"`
	AnsweredQuestions int        `json:"answered_questions"`
	Plan              []Item     `json:"plan"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	StreakRegistered  bool       `json:"streak_registered"`
}

// Next returns the next unanswered question, or nil when none is left or
// the session is no longer in progress.
func (s *Session) Next() *Item {
	if s.Status != StatusInProgress || s.AnsweredQuestions >= len(s.Plan) {
		return nil
	}
	it := s.Plan[s.AnsweredQuestions]
	return &it
}

// StartResult is returned by Start.
type StartResult struct {
	Session *Session `json:"session"`
	Resumed bool     `json:"resumed"`
}

// Progress is returned by operations that may end a session. Ended is
// true only for the call that moved the session out of in_progress.
type Progress struct {
	Session *Session `json:"session"`
	Ended   bool     `json:"ended"`
}

// Manager owns the session state machine.
type Manager struct {
	repo     store.SessionRepo
	composer *Composer
	clock    clock.Clock
}

// NewManager creates a session manager.
func NewManager(repo store.SessionRepo, composer *Composer, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Manager{repo: repo, composer: composer, clock: clk}
}

// Start composes and persists a new session. If the user already has one
// in progress, mode decides between resuming it and failing. Two racing
// starts for the same user never both create a session: the loser sees
// the winner's session.
func (m *Manager) Start(ctx context.Context, userID string, maxQuestions int, mode StartMode) (*StartResult, error) {
	const op = "session.Start"

	if userID == "" {
		return nil, apperr.New(apperr.KindInvalidInput, op, "user id is required")
	}

	existing, err := m.repo.Active(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return m.onActive(op, existing, mode)
	}

	plan, err := m.composer.Compose(ctx, userID, maxQuestions)
	if err != nil {
		return nil, err
	}

	items := plan.Items()
	rec := store.SessionRecord{
		ID:             uuid.NewString(),
		UserID:         userID,
		Status:         store.SessionInProgress,
		TotalQuestions: len(items),
		Plan:           toPlanItems(items),
		StartedAt:      m.clock.Now(),
	}
	if err := m.repo.Create(ctx, rec); err != nil {
		if !errors.Is(err, apperr.ErrStorageConflict) {
			return nil, err
		}
		existing, aerr := m.repo.Active(ctx, userID)
		if aerr != nil {
			return nil, aerr
		}
		if existing == nil {
			return nil, err
		}
		return m.onActive(op, existing, mode)
	}

	log.Info().
		Str("user_id", userID).
		Str("session_id", rec.ID).
		Int("questions", rec.TotalQuestions).
		Msg("session started")

	return &StartResult{Session: fromRecord(&rec)}, nil
}

func (m *Manager) onActive(op string, rec *store.SessionRecord, mode StartMode) (*StartResult, error) {
	if mode == FailIfActive {
		return nil, apperr.New(apperr.KindSessionAlreadyActive, op, "session %s is already in progress", rec.ID)
	}
	log.Info().
		Str("user_id", rec.UserID).
		Str("session_id", rec.ID).
		Msg("session resumed")
	return &StartResult{Session: fromRecord(rec), Resumed: true}, nil
}

// Get returns a session by ID.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	rec, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.New(apperr.KindNotFound, "session.Get", "session %q not found", sessionID)
	}
	return fromRecord(rec), nil
}

// Active returns the user's in-progress session, or nil.
func (m *Manager) Active(ctx context.Context, userID string) (*Session, error) {
	rec, err := m.repo.Active(ctx, userID)
	if err != nil || rec == nil {
		return nil, err
	}
	return fromRecord(rec), nil
}

// RecordAnswer advances the session past its question at index expected
// and counts answer, when non-nil, in the same transaction. The session
// completes on its last question. A caller whose expected index is stale,
// because another answer to that question won, gets InvalidInput and
// nothing is written.
func (m *Manager) RecordAnswer(ctx context.Context, sessionID string, expected int, answer *store.AnswerData) (*Progress, error) {
	const op = "session.RecordAnswer"

	if expected < 0 {
		return nil, apperr.New(apperr.KindInvalidInput, op, "question index must not be negative, got %d", expected)
	}

	adv, err := m.repo.AdvanceSession(ctx, sessionID, expected, answer, m.clock.Now())
	if err != nil {
		return nil, err
	}
	sess, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !adv.Advanced {
		if sess.Status != StatusInProgress {
			return nil, apperr.New(apperr.KindInvalidInput, op, "session %s is %s", sessionID, sess.Status)
		}
		return nil, apperr.New(apperr.KindInvalidInput, op, "question %d of session %s was already answered", expected+1, sessionID)
	}

	if adv.Completed {
		log.Info().
			Str("user_id", sess.UserID).
			Str("session_id", sess.ID).
			Int("answered", sess.AnsweredQuestions).
			Msg("session completed")
	}
	return &Progress{Session: sess, Ended: adv.Completed}, nil
}

// ClaimStreakCredit reserves the right to register a completed session's
// answers with the streak. Only one caller ever gets true until the claim
// is released.
func (m *Manager) ClaimStreakCredit(ctx context.Context, sessionID string) (bool, error) {
	return m.repo.ClaimStreakCredit(ctx, sessionID, m.clock.Now())
}

// ReleaseStreakCredit gives a claim back after registration failed.
func (m *Manager) ReleaseStreakCredit(ctx context.Context, sessionID string) error {
	return m.repo.ReleaseStreakCredit(ctx, sessionID, m.clock.Now())
}

// Complete ends an in-progress session early. Completing an already
// completed session is a no-op.
func (m *Manager) Complete(ctx context.Context, sessionID string) (*Progress, error) {
	return m.transition(ctx, "session.Complete", sessionID, StatusCompleted)
}

// Abandon releases an in-progress session so a new one can start.
// Abandoning an already abandoned session is a no-op.
func (m *Manager) Abandon(ctx context.Context, sessionID string) (*Progress, error) {
	return m.transition(ctx, "session.Abandon", sessionID, StatusAbandoned)
}

func (m *Manager) transition(ctx context.Context, op, sessionID string, to Status) (*Progress, error) {
	ok, err := m.repo.Transition(ctx, sessionID, store.SessionInProgress, string(to), m.clock.Now())
	if err != nil {
		return nil, err
	}
	sess, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok && sess.Status != to {
		return nil, apperr.New(apperr.KindInvalidInput, op, "session %s is %s", sessionID, sess.Status)
	}
	if ok {
		log.Info().
			Str("user_id", sess.UserID).
			Str("session_id", sess.ID).
			Str("status", string(to)).
			Msg("session ended")
	}
	return &Progress{Session: sess, Ended: ok}, nil
}

func toPlanItems(items []Item) []store.PlanItem {
	out := make([]store.PlanItem, len(items))
	for i, it := range items {
		out[i] = store.PlanItem{
			QuestionID:   it.QuestionID,
			CompetencyID: it.CompetencyID,
			Level:        it.Level,
		}
	}
	return out
}

func fromRecord(rec *store.SessionRecord) *Session {
	plan := make([]Item, len(rec.Plan))
	for i, p := range rec.Plan {
		plan[i] = Item{
			QuestionID:   p.QuestionID,
			CompetencyID: p.CompetencyID,
			Level:        p.Level,
		}
	}
	return &Session{
		ID:                rec.ID,
		UserID:            rec.UserID,
		Status:            Status(rec.Status),
		TotalQuestions:    rec.TotalQuestions,
		AnsweredQuestions: rec.AnsweredQuestions,
		Plan:              plan,
		StartedAt:         rec.StartedAt,
		CompletedAt:       rec.CompletedAt,
		StreakRegistered:  rec.StreakRegistered,
	}
}
