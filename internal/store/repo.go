package store

import (
	"context"
	"time"
)

// MasteryRecord is the stored level of one user on one competency.
type MasteryRecord struct {
	UserID          string
	CompetencyID    string
	Level           int
	LastEvaluatedAt time.Time
}

// MasteryRepo persists mastery levels.
type MasteryRepo interface {
	// Get returns the record for (userID, competencyID), or nil if none exists.
	Get(ctx context.Context, userID, competencyID string) (*MasteryRecord, error)

	// ListByUser returns every explicit record of a user ordered by competency ID.
	ListByUser(ctx context.Context, userID string) ([]MasteryRecord, error)

	// InsertMissing creates level-0 records for the given competencies,
	// ignoring those that already exist. Returns the number of rows created.
	InsertMissing(ctx context.Context, userID string, competencyIDs []string, now time.Time) (int, error)

	// Upsert sets the level and refreshes last_evaluated_at.
	Upsert(ctx context.Context, userID, competencyID string, level int, now time.Time) error

	// Raise sets the level only if it is higher than the stored one and
	// reports whether a row was written.
	Raise(ctx context.Context, userID, competencyID string, level int, now time.Time) (bool, error)
}

// AnswerData is one answer to count.
type AnswerData struct {
	UserID       string
	CompetencyID string
	TopicID      string
	SubtopicID   string
	Correct      bool
	AnsweredAt   time.Time
}

// TopicTally is the counter row for (user, topic, subtopic).
type TopicTally struct {
	TopicID           string
	SubtopicID        string
	QuestionsAnswered int
	CorrectAnswers    int
}

// CompetencyTally is the counter row for (user, competency).
type CompetencyTally struct {
	CompetencyID      string
	QuestionsAnswered int
	CorrectAnswers    int
}

// StatisticsRepo persists append-only answer counters.
type StatisticsRepo interface {
	// IncrementAnswer atomically adds one answer to the topic and
	// competency counters in a single transaction.
	IncrementAnswer(ctx context.Context, data AnswerData) error

	// TopicTallies returns all topic counters of a user.
	TopicTallies(ctx context.Context, userID string) ([]TopicTally, error)

	// CompetencyTallies returns all competency counters of a user.
	CompetencyTallies(ctx context.Context, userID string) ([]CompetencyTally, error)

	// CompetencyTally returns one competency counter, zero-valued if absent.
	CompetencyTally(ctx context.Context, userID, competencyID string) (CompetencyTally, error)
}

// StudyDay is the per-day streak entry.
type StudyDay struct {
	Day                string // YYYY-MM-DD
	QuestionsCompleted int
	MetDailyGoal       bool
}

// StreakRepo persists per-day study counts.
type StreakRepo interface {
	// AddQuestions atomically adds n to the day's count, recomputes the
	// goal flag against goal and returns the resulting entry.
	AddQuestions(ctx context.Context, userID, day string, n, goal int, now time.Time) (StudyDay, error)

	// Day returns one entry, or nil if none exists.
	Day(ctx context.Context, userID, day string) (*StudyDay, error)

	// MetDays returns the days on or before through that met the goal,
	// newest first.
	MetDays(ctx context.Context, userID, through string) ([]string, error)

	// Range returns entries with from <= day <= to, oldest first.
	Range(ctx context.Context, userID, from, to string) ([]StudyDay, error)
}

// Session statuses.
const (
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
	SessionAbandoned  = "abandoned"
)

// PlanItem is one selected question of a session plan.
type PlanItem struct {
	QuestionID   string
	CompetencyID string
	Level        int
}

// SessionRecord is a persisted practice session.
type SessionRecord struct {
	ID                string
	UserID            string
	Status            string
	TotalQuestions    int
	AnsweredQuestions int
	Plan              []PlanItem
	StartedAt         time.Time
	CompletedAt       *time.Time
	// StreakRegistered is set once the completed session's answers have
	// been credited to the study streak.
	StreakRegistered bool
}

// SessionAdvance is the outcome of AdvanceSession.
type SessionAdvance struct {
	// Advanced is true when this call moved the session forward.
	Advanced bool
	// Completed is true only for the call whose answer completed the
	// session.
	Completed bool
}

// SessionRepo persists practice sessions.
type SessionRepo interface {
	// Create inserts an in-progress session. If the user already has one,
	// the unique index rejects the insert with a StorageConflict error.
	Create(ctx context.Context, rec SessionRecord) error

	// Get returns a session by ID, or nil if none exists.
	Get(ctx context.Context, id string) (*SessionRecord, error)

	// Active returns the user's in-progress session, or nil.
	Active(ctx context.Context, userID string) (*SessionRecord, error)

	// AdvanceSession moves an in-progress session from expected to
	// expected+1 answered questions, counts answer (when non-nil) in the
	// statistics tables and completes the session on its last question,
	// all in one transaction. Nothing is written when the session is not
	// in progress or no longer has expected answered questions.
	AdvanceSession(ctx context.Context, id string, expected int, answer *AnswerData, now time.Time) (SessionAdvance, error)

	// ClaimStreakCredit marks a completed session as credited to the
	// streak. Reports false if it was not completed or already claimed.
	ClaimStreakCredit(ctx context.Context, id string, now time.Time) (bool, error)

	// ReleaseStreakCredit undoes ClaimStreakCredit after a failed
	// registration so it can be retried.
	ReleaseStreakCredit(ctx context.Context, id string, now time.Time) error

	// Transition moves a session from one status to another. Reports
	// false if the session was not in the from status.
	Transition(ctx context.Context, id, from, to string, now time.Time) (bool, error)
}
