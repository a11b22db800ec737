package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abhisek/mastery/ent"
	"github.com/abhisek/mastery/ent/practicesession"
	"github.com/abhisek/mastery/ent/schema"
)

// sessionRepo implements SessionRepo.
type sessionRepo struct {
	s *Store
}

func (r *sessionRepo) Create(ctx context.Context, rec SessionRecord) error {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	items := make([]schema.PlanItem, len(rec.Plan))
	for i, p := range rec.Plan {
		items[i] = schema.PlanItem{
			QuestionID:   p.QuestionID,
			CompetencyID: p.CompetencyID,
			Level:        p.Level,
		}
	}
	plan, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal session plan: %w", err)
	}

	startedAt := rec.StartedAt.UTC()
	_, err = r.s.exec(ctx, r.s.db, `
		INSERT INTO practice_sessions
			(id, user_id, status, total_questions, answered_questions, plan, started_at, streak_registered, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, SessionInProgress, rec.TotalQuestions, rec.AnsweredQuestions,
		string(plan), startedAt, false, startedAt,
	)
	return classify("insert practice session", err)
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*SessionRecord, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	row, err := r.s.client.PracticeSession.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, classify("query practice session", err)
	}
	out := toSessionRecord(row)
	return &out, nil
}

func (r *sessionRepo) Active(ctx context.Context, userID string) (*SessionRecord, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	row, err := r.s.client.PracticeSession.Query().
		Where(
			practicesession.UserID(userID),
			practicesession.Status(SessionInProgress),
		).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, classify("query active practice session", err)
	}
	out := toSessionRecord(row)
	return &out, nil
}

// AdvanceSession guards the increment with answered_questions = expected,
// so of two callers that read the same pending question only one
// advances; the other writes nothing, not even its answer.
func (r *sessionRepo) AdvanceSession(ctx context.Context, id string, expected int, answer *AnswerData, now time.Time) (SessionAdvance, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	now = now.UTC()
	var out SessionAdvance
	err := r.s.inTx(ctx, func(tx *sql.Tx) error {
		affected, err := r.s.exec(ctx, tx, `
			UPDATE practice_sessions SET
				answered_questions = answered_questions + 1,
				updated_at = ?
			WHERE id = ? AND status = ? AND answered_questions = ? AND answered_questions < total_questions`,
			now, id, SessionInProgress, expected,
		)
		if err != nil || affected == 0 {
			return err
		}
		out.Advanced = true

		if answer != nil {
			if err := r.s.incrementAnswer(ctx, tx, *answer); err != nil {
				return err
			}
		}

		completed, err := r.s.exec(ctx, tx, `
			UPDATE practice_sessions SET status = ?, completed_at = ?, updated_at = ?
			WHERE id = ? AND status = ? AND answered_questions >= total_questions`,
			SessionCompleted, now, now, id, SessionInProgress,
		)
		if err != nil {
			return err
		}
		out.Completed = completed > 0
		return nil
	})
	if err != nil {
		return SessionAdvance{}, classify("advance practice session", err)
	}
	return out, nil
}

func (r *sessionRepo) ClaimStreakCredit(ctx context.Context, id string, now time.Time) (bool, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	affected, err := r.s.exec(ctx, r.s.db, `
		UPDATE practice_sessions SET streak_registered = ?, updated_at = ?
		WHERE id = ? AND status = ? AND streak_registered = ?`,
		true, now.UTC(), id, SessionCompleted, false,
	)
	if err != nil {
		return false, classify("claim session streak credit", err)
	}
	return affected > 0, nil
}

func (r *sessionRepo) ReleaseStreakCredit(ctx context.Context, id string, now time.Time) error {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	_, err := r.s.exec(ctx, r.s.db, `
		UPDATE practice_sessions SET streak_registered = ?, updated_at = ?
		WHERE id = ?`,
		false, now.UTC(), id,
	)
	return classify("release session streak credit", err)
}

func (r *sessionRepo) Transition(ctx context.Context, id, from, to string, now time.Time) (bool, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	now = now.UTC()
	affected, err := r.s.exec(ctx, r.s.db, `
		UPDATE practice_sessions SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, now, now, id, from,
	)
	if err != nil {
		return false, classify("transition practice session", err)
	}
	return affected > 0, nil
}

func toSessionRecord(row *ent.PracticeSession) SessionRecord {
	plan := make([]PlanItem, len(row.Plan))
	for i, p := range row.Plan {
		plan[i] = PlanItem{
			QuestionID:   p.QuestionID,
			CompetencyID: p.CompetencyID,
			Level:        p.Level,
		}
	}
	return SessionRecord{
		ID:                row.ID,
		UserID:            row.UserID,
		Status:            row.Status,
		TotalQuestions:    row.TotalQuestions,
		AnsweredQuestions: row.AnsweredQuestions,
		Plan:              plan,
		StartedAt:         row.StartedAt,
		CompletedAt:       row.CompletedAt,
		StreakRegistered:  row.StreakRegistered,
	}
}
