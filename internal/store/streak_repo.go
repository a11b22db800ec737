package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/abhisek/mastery/ent"
	"github.com/abhisek/mastery/ent/studyday"
)

// streakRepo implements StreakRepo.
type streakRepo struct {
	s *Store
}

// AddQuestions increments the day's count and re-derives met_daily_goal
// from the stored total inside one transaction, so two concurrent
// registrations that together cross the goal both observe it.
func (r *streakRepo) AddQuestions(ctx context.Context, userID, day string, n, goal int, now time.Time) (StudyDay, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	out := StudyDay{Day: day}
	now = now.UTC()

	err := r.s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.s.exec(ctx, tx, `
			INSERT INTO study_days (user_id, day, questions_completed, met_daily_goal, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id, day) DO UPDATE SET
				questions_completed = study_days.questions_completed + excluded.questions_completed,
				updated_at = excluded.updated_at`,
			userID, day, n, false, now,
		); err != nil {
			return err
		}

		if _, err := r.s.exec(ctx, tx, `
			UPDATE study_days SET met_daily_goal = (questions_completed >= ?)
			WHERE user_id = ? AND day = ?`,
			goal, userID, day,
		); err != nil {
			return err
		}

		return tx.QueryRowContext(ctx, r.s.rebind(`
			SELECT questions_completed, met_daily_goal FROM study_days
			WHERE user_id = ? AND day = ?`),
			userID, day,
		).Scan(&out.QuestionsCompleted, &out.MetDailyGoal)
	})
	if err != nil {
		return StudyDay{}, classify("add study questions", err)
	}
	return out, nil
}

func (r *streakRepo) Day(ctx context.Context, userID, day string) (*StudyDay, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	row, err := r.s.client.StudyDay.Query().
		Where(studyday.UserID(userID), studyday.Day(day)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, classify("query study day", err)
	}
	out := toStudyDay(row)
	return &out, nil
}

func (r *streakRepo) MetDays(ctx context.Context, userID, through string) ([]string, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	days, err := r.s.client.StudyDay.Query().
		Where(
			studyday.UserID(userID),
			studyday.DayLTE(through),
			studyday.MetDailyGoal(true),
		).
		Order(ent.Desc(studyday.FieldDay)).
		Select(studyday.FieldDay).
		Strings(ctx)
	if err != nil {
		return nil, classify("query met study days", err)
	}
	return days, nil
}

func (r *streakRepo) Range(ctx context.Context, userID, from, to string) ([]StudyDay, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	rows, err := r.s.client.StudyDay.Query().
		Where(
			studyday.UserID(userID),
			studyday.DayGTE(from),
			studyday.DayLTE(to),
		).
		Order(ent.Asc(studyday.FieldDay)).
		All(ctx)
	if err != nil {
		return nil, classify("query study days", err)
	}

	out := make([]StudyDay, len(rows))
	for i, row := range rows {
		out[i] = toStudyDay(row)
	}
	return out, nil
}

func toStudyDay(row *ent.StudyDay) StudyDay {
	return StudyDay{
		Day:                row.Day,
		QuestionsCompleted: row.QuestionsCompleted,
		MetDailyGoal:       row.MetDailyGoal,
	}
}
