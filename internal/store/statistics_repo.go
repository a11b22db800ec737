package store

import (
	"context"
	"database/sql"

	"github.com/abhisek/mastery/ent"
	"github.com/abhisek/mastery/ent/competencystatistic"
	"github.com/abhisek/mastery/ent/topicstatistic"
)

// statisticsRepo implements StatisticsRepo.
type statisticsRepo struct {
	s *Store
}

// IncrementAnswer expresses both counter updates as col = col + n so
// concurrent answers on the same key never lose an increment.
func (r *statisticsRepo) IncrementAnswer(ctx context.Context, data AnswerData) error {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	err := r.s.inTx(ctx, func(tx *sql.Tx) error {
		return r.s.incrementAnswer(ctx, tx, data)
	})
	return classify("increment answer counters", err)
}

// incrementAnswer upserts the topic and competency counters of one answer
// through q, which is expected to be a transaction.
func (s *Store) incrementAnswer(ctx context.Context, q execer, data AnswerData) error {
	correct := 0
	if data.Correct {
		correct = 1
	}
	at := data.AnsweredAt.UTC()

	if _, err := s.exec(ctx, q, `
		INSERT INTO topic_statistics (user_id, topic_id, subtopic_id, questions_answered, correct_answers, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (user_id, topic_id, subtopic_id) DO UPDATE SET
			questions_answered = topic_statistics.questions_answered + 1,
			correct_answers = topic_statistics.correct_answers + excluded.correct_answers,
			updated_at = excluded.updated_at`,
		data.UserID, data.TopicID, data.SubtopicID, correct, at,
	); err != nil {
		return err
	}

	_, err := s.exec(ctx, q, `
		INSERT INTO competency_statistics (user_id, competency_id, questions_answered, correct_answers, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (user_id, competency_id) DO UPDATE SET
			questions_answered = competency_statistics.questions_answered + 1,
			correct_answers = competency_statistics.correct_answers + excluded.correct_answers,
			updated_at = excluded.updated_at`,
		data.UserID, data.CompetencyID, correct, at,
	)
	return err
}

func (r *statisticsRepo) TopicTallies(ctx context.Context, userID string) ([]TopicTally, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	rows, err := r.s.client.TopicStatistic.Query().
		Where(topicstatistic.UserID(userID)).
		Order(ent.Asc(topicstatistic.FieldTopicID), ent.Asc(topicstatistic.FieldSubtopicID)).
		All(ctx)
	if err != nil {
		return nil, classify("query topic statistics", err)
	}

	out := make([]TopicTally, len(rows))
	for i, row := range rows {
		out[i] = TopicTally{
			TopicID:           row.TopicID,
			SubtopicID:        row.SubtopicID,
			QuestionsAnswered: row.QuestionsAnswered,
			CorrectAnswers:    row.CorrectAnswers,
		}
	}
	return out, nil
}

func (r *statisticsRepo) CompetencyTallies(ctx context.Context, userID string) ([]CompetencyTally, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	rows, err := r.s.client.CompetencyStatistic.Query().
		Where(competencystatistic.UserID(userID)).
		Order(ent.Asc(competencystatistic.FieldCompetencyID)).
		All(ctx)
	if err != nil {
		return nil, classify("query competency statistics", err)
	}

	out := make([]CompetencyTally, len(rows))
	for i, row := range rows {
		out[i] = toCompetencyTally(row)
	}
	return out, nil
}

func (r *statisticsRepo) CompetencyTally(ctx context.Context, userID, competencyID string) (CompetencyTally, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	row, err := r.s.client.CompetencyStatistic.Query().
		Where(
			competencystatistic.UserID(userID),
			competencystatistic.CompetencyID(competencyID),
		).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return CompetencyTally{CompetencyID: competencyID}, nil
		}
		return CompetencyTally{}, classify("query competency statistic", err)
	}
	return toCompetencyTally(row), nil
}

func toCompetencyTally(row *ent.CompetencyStatistic) CompetencyTally {
	return CompetencyTally{
		CompetencyID:      row.CompetencyID,
		QuestionsAnswered: row.QuestionsAnswered,
		CorrectAnswers:    row.CorrectAnswers,
	}
}
