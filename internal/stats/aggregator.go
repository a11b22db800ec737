// Package stats aggregates answer counters into per-user statistics.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/mastery/internal/apperr"
	"github.com/abhisek/mastery/internal/catalog"
	"github.com/abhisek/mastery/internal/clock"
	"github.com/abhisek/mastery/internal/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// AnswerEvent is one answered question.
type AnswerEvent struct {
	UserID       string    `json:"user_id"`
	CompetencyID string    `json:"competency_id"`
	TopicID      string    `json:"topic_id"`
	SubtopicID   string    `json:"subtopic_id"`
	IsCorrect    bool      `json:"is_correct"`
	Timestamp    time.Time `json:"timestamp"`
}

// Hook runs after an answer has been committed.
type Hook interface {
	OnAnswer(ctx context.Context, userID, competencyID string) error
}

// LevelReader returns effective mastery levels, 0 for missing records.
type LevelReader interface {
	Levels(ctx context.Context, userID string, competencyIDs []string) (map[string]int, error)
}

// Options tunes aggregation output.
type Options struct {
	// AccuracyDecimals is passed to Percent for every percentage.
	AccuracyDecimals int
	// MasteredLevel is the level at which a competency counts toward
	// topic progress.
	MasteredLevel int
}

// Aggregator records answers and builds statistics.
type Aggregator struct {
	repo   store.StatisticsRepo
	cat    *catalog.Catalog
	levels LevelReader
	clock  clock.Clock
	opts   Options
	hook   Hook
}

// NewAggregator creates an aggregator.
func NewAggregator(repo store.StatisticsRepo, cat *catalog.Catalog, levels LevelReader, clk clock.Clock, opts Options) *Aggregator {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Aggregator{repo: repo, cat: cat, levels: levels, clock: clk, opts: opts}
}

// SetHook installs the post-write hook. A nil hook disables it.
func (a *Aggregator) SetHook(h Hook) {
	a.hook = h
}

// RecordAnswer counts one answer for the event's topic/subtopic and
// competency. The hook runs after the write is durable; its failure is
// logged and not returned.
func (a *Aggregator) RecordAnswer(ctx context.Context, ev AnswerEvent) error {
	data, err := a.Prepare(ev)
	if err != nil {
		return err
	}
	if err := a.repo.IncrementAnswer(ctx, data); err != nil {
		return err
	}
	a.Committed(ctx, ev)
	return nil
}

// Prepare validates ev against the catalog and returns the counter row to
// write. Callers that count the answer inside their own transaction call
// Committed once it is durable.
func (a *Aggregator) Prepare(ev AnswerEvent) (store.AnswerData, error) {
	if err := a.validate(ev); err != nil {
		return store.AnswerData{}, err
	}

	at := ev.Timestamp
	if at.IsZero() {
		at = a.clock.Now()
	}
	return store.AnswerData{
		UserID:       ev.UserID,
		CompetencyID: ev.CompetencyID,
		TopicID:      ev.TopicID,
		SubtopicID:   ev.SubtopicID,
		Correct:      ev.IsCorrect,
		AnsweredAt:   at,
	}, nil
}

// Committed runs the post-write hook for an answer that has been counted.
func (a *Aggregator) Committed(ctx context.Context, ev AnswerEvent) {
	if a.hook == nil {
		return
	}
	if err := a.hook.OnAnswer(ctx, ev.UserID, ev.CompetencyID); err != nil {
		log.Warn().
			Err(err).
			Str("user_id", ev.UserID).
			Str("competency_id", ev.CompetencyID).
			Msg("post-answer evaluation failed")
	}
}

func (a *Aggregator) validate(ev AnswerEvent) error {
	const op = "stats.RecordAnswer"

	switch {
	case ev.UserID == "":
		return apperr.New(apperr.KindInvalidInput, op, "user id is required")
	case ev.CompetencyID == "":
		return apperr.New(apperr.KindInvalidInput, op, "competency id is required")
	case ev.TopicID == "":
		return apperr.New(apperr.KindInvalidInput, op, "topic id is required")
	case ev.SubtopicID == "":
		return apperr.New(apperr.KindInvalidInput, op, "subtopic id is required")
	}

	if _, ok := a.cat.Competency(ev.CompetencyID); !ok {
		return apperr.New(apperr.KindNotFound, op, "competency %q not found", ev.CompetencyID)
	}
	if !a.cat.HasTopic(ev.TopicID) {
		return apperr.New(apperr.KindNotFound, op, "topic %q not found", ev.TopicID)
	}
	owner, ok := a.cat.TopicOfSubtopic(ev.SubtopicID)
	if !ok {
		return apperr.New(apperr.KindNotFound, op, "subtopic %q not found", ev.SubtopicID)
	}
	if owner != ev.TopicID {
		return apperr.New(apperr.KindInvalidInput, op, "subtopic %q does not belong to topic %q", ev.SubtopicID, ev.TopicID)
	}
	return nil
}

// General is the user-wide summary.
type General struct {
	TotalQuestions  int     `json:"total_questions"`
	TotalCorrect    int     `json:"total_correct"`
	OverallAccuracy float64 `json:"overall_accuracy"`
}

// SubtopicStatistics is one subtopic row within a topic.
type SubtopicStatistics struct {
	SubtopicID        string  `json:"subtopic_id"`
	Name              string  `json:"name"`
	QuestionsAnswered int     `json:"questions_answered"`
	CorrectAnswers    int     `json:"correct_answers"`
	Accuracy          float64 `json:"accuracy"`
	Mastered          bool    `json:"mastered"`
}

// TopicStatistics aggregates a topic's subtopics.
type TopicStatistics struct {
	TopicID           string               `json:"topic_id"`
	Name              string               `json:"name"`
	QuestionsAnswered int                  `json:"questions_answered"`
	CorrectAnswers    int                  `json:"correct_answers"`
	Accuracy          float64              `json:"accuracy"`
	TopicProgress     float64              `json:"topic_progress"`
	Subtopics         []SubtopicStatistics `json:"subtopics"`
}

// CompetencyStatistics is one competency row.
type CompetencyStatistics struct {
	CompetencyID      string  `json:"competency_id"`
	Code              string  `json:"code"`
	Name              string  `json:"name"`
	QuestionsAnswered int     `json:"questions_answered"`
	CorrectAnswers    int     `json:"correct_answers"`
	Accuracy          float64 `json:"accuracy"`
	MasteryLevel      int     `json:"mastery_level"`
}

// UserStatistics is the full statistics report of a user.
type UserStatistics struct {
	UserID       string                 `json:"user_id"`
	General      General                `json:"general"`
	ByTopic      []TopicStatistics      `json:"by_topic"`
	ByCompetency []CompetencyStatistics `json:"by_competency"`
}

// UserStatistics builds the report for userID. Every catalog topic and
// competency appears, zero-valued when the user has no answers for it.
func (a *Aggregator) UserStatistics(ctx context.Context, userID string) (*UserStatistics, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "stats.UserStatistics", "user id is required")
	}

	competencies := a.cat.Competencies()
	ids := make([]string, len(competencies))
	for i, c := range competencies {
		ids[i] = c.ID
	}

	var (
		topicRows []store.TopicTally
		compRows  []store.CompetencyTally
		levels    map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := a.repo.TopicTallies(gctx, userID)
		if err != nil {
			return fmt.Errorf("load topic statistics: %w", err)
		}
		topicRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := a.repo.CompetencyTallies(gctx, userID)
		if err != nil {
			return fmt.Errorf("load competency statistics: %w", err)
		}
		compRows = rows
		return nil
	})
	g.Go(func() error {
		lv, err := a.levels.Levels(gctx, userID, ids)
		if err != nil {
			return fmt.Errorf("load mastery levels: %w", err)
		}
		levels = lv
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &UserStatistics{
		UserID:       userID,
		ByTopic:      a.byTopic(topicRows, levels),
		ByCompetency: a.byCompetency(competencies, compRows, levels),
	}

	// Totals come from the topic counters: every answer lands in exactly
	// one (topic, subtopic) row.
	for _, r := range topicRows {
		out.General.TotalQuestions += r.QuestionsAnswered
		out.General.TotalCorrect += r.CorrectAnswers
	}
	out.General.OverallAccuracy = a.percent(out.General.TotalCorrect, out.General.TotalQuestions)

	return out, nil
}

func (a *Aggregator) byTopic(rows []store.TopicTally, levels map[string]int) []TopicStatistics {
	type key struct{ topic, subtopic string }
	tallies := make(map[key]store.TopicTally, len(rows))
	for _, r := range rows {
		tallies[key{r.TopicID, r.SubtopicID}] = r
	}

	topics := a.cat.Topics()
	out := make([]TopicStatistics, 0, len(topics))
	for _, t := range topics {
		ts := TopicStatistics{
			TopicID:   t.ID,
			Name:      t.Name,
			Subtopics: make([]SubtopicStatistics, 0, len(t.Subtopics)),
		}
		mastered := 0
		for _, st := range t.Subtopics {
			r := tallies[key{t.ID, st.ID}]
			ss := SubtopicStatistics{
				SubtopicID:        st.ID,
				Name:              st.Name,
				QuestionsAnswered: r.QuestionsAnswered,
				CorrectAnswers:    r.CorrectAnswers,
				Accuracy:          a.percent(r.CorrectAnswers, r.QuestionsAnswered),
				Mastered:          a.subtopicMastered(st, levels),
			}
			if ss.Mastered {
				mastered++
			}
			ts.QuestionsAnswered += r.QuestionsAnswered
			ts.CorrectAnswers += r.CorrectAnswers
			ts.Subtopics = append(ts.Subtopics, ss)
		}
		ts.Accuracy = a.percent(ts.CorrectAnswers, ts.QuestionsAnswered)
		ts.TopicProgress = a.percent(mastered, len(t.Subtopics))
		out = append(out, ts)
	}
	return out
}

// subtopicMastered reports whether every competency of st is at or above
// the mastered level. A subtopic with no competencies is never mastered.
func (a *Aggregator) subtopicMastered(st catalog.Subtopic, levels map[string]int) bool {
	if len(st.CompetencyIDs) == 0 {
		return false
	}
	for _, id := range st.CompetencyIDs {
		if levels[id] < a.opts.MasteredLevel {
			return false
		}
	}
	return true
}

func (a *Aggregator) byCompetency(comps []catalog.Competency, rows []store.CompetencyTally, levels map[string]int) []CompetencyStatistics {
	tallies := make(map[string]store.CompetencyTally, len(rows))
	for _, r := range rows {
		tallies[r.CompetencyID] = r
	}

	out := make([]CompetencyStatistics, len(comps))
	for i, c := range comps {
		r := tallies[c.ID]
		out[i] = CompetencyStatistics{
			CompetencyID:      c.ID,
			Code:              c.Code,
			Name:              c.Name,
			QuestionsAnswered: r.QuestionsAnswered,
			CorrectAnswers:    r.CorrectAnswers,
			Accuracy:          a.percent(r.CorrectAnswers, r.QuestionsAnswered),
			MasteryLevel:      levels[c.ID],
		}
	}
	return out
}

func (a *Aggregator) percent(part, whole int) float64 {
	return Percent(part, whole, a.opts.AccuracyDecimals)
}
