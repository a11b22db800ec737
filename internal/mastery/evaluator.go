package mastery

import (
	"context"
	"fmt"

	"github.com/abhisek/mastery/internal/store"
	"github.com/rs/zerolog/log"
)

// Thresholds configures ThresholdEvaluator.
type Thresholds struct {
	// ProblemsPerLevel answers are required per level: reaching level L+1
	// takes ProblemsPerLevel*(L+1) lifetime answers on the competency.
	ProblemsPerLevel int
	// Accuracy is the minimum lifetime ratio of correct answers (0.0-1.0).
	Accuracy float64
}

// DefaultThresholds returns the stock promotion rule.
func DefaultThresholds() Thresholds {
	return Thresholds{ProblemsPerLevel: 5, Accuracy: 0.8}
}

// TallyReader returns a user's lifetime counters for a competency.
type TallyReader interface {
	CompetencyTally(ctx context.Context, userID, competencyID string) (store.CompetencyTally, error)
}

// Promotion describes a level change made by an evaluator.
type Promotion struct {
	CompetencyID string
	From         int
	To           int
}

// ThresholdEvaluator promotes a competency one level at a time once the
// user's lifetime counters clear the thresholds. It never demotes.
type ThresholdEvaluator struct {
	svc     *Service
	tallies TallyReader
	th      Thresholds
}

// NewThresholdEvaluator creates an evaluator writing through svc.
func NewThresholdEvaluator(svc *Service, tallies TallyReader, th Thresholds) *ThresholdEvaluator {
	if th.ProblemsPerLevel <= 0 {
		th.ProblemsPerLevel = DefaultThresholds().ProblemsPerLevel
	}
	return &ThresholdEvaluator{svc: svc, tallies: tallies, th: th}
}

// OnAnswer re-evaluates the competency an answer was recorded for.
func (e *ThresholdEvaluator) OnAnswer(ctx context.Context, userID, competencyID string) error {
	_, err := e.Evaluate(ctx, userID, competencyID)
	return err
}

// Evaluate promotes the competency if it qualifies. It returns nil when
// the level stays put.
func (e *ThresholdEvaluator) Evaluate(ctx context.Context, userID, competencyID string) (*Promotion, error) {
	level, err := e.svc.EffectiveLevel(ctx, userID, competencyID)
	if err != nil {
		return nil, fmt.Errorf("read mastery level: %w", err)
	}
	if level >= e.svc.MaxLevel() {
		return nil, nil
	}

	tally, err := e.tallies.CompetencyTally(ctx, userID, competencyID)
	if err != nil {
		return nil, fmt.Errorf("read competency tally: %w", err)
	}
	if !e.qualifies(level, tally) {
		return nil, nil
	}

	next := level + 1
	raised, err := e.svc.Promote(ctx, userID, competencyID, next)
	if err != nil {
		return nil, fmt.Errorf("promote competency: %w", err)
	}
	if !raised {
		// A concurrent evaluation or an explicit SetLevel got there first.
		return nil, nil
	}

	log.Info().
		Str("user_id", userID).
		Str("competency_id", competencyID).
		Int("from", level).
		Int("to", next).
		Msg("competency promoted")

	return &Promotion{CompetencyID: competencyID, From: level, To: next}, nil
}

func (e *ThresholdEvaluator) qualifies(level int, t store.CompetencyTally) bool {
	if t.QuestionsAnswered == 0 {
		return false
	}
	if t.QuestionsAnswered < e.th.ProblemsPerLevel*(level+1) {
		return false
	}
	return float64(t.CorrectAnswers)/float64(t.QuestionsAnswered) >= e.th.Accuracy
}
