// Package mastery tracks the per-user, per-competency mastery level.
//
// A competency with no stored record is at level 0. EffectiveLevel and
// Levels are the only places that rule is applied.
package mastery

import (
	"context"
	"time"

	"github.com/abhisek/mastery/internal/apperr"
	"github.com/abhisek/mastery/internal/catalog"
	"github.com/abhisek/mastery/internal/clock"
	"github.com/abhisek/mastery/internal/store"
	"github.com/rs/zerolog/log"
)

// DefaultMaxLevel is used when Service is built with a non-positive max.
const DefaultMaxLevel = 5

// CompetencyLookup resolves catalog competencies by ID.
type CompetencyLookup interface {
	Competency(id string) (catalog.Competency, bool)
}

// Record is a user's stored level on one competency.
type Record struct {
	CompetencyID    string    `json:"competency_id"`
	Level           int       `json:"level"`
	LastEvaluatedAt time.Time `json:"last_evaluated_at"`
}

// Service reads and writes mastery levels.
type Service struct {
	repo     store.MasteryRepo
	lookup   CompetencyLookup
	clock    clock.Clock
	maxLevel int
}

// NewService creates a mastery service.
func NewService(repo store.MasteryRepo, lookup CompetencyLookup, clk clock.Clock, maxLevel int) *Service {
	if maxLevel <= 0 {
		maxLevel = DefaultMaxLevel
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{repo: repo, lookup: lookup, clock: clk, maxLevel: maxLevel}
}

// MaxLevel returns the highest valid level.
func (s *Service) MaxLevel() int {
	return s.maxLevel
}

// EffectiveLevel returns the stored level, or 0 when no record exists.
func (s *Service) EffectiveLevel(ctx context.Context, userID, competencyID string) (int, error) {
	rec, err := s.repo.Get(ctx, userID, competencyID)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, nil
	}
	return rec.Level, nil
}

// Levels returns the effective level of every requested competency in one
// read. Competencies without a record map to 0.
func (s *Service) Levels(ctx context.Context, userID string, competencyIDs []string) (map[string]int, error) {
	recs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stored := make(map[string]int, len(recs))
	for _, r := range recs {
		stored[r.CompetencyID] = r.Level
	}

	out := make(map[string]int, len(competencyIDs))
	for _, id := range competencyIDs {
		out[id] = stored[id]
	}
	return out, nil
}

// Records returns the explicit records of a user ordered by competency ID.
func (s *Service) Records(ctx context.Context, userID string) ([]Record, error) {
	recs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = Record{
			CompetencyID:    r.CompetencyID,
			Level:           r.Level,
			LastEvaluatedAt: r.LastEvaluatedAt,
		}
	}
	return out, nil
}

// EnsureInitialized creates level-0 records for every competency the user
// has none for and returns how many were created. Calling it again, or
// concurrently, creates nothing new and does not fail.
func (s *Service) EnsureInitialized(ctx context.Context, userID string, competencies []catalog.Competency) (int, error) {
	if userID == "" {
		return 0, apperr.New(apperr.KindInvalidInput, "mastery.EnsureInitialized", "user id is required")
	}

	ids := make([]string, 0, len(competencies))
	for _, c := range competencies {
		ids = append(ids, c.ID)
	}

	created, err := s.repo.InsertMissing(ctx, userID, ids, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if created > 0 {
		log.Debug().
			Str("user_id", userID).
			Int("created", created).
			Msg("mastery records initialized")
	}
	return created, nil
}

// SetLevel stores an explicit level. Out-of-range levels and unknown
// competencies are rejected before touching storage.
func (s *Service) SetLevel(ctx context.Context, userID, competencyID string, level int) error {
	const op = "mastery.SetLevel"

	if level < 0 || level > s.maxLevel {
		return apperr.New(apperr.KindInvalidLevel, op, "level %d outside [0, %d]", level, s.maxLevel)
	}
	if userID == "" {
		return apperr.New(apperr.KindInvalidInput, op, "user id is required")
	}
	if _, ok := s.lookup.Competency(competencyID); !ok {
		return apperr.New(apperr.KindNotFound, op, "competency %q not found", competencyID)
	}

	return s.repo.Upsert(ctx, userID, competencyID, level, s.clock.Now())
}

// Promote raises the stored level to level unless it is already at or
// above it. It reports whether the level changed.
func (s *Service) Promote(ctx context.Context, userID, competencyID string, level int) (bool, error) {
	const op = "mastery.Promote"

	if level < 0 || level > s.maxLevel {
		return false, apperr.New(apperr.KindInvalidLevel, op, "level %d outside [0, %d]", level, s.maxLevel)
	}
	if userID == "" {
		return false, apperr.New(apperr.KindInvalidInput, op, "user id is required")
	}
	if _, ok := s.lookup.Competency(competencyID); !ok {
		return false, apperr.New(apperr.KindNotFound, op, "competency %q not found", competencyID)
	}

	return s.repo.Raise(ctx, userID, competencyID, level, s.clock.Now())
}
