// Package session composes practice sessions stratified by mastery level
// and manages their lifecycle.
package session

import (
	"context"
	"fmt"
	"sort"

	"github.com/abhisek/mastery/internal/apperr"
	"github.com/abhisek/mastery/internal/catalog"
	"github.com/rs/zerolog/log"
)

// MasteryState is the part of the mastery service the composer needs.
type MasteryState interface {
	EnsureInitialized(ctx context.Context, userID string, competencies []catalog.Competency) (int, error)
	Levels(ctx context.Context, userID string, competencyIDs []string) (map[string]int, error)
}

// ComposerConfig tunes composition.
type ComposerConfig struct {
	// Policy weighs levels. Nil uses DefaultWeights.
	Policy Policy
	// RedistributeShortfall moves questions a level cannot supply to other
	// levels, lowest first, instead of failing.
	RedistributeShortfall bool
}

// Composer builds session plans.
type Composer struct {
	mastery MasteryState
	reader  catalog.Reader
	source  catalog.QuestionSource
	cfg     ComposerConfig
}

// NewComposer creates a composer.
func NewComposer(mastery MasteryState, reader catalog.Reader, source catalog.QuestionSource, cfg ComposerConfig) *Composer {
	if cfg.Policy == nil {
		cfg.Policy = DefaultWeights
	}
	return &Composer{mastery: mastery, reader: reader, source: source, cfg: cfg}
}

// bucket is the set of competencies sharing a level during composition.
type bucket struct {
	level     int
	compIDs   []string
	pools     [][]catalog.Question
	available int
	quota     int
}

// Compose selects up to maxQuestions questions for userID, biased toward
// lower mastery levels by the configured policy. It fails with
// InsufficientContent when the catalog cannot supply the distribution.
func (c *Composer) Compose(ctx context.Context, userID string, maxQuestions int) (*Plan, error) {
	const op = "session.Compose"

	if userID == "" {
		return nil, apperr.New(apperr.KindInvalidInput, op, "user id is required")
	}
	if maxQuestions <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, op, "max questions must be positive, got %d", maxQuestions)
	}

	comps, err := c.reader.ListCompetencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list competencies: %w", err)
	}
	if _, err := c.mastery.EnsureInitialized(ctx, userID, comps); err != nil {
		return nil, fmt.Errorf("initialize mastery: %w", err)
	}

	ids := make([]string, len(comps))
	for i, comp := range comps {
		ids[i] = comp.ID
	}
	levels, err := c.mastery.Levels(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("load mastery levels: %w", err)
	}

	buckets, err := c.buckets(ctx, ids, levels)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, b := range buckets {
		total += b.available
	}
	if total < maxQuestions && (c.cfg.RedistributeShortfall || len(buckets) == 0) {
		return nil, insufficient(op, -1, maxQuestions, total)
	}

	weights := make([]float64, len(buckets))
	for i, b := range buckets {
		weights[i] = c.cfg.Policy.Weight(b.level) * float64(len(b.compIDs))
	}
	for i, q := range apportion(maxQuestions, weights) {
		buckets[i].quota = q
	}

	if c.cfg.RedistributeShortfall {
		redistribute(buckets)
	} else {
		for _, b := range buckets {
			if b.quota > b.available {
				return nil, insufficient(op, b.level, b.quota, b.available)
			}
		}
	}

	plan := &Plan{UserID: userID, MaxQuestions: maxQuestions}
	for _, b := range buckets {
		plan.Groups = append(plan.Groups, LevelGroup{
			Level:        b.level,
			Competencies: b.compIDs,
			Quota:        b.quota,
			Items:        draw(b),
		})
	}

	log.Debug().
		Str("user_id", userID).
		Int("questions", plan.Total()).
		Int("levels", len(plan.Groups)).
		Msg("session composed")

	return plan, nil
}

// buckets groups competencies by level, ascending, and loads each
// competency's questions at exactly that level.
func (c *Composer) buckets(ctx context.Context, ids []string, levels map[string]int) ([]*bucket, error) {
	byLevel := make(map[int]*bucket)
	for _, id := range ids {
		lv := levels[id]
		b, ok := byLevel[lv]
		if !ok {
			b = &bucket{level: lv}
			byLevel[lv] = b
		}

		qs, err := c.source.Questions(ctx, id, lv)
		if err != nil {
			return nil, fmt.Errorf("load questions for %s: %w", id, err)
		}
		b.compIDs = append(b.compIDs, id)
		b.pools = append(b.pools, qs)
		b.available += len(qs)
	}

	out := make([]*bucket, 0, len(byLevel))
	for _, b := range byLevel {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].level < out[j].level })
	return out, nil
}

// redistribute caps every quota at its bucket's supply and hands the
// excess to buckets with spare questions, lowest level first. The caller
// has already checked that total supply covers the request.
func redistribute(buckets []*bucket) {
	short := 0
	for _, b := range buckets {
		if b.quota > b.available {
			short += b.quota - b.available
			b.quota = b.available
		}
	}
	for _, b := range buckets {
		if short == 0 {
			return
		}
		spare := min(b.available-b.quota, short)
		b.quota += spare
		short -= spare
	}
}

// draw takes quota questions round-robin across the bucket's
// competencies, skipping those that run out.
func draw(b *bucket) []Item {
	items := make([]Item, 0, b.quota)
	next := make([]int, len(b.pools))
	for len(items) < b.quota {
		progressed := false
		for i, pool := range b.pools {
			if len(items) == b.quota {
				break
			}
			if next[i] >= len(pool) {
				continue
			}
			q := pool[next[i]]
			next[i]++
			items = append(items, Item{
				QuestionID:   q.ID,
				CompetencyID: b.compIDs[i],
				Level:        b.level,
			})
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return items
}

func insufficient(op string, level, wanted, available int) error {
	return apperr.Wrap(apperr.KindInsufficientContent, op, &apperr.InsufficientContentError{
		Level:     level,
		Wanted:    wanted,
		Available: available,
	})
}
