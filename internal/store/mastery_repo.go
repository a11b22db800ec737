package store

import (
	"context"
	"strings"
	"time"

	"github.com/abhisek/mastery/ent"
	"github.com/abhisek/mastery/ent/masteryrecord"
)

// insertChunk bounds rows per multi-row INSERT to stay under driver
// parameter limits.
const insertChunk = 200

// masteryRepo implements MasteryRepo.
type masteryRepo struct {
	s *Store
}

func (r *masteryRepo) Get(ctx context.Context, userID, competencyID string) (*MasteryRecord, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	rec, err := r.s.client.MasteryRecord.Query().
		Where(
			masteryrecord.UserID(userID),
			masteryrecord.CompetencyID(competencyID),
		).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, classify("query mastery record", err)
	}
	out := toMasteryRecord(rec)
	return &out, nil
}

func (r *masteryRepo) ListByUser(ctx context.Context, userID string) ([]MasteryRecord, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	recs, err := r.s.client.MasteryRecord.Query().
		Where(masteryrecord.UserID(userID)).
		Order(ent.Asc(masteryrecord.FieldCompetencyID)).
		All(ctx)
	if err != nil {
		return nil, classify("query mastery records", err)
	}

	out := make([]MasteryRecord, len(recs))
	for i, rec := range recs {
		out[i] = toMasteryRecord(rec)
	}
	return out, nil
}

// InsertMissing relies on the (user_id, competency_id) unique index: rows
// that already exist, including ones a concurrent caller inserted a moment
// earlier, are skipped by ON CONFLICT DO NOTHING and not counted.
func (r *masteryRepo) InsertMissing(ctx context.Context, userID string, competencyIDs []string, now time.Time) (int, error) {
	ids := dedupe(competencyIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	now = now.UTC()
	created := 0
	for start := 0; start < len(ids); start += insertChunk {
		end := min(start+insertChunk, len(ids))
		chunk := ids[start:end]

		var (
			b    strings.Builder
			args = make([]any, 0, len(chunk)*4)
		)
		b.WriteString(`INSERT INTO mastery_records (user_id, competency_id, level, last_evaluated_at, updated_at) VALUES `)
		for i, id := range chunk {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(?, ?, 0, ?, ?)")
			args = append(args, userID, id, now, now)
		}
		b.WriteString(` ON CONFLICT (user_id, competency_id) DO NOTHING`)

		n, err := r.s.exec(ctx, r.s.db, b.String(), args...)
		if err != nil {
			return created, classify("insert mastery records", err)
		}
		created += int(n)
	}
	return created, nil
}

func (r *masteryRepo) Upsert(ctx context.Context, userID, competencyID string, level int, now time.Time) error {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	now = now.UTC()
	_, err := r.s.exec(ctx, r.s.db, `
		INSERT INTO mastery_records (user_id, competency_id, level, last_evaluated_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, competency_id) DO UPDATE SET
			level = excluded.level,
			last_evaluated_at = excluded.last_evaluated_at,
			updated_at = excluded.updated_at`,
		userID, competencyID, level, now, now,
	)
	return classify("upsert mastery record", err)
}

// Raise is Upsert guarded by the stored level, so a writer holding a stale
// read cannot lower a level another writer already raised.
func (r *masteryRepo) Raise(ctx context.Context, userID, competencyID string, level int, now time.Time) (bool, error) {
	ctx, cancel := r.s.withTimeout(ctx)
	defer cancel()

	now = now.UTC()
	n, err := r.s.exec(ctx, r.s.db, `
		INSERT INTO mastery_records (user_id, competency_id, level, last_evaluated_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, competency_id) DO UPDATE SET
			level = excluded.level,
			last_evaluated_at = excluded.last_evaluated_at,
			updated_at = excluded.updated_at
		WHERE mastery_records.level < excluded.level`,
		userID, competencyID, level, now, now,
	)
	if err != nil {
		return false, classify("raise mastery record", err)
	}
	return n > 0, nil
}

func toMasteryRecord(rec *ent.MasteryRecord) MasteryRecord {
	return MasteryRecord{
		UserID:          rec.UserID,
		CompetencyID:    rec.CompetencyID,
		Level:           rec.Level,
		LastEvaluatedAt: rec.LastEvaluatedAt,
	}
}

// dedupe drops empty and repeated IDs, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
