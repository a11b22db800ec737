package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CompetencyStatistic holds append-only answer counters per (user, competency).
// It is written in the same transaction as TopicStatistic.
type CompetencyStatistic struct {
	ent.Schema
}

func (CompetencyStatistic) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "competency_statistics"},
	}
}

func (CompetencyStatistic) Mixin() []ent.Mixin {
	return []ent.Mixin{UserMixin{}}
}

func (CompetencyStatistic) Fields() []ent.Field {
	return []ent.Field{
		field.String("competency_id").NotEmpty().Immutable(),
		field.Int("questions_answered").NonNegative().Default(0),
		field.Int("correct_answers").NonNegative().Default(0),
	}
}

func (CompetencyStatistic) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "competency_id").Unique(),
	}
}
