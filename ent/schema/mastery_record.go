package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MasteryRecord stores the mastery level of one user on one competency.
// A missing row means level 0.
type MasteryRecord struct {
	ent.Schema
}

func (MasteryRecord) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "mastery_records"},
	}
}

func (MasteryRecord) Mixin() []ent.Mixin {
	return []ent.Mixin{UserMixin{}}
}

func (MasteryRecord) Fields() []ent.Field {
	return []ent.Field{
		field.String("competency_id").
			NotEmpty().
			Immutable(),
		field.Int("level").
			NonNegative().
			Default(0),
		field.Time("last_evaluated_at").
			Default(time.Now).
			Comment("When the level was last written"),
	}
}

func (MasteryRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "competency_id").Unique(),
	}
}
