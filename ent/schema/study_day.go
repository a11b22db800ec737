package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// StudyDay records how many questions a user completed on a calendar day.
type StudyDay struct {
	ent.Schema
}

func (StudyDay) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "study_days"},
	}
}

func (StudyDay) Mixin() []ent.Mixin {
	return []ent.Mixin{UserMixin{}}
}

func (StudyDay) Fields() []ent.Field {
	return []ent.Field{
		field.String("day").
			NotEmpty().
			Immutable().
			Comment("Calendar date, YYYY-MM-DD, in the configured streak time zone"),
		field.Int("questions_completed").NonNegative().Default(0),
		field.Bool("met_daily_goal").Default(false),
	}
}

func (StudyDay) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "day").Unique(),
	}
}
