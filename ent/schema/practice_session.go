package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PlanItem is the serialized form of one selected question.
type PlanItem struct {
	QuestionID   string `json:"question_id"`
	CompetencyID string `json:"competency_id"`
	Level        int    `json:"level"`
}

// PracticeSession is one composed study round for a user.
type PracticeSession struct {
	ent.Schema
}

func (PracticeSession) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "practice_sessions"},
	}
}

func (PracticeSession) Mixin() []ent.Mixin {
	return []ent.Mixin{UserMixin{}}
}

func (PracticeSession) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			NotEmpty().
			Immutable().
			Comment("UUID"),
		field.String("status").
			NotEmpty().
			Comment("in_progress, completed or abandoned"),
		field.Int("total_questions").NonNegative(),
		field.Int("answered_questions").NonNegative().Default(0),
		field.JSON("plan", []PlanItem{}).
			Comment("Selected questions in serving order"),
		field.Time("started_at").
			Default(time.Now).
			Immutable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
		field.Bool("streak_registered").
			Default(false).
			Comment("Answers credited to the study streak"),
	}
}

func (PracticeSession) Indexes() []ent.Index {
	return []ent.Index{
		// At most one active session per user.
		index.Fields("user_id").
			Unique().
			StorageKey("practice_sessions_one_active").
			Annotations(entsql.IndexWhere("status = 'in_progress'")),
		index.Fields("status"),
	}
}
