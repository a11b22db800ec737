package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TopicStatistic holds append-only answer counters per (user, topic, subtopic).
type TopicStatistic struct {
	ent.Schema
}

func (TopicStatistic) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "topic_statistics"},
	}
}

func (TopicStatistic) Mixin() []ent.Mixin {
	return []ent.Mixin{UserMixin{}}
}

func (TopicStatistic) Fields() []ent.Field {
	return []ent.Field{
		field.String("topic_id").NotEmpty().Immutable(),
		field.String("subtopic_id").NotEmpty().Immutable(),
		field.Int("questions_answered").NonNegative().Default(0),
		field.Int("correct_answers").NonNegative().Default(0),
	}
}

func (TopicStatistic) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "topic_id", "subtopic_id").Unique(),
	}
}
