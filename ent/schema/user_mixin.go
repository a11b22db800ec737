package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"entgo.io/ent/schema/mixin"
)

// UserMixin provides the base fields shared by all per-user entities.
// Every row is owned by exactly one user and carries the time of its
// last write so concurrent upserts can be audited.
type UserMixin struct {
	mixin.Schema
}

func (UserMixin) Fields() []ent.Field {
	return []ent.Field{
		field.String("user_id").
			NotEmpty().
			Immutable().
			Comment("Opaque identifier issued by the auth subsystem"),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now).
			Comment("UTC wall-clock time of the last write"),
	}
}

func (UserMixin) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id"),
	}
}
