// Package catalog is the read-only view of competencies, the topic tree and
// the questions available for each competency level.
package catalog

import (
	"context"
	"sort"
)

// Competency is an assessable skill. Catalog entries are never mutated.
type Competency struct {
	ID   string `json:"id" yaml:"id"`
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// Subtopic groups content under a topic and maps to one or more competencies.
type Subtopic struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	CompetencyIDs []string `json:"competencies" yaml:"competencies"`
}

// Topic is a top-level content grouping.
type Topic struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Subtopics []Subtopic `json:"subtopics" yaml:"subtopics"`
}

// Question is one practice item targeting a single mastery level of a
// competency.
type Question struct {
	ID           string `json:"id" yaml:"id"`
	CompetencyID string `json:"competency" yaml:"competency"`
	Level        int    `json:"level" yaml:"level"`
}

// Reader lists catalog entries.
type Reader interface {
	ListCompetencies(ctx context.Context) ([]Competency, error)
	ListTopics(ctx context.Context) ([]Topic, error)
}

// QuestionSource supplies questions eligible for a competency at a level.
type QuestionSource interface {
	Questions(ctx context.Context, competencyID string, level int) ([]Question, error)
}

// Catalog is an immutable in-memory catalog with precomputed indices.
// It implements Reader and QuestionSource.
type Catalog struct {
	competencies []Competency
	topics       []Topic
	questions    []Question

	byID       map[string]*Competency
	byCode     map[string]*Competency
	topicByID  map[string]*Topic
	subtopicOf map[string]string // subtopic ID -> topic ID
	placement  map[string]placement
	byLevel    map[questionKey][]Question
}

// placement is the first subtopic, in seed order, listing a competency.
type placement struct {
	topicID    string
	subtopicID string
}

type questionKey struct {
	competencyID string
	level        int
}

// New validates the entries and builds a Catalog.
func New(competencies []Competency, topics []Topic, questions []Question) (*Catalog, error) {
	if err := validate(competencies, topics, questions); err != nil {
		return nil, err
	}

	c := &Catalog{
		competencies: append([]Competency(nil), competencies...),
		topics:       append([]Topic(nil), topics...),
		questions:    append([]Question(nil), questions...),
		byID:         make(map[string]*Competency, len(competencies)),
		byCode:       make(map[string]*Competency, len(competencies)),
		topicByID:    make(map[string]*Topic, len(topics)),
		subtopicOf:   make(map[string]string),
		placement:    make(map[string]placement),
		byLevel:      make(map[questionKey][]Question),
	}

	for i := range c.competencies {
		c.byID[c.competencies[i].ID] = &c.competencies[i]
		c.byCode[c.competencies[i].Code] = &c.competencies[i]
	}
	for i := range c.topics {
		t := &c.topics[i]
		c.topicByID[t.ID] = t
		for _, st := range t.Subtopics {
			c.subtopicOf[st.ID] = t.ID
			for _, cid := range st.CompetencyIDs {
				if _, ok := c.placement[cid]; !ok {
					c.placement[cid] = placement{topicID: t.ID, subtopicID: st.ID}
				}
			}
		}
	}
	for _, q := range c.questions {
		k := questionKey{competencyID: q.CompetencyID, level: q.Level}
		c.byLevel[k] = append(c.byLevel[k], q)
	}
	for k := range c.byLevel {
		qs := c.byLevel[k]
		sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	}

	return c, nil
}

func (c *Catalog) ListCompetencies(_ context.Context) ([]Competency, error) {
	return c.Competencies(), nil
}

func (c *Catalog) ListTopics(_ context.Context) ([]Topic, error) {
	return c.Topics(), nil
}

func (c *Catalog) Questions(_ context.Context, competencyID string, level int) ([]Question, error) {
	qs := c.byLevel[questionKey{competencyID: competencyID, level: level}]
	return append([]Question(nil), qs...), nil
}

// Competencies returns all competencies in seed order.
func (c *Catalog) Competencies() []Competency {
	return append([]Competency(nil), c.competencies...)
}

// Topics returns all topics in seed order.
func (c *Catalog) Topics() []Topic {
	out := make([]Topic, len(c.topics))
	for i, t := range c.topics {
		out[i] = t
		out[i].Subtopics = append([]Subtopic(nil), t.Subtopics...)
	}
	return out
}

// QuestionCount returns the total number of questions.
func (c *Catalog) QuestionCount() int {
	return len(c.questions)
}

// Competency returns the competency with the given ID.
func (c *Catalog) Competency(id string) (Competency, bool) {
	comp, ok := c.byID[id]
	if !ok {
		return Competency{}, false
	}
	return *comp, true
}

// ByCode returns the competency with the given code.
func (c *Catalog) ByCode(code string) (Competency, bool) {
	comp, ok := c.byCode[code]
	if !ok {
		return Competency{}, false
	}
	return *comp, true
}

// HasTopic reports whether a topic exists.
func (c *Catalog) HasTopic(id string) bool {
	_, ok := c.topicByID[id]
	return ok
}

// TopicOfSubtopic returns the topic that owns a subtopic.
func (c *Catalog) TopicOfSubtopic(subtopicID string) (string, bool) {
	t, ok := c.subtopicOf[subtopicID]
	return t, ok
}

// Placement returns the first topic and subtopic, in seed order, that list
// the competency.
func (c *Catalog) Placement(competencyID string) (topicID, subtopicID string, ok bool) {
	p, ok := c.placement[competencyID]
	return p.topicID, p.subtopicID, ok
}
