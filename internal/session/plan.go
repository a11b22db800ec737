package session

// Item is one selected question.
type Item struct {
	QuestionID   string `json:"question_id"`
	CompetencyID string `json:"competency_id"`
	Level        int    `json:"level"`
}

// LevelGroup is the part of a plan drawn from one mastery level.
type LevelGroup struct {
	Level        int      `json:"level"`
	Competencies []string `json:"competencies"`
	Quota        int      `json:"quota"`
	Items        []Item   `json:"items"`
}

// Plan is a composed session: the selected questions grouped by level,
// lowest level first.
type Plan struct {
	UserID       string       `json:"user_id"`
	MaxQuestions int          `json:"max_questions"`
	Groups       []LevelGroup `json:"groups"`
}

// Items returns the selected questions in serving order.
func (p *Plan) Items() []Item {
	var out []Item
	for _, g := range p.Groups {
		out = append(out, g.Items...)
	}
	return out
}

// Total returns the number of selected questions.
func (p *Plan) Total() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Items)
	}
	return n
}
