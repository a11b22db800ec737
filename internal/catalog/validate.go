package catalog

import (
	"fmt"
	"strings"
)

// validate performs all structural checks on a catalog.
// Returns a combined error describing all problems found, or nil if valid.
func validate(competencies []Competency, topics []Topic, questions []Question) error {
	var errs []string

	ids := make(map[string]bool, len(competencies))
	codes := make(map[string]bool, len(competencies))
	for _, c := range competencies {
		switch {
		case c.ID == "":
			errs = append(errs, fmt.Sprintf("competency %q has empty ID", c.Code))
		case ids[c.ID]:
			errs = append(errs, fmt.Sprintf("duplicate competency ID: %q", c.ID))
		}
		switch {
		case c.Code == "":
			errs = append(errs, fmt.Sprintf("competency %q has empty code", c.ID))
		case codes[c.Code]:
			errs = append(errs, fmt.Sprintf("duplicate competency code: %q", c.Code))
		}
		ids[c.ID] = true
		codes[c.Code] = true
	}

	topicIDs := make(map[string]bool, len(topics))
	subtopicIDs := make(map[string]bool)
	for _, t := range topics {
		if t.ID == "" {
			errs = append(errs, fmt.Sprintf("topic %q has empty ID", t.Name))
		} else if topicIDs[t.ID] {
			errs = append(errs, fmt.Sprintf("duplicate topic ID: %q", t.ID))
		}
		topicIDs[t.ID] = true

		for _, st := range t.Subtopics {
			if st.ID == "" {
				errs = append(errs, fmt.Sprintf("topic %q has a subtopic with empty ID", t.ID))
				continue
			}
			if subtopicIDs[st.ID] {
				errs = append(errs, fmt.Sprintf("duplicate subtopic ID: %q", st.ID))
			}
			subtopicIDs[st.ID] = true
			for _, cid := range st.CompetencyIDs {
				if !ids[cid] {
					errs = append(errs, fmt.Sprintf("subtopic %q references nonexistent competency %q", st.ID, cid))
				}
			}
		}
	}

	questionIDs := make(map[string]bool, len(questions))
	for _, q := range questions {
		if q.ID == "" {
			errs = append(errs, fmt.Sprintf("question for competency %q has empty ID", q.CompetencyID))
		} else if questionIDs[q.ID] {
			errs = append(errs, fmt.Sprintf("duplicate question ID: %q", q.ID))
		}
		questionIDs[q.ID] = true
		if !ids[q.CompetencyID] {
			errs = append(errs, fmt.Sprintf("question %q references nonexistent competency %q", q.ID, q.CompetencyID))
		}
		if q.Level < 0 {
			errs = append(errs, fmt.Sprintf("question %q has negative level %d", q.ID, q.Level))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
