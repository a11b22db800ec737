package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSeed = `
competencies:
  - {id: c1, code: FRAC, name: Fractions}
  - {id: c2, code: DEC, name: Decimals}
topics:
  - id: t1
    name: Rational numbers
    subtopics:
      - {id: s1, name: Fractions, competencies: [c1]}
      - {id: s2, name: Decimals, competencies: [c2]}
questions:
  - {id: q1, competency: c1, level: 0}
  - {id: q2, competency: c2, level: 1}
`

func TestParseValidSeed(t *testing.T) {
	c, err := Parse([]byte(validSeed))
	require.NoError(t, err)

	assert.Len(t, c.Competencies(), 2)
	assert.Len(t, c.Topics(), 1)
	assert.Equal(t, 2, c.QuestionCount())
	assert.Equal(t, []string{"c1"}, c.Topics()[0].Subtopics[0].CompetencyIDs)
}

func TestParseJSONSeed(t *testing.T) {
	doc := `{"competencies": [{"id": "c1", "code": "A", "name": "A"}]}`
	c, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Len(t, c.Competencies(), 1)
}

func TestParseSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing competencies", `topics: []`},
		{"missing code", `competencies: [{id: c1, name: x}]`},
		{"unknown field", `competencies: [{id: c1, code: A, name: x, color: red}]`},
		{"negative level", "competencies: [{id: c1, code: A, name: x}]\nquestions: [{id: q, competency: c1, level: -2}]"},
		{"level not integer", "competencies: [{id: c1, code: A, name: x}]\nquestions: [{id: q, competency: c1, level: 1.5}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "schema validation failed")
		})
	}
}

func TestParseStructuralViolation(t *testing.T) {
	doc := `
competencies:
  - {id: c1, code: A, name: x}
  - {id: c2, code: A, name: y}
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate competency code")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validSeed), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.QuestionCount())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadExampleCatalog(t *testing.T) {
	c, err := Load("../../configs/catalog.example.yaml")
	require.NoError(t, err)

	assert.Len(t, c.Competencies(), 4)
	assert.Len(t, c.Topics(), 2)
	assert.Equal(t, 16, c.QuestionCount())

	topic, sub, ok := c.Placement("frac-compare")
	require.True(t, ok)
	assert.Equal(t, "fractions", topic)
	assert.Equal(t, "comparing", sub)
}
