package unitfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/kpath/internal/knowledge"
	"github.com/abhisek/kpath/internal/relation"
)

const calculus = `{
	// first unit
	"unit": "calculus-1",
	"knowledge_points": [
		{"id": 1, "name": "Functions", "keywords": ["function", "domain"], "start_time": 0, "end_time": 300},
		{"id": 2, "name": "Limits", "summary": "approaching a value"},
		{"id": 3, "name": "Derivatives"}
	],
	"relations": [
		{"source": 1, "target": 2, "kind": "prerequisite", "confidence": 0.9},
		{"source": 2, "target": 3, "kind": "prerequisite", "confidence": 0.8}
	],
	"difficulty": {"2": "hard", "3": "easy"},
	"difficult_points": [3]
}`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(calculus))
	require.NoError(t, err)

	assert.Equal(t, "calculus-1", f.Name)
	require.Len(t, f.KnowledgePoints, 3)
	require.Len(t, f.Relations, 2)
	assert.Equal(t, knowledge.RelationPrerequisite, f.Relations[0].Kind)

	points := f.Points()
	require.NotNil(t, points[0].Span)
	assert.Equal(t, knowledge.Span{Start: 0, End: 300}, *points[0].Span)
	assert.Nil(t, points[1].Span)
	assert.Equal(t, []string{"function", "domain"}, points[0].Keywords)

	opts := f.PlanOptions()
	assert.Equal(t, knowledge.DifficultyHard, opts.Difficulty[2])
	assert.Equal(t, knowledge.DifficultyEasy, opts.Difficulty[3])
	assert.True(t, opts.DifficultPoints[3])
	assert.False(t, opts.DifficultPoints[2])

	u := f.Unit()
	assert.Equal(t, "calculus-1", u.Name)
	assert.Len(t, u.Points, 3)
	assert.Len(t, u.Relations, 2)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"knowledge_points": [`},
		{"missing points", `{"unit": "x"}`},
		{"zero id", `{"knowledge_points": [{"id": 0, "name": "a"}]}`},
		{"missing name", `{"knowledge_points": [{"id": 1}]}`},
		{"half a span", `{"knowledge_points": [{"id": 1, "name": "a", "start_time": 3}]}`},
		{"unknown kind", `{"knowledge_points": [], "relations": [{"source": 1, "target": 2, "kind": "sibling", "confidence": 1}]}`},
		{"unknown level", `{"knowledge_points": [], "difficulty": {"1": "brutal"}}`},
		{"bad difficulty key", `{"knowledge_points": [], "difficulty": {"one": "easy"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParse_OutOfRangeConfidenceIsLeftToBuilder(t *testing.T) {
	f, err := Parse([]byte(`{"knowledge_points": [{"id": 1, "name": "a"}, {"id": 2, "name": "b"}],
		"relations": [{"source": 1, "target": 2, "kind": "related", "confidence": 1.4}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1.4, f.Relations[0].Confidence)
}

func TestParseFile_DefaultsUnitName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "algebra.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"knowledge_points": [{"id": 1, "name": "Variables"}]}`), 0o644))

	f, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "algebra", f.Name)
	assert.Empty(t, f.PlanOptions().Difficulty)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestExtractRelations(t *testing.T) {
	f, err := Parse([]byte(`{"knowledge_points": [
		{"id": 1, "name": "Limits", "keywords": ["limit"], "start_time": 0, "end_time": 60},
		{"id": 2, "name": "Derivatives", "summary": "the limit of a difference quotient", "keywords": ["derivative"], "start_time": 60, "end_time": 120}
	]}`))
	require.NoError(t, err)

	n := f.ExtractRelations(relation.DefaultKeywordSource())
	require.Equal(t, 1, n)
	assert.Equal(t, knowledge.Relation{Source: 1, Target: 2, Kind: knowledge.RelationPrerequisite, Confidence: 0.4}, f.Relations[0])

	assert.Zero(t, f.ExtractRelations(relation.DefaultKeywordSource()), "listed relations are kept")
}
