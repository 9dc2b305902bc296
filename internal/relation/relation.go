// Package relation produces candidate relations between knowledge points.
package relation

import "github.com/abhisek/kpath/internal/knowledge"

// Candidate is one relation a Source proposes from a to b.
type Candidate struct {
	Kind       knowledge.RelationKind
	Confidence float64
}

// Source proposes relations for an ordered pair of knowledge points.
type Source interface {
	Relate(a, b knowledge.KnowledgePoint) []Candidate
}

// SourceFunc adapts a function to Source.
type SourceFunc func(a, b knowledge.KnowledgePoint) []Candidate

func (f SourceFunc) Relate(a, b knowledge.KnowledgePoint) []Candidate { return f(a, b) }

// Collect runs src over every ordered pair of distinct points, in input
// order, and returns the proposed relations.
func Collect(src Source, points []knowledge.KnowledgePoint) []knowledge.Relation {
	var out []knowledge.Relation
	for i, a := range points {
		for j, b := range points {
			if i == j || a.ID == b.ID {
				continue
			}
			for _, c := range src.Relate(a, b) {
				out = append(out, knowledge.Relation{
					Source:     a.ID,
					Target:     b.ID,
					Kind:       c.Kind,
					Confidence: c.Confidence,
				})
			}
		}
	}
	return out
}
