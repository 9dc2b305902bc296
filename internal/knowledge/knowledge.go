// Package knowledge defines the data model shared by the graph builder,
// the path planner and the path adjuster.
package knowledge

import (
	"fmt"
	"slices"
)

// Span is the temporal extent of a knowledge point in its source media, in seconds.
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the span length in seconds, or 0 for inverted spans.
func (s Span) Duration() float64 {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// KnowledgePoint is a single learning unit from the content catalog.
// A zero ID means the point has no identifier.
type KnowledgePoint struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Summary  string   `json:"summary,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Span     *Span    `json:"span,omitempty"`
}

// Label returns the display name, falling back to the ID.
func (kp KnowledgePoint) Label() string {
	if kp.Name != "" {
		return kp.Name
	}
	return fmt.Sprintf("KP%d", kp.ID)
}

// Clone returns a copy that shares no slices or pointers with kp.
func (kp KnowledgePoint) Clone() KnowledgePoint {
	out := kp
	out.Keywords = slices.Clone(kp.Keywords)
	if kp.Span != nil {
		s := *kp.Span
		out.Span = &s
	}
	return out
}

// RelationKind classifies a relation between two knowledge points.
type RelationKind string

const (
	RelationPrerequisite RelationKind = "prerequisite"
	RelationRelated      RelationKind = "related"
	RelationContains     RelationKind = "contains"
)

// AllRelationKinds returns every relation kind in display order.
func AllRelationKinds() []RelationKind {
	return []RelationKind{RelationPrerequisite, RelationRelated, RelationContains}
}

// Valid reports whether k is a known relation kind.
func (k RelationKind) Valid() bool {
	return slices.Contains(AllRelationKinds(), k)
}

// ParseRelationKind converts a string to a RelationKind.
func ParseRelationKind(s string) (RelationKind, error) {
	k := RelationKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown relation kind: %q", s)
	}
	return k, nil
}

// Relation is a directed, weighted relation candidate. Only prerequisite
// relations constrain ordering; Confidence is a strength signal in [0,1].
type Relation struct {
	Source     int64        `json:"source"`
	Target     int64        `json:"target"`
	Kind       RelationKind `json:"kind"`
	Confidence float64      `json:"confidence"`
}

func (r Relation) String() string {
	return fmt.Sprintf("%d -[%s %.2f]-> %d", r.Source, r.Kind, r.Confidence, r.Target)
}
