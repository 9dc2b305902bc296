package kgraph

import (
	"fmt"
	"strings"
)

// Validate performs all structural checks on g.
// Returns a combined error describing all problems found, or nil if valid.
func Validate(g *Graph) error {
	var errs []string

	idSet := make(map[int64]bool, len(g.points))
	for _, kp := range g.points {
		if kp.ID <= 0 {
			errs = append(errs, fmt.Sprintf("knowledge point %q has no id", kp.Name))
		}
		if idSet[kp.ID] {
			errs = append(errs, fmt.Sprintf("duplicate knowledge point ID: %d", kp.ID))
		}
		idSet[kp.ID] = true
	}

	for _, e := range g.edges {
		r := e.rel
		if !idSet[r.Source] {
			errs = append(errs, fmt.Sprintf("relation %s references nonexistent source %d", r, r.Source))
		}
		if !idSet[r.Target] {
			errs = append(errs, fmt.Sprintf("relation %s references nonexistent target %d", r, r.Target))
		}
		if !r.Kind.Valid() {
			errs = append(errs, fmt.Sprintf("relation %s has unknown kind %q", r, r.Kind))
		}
		if !(r.Confidence >= 0 && r.Confidence <= 1) {
			errs = append(errs, fmt.Sprintf("relation %s: confidence must be in [0, 1], got %f", r, r.Confidence))
		}
	}

	if _, stuck := Kahn(g.IDs(), g.PrerequisiteEdges()); len(stuck) > 0 {
		ids := sortedKeys(stuck)
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprint(id)
		}
		errs = append(errs, fmt.Sprintf("prerequisite cycle detected involving knowledge points: %s", strings.Join(parts, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("knowledge graph validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
