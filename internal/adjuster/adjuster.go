// Package adjuster repairs an existing study path in response to learning
// events without replanning.
package adjuster

import (
	"fmt"
	"slices"

	"github.com/abhisek/kpath/internal/knowledge"
	"github.com/abhisek/kpath/internal/logger"
	"github.com/abhisek/kpath/internal/planner"
)

// Result is the outcome of one adjustment.
type Result struct {
	Path       planner.Path `json:"path"`
	Reason     string       `json:"reason"`
	NextAction string       `json:"next_action"`
	// Changed reports whether Path differs structurally from the input.
	Changed bool `json:"changed"`
}

// handler applies one event kind to a private copy of the path.
type handler func(p *planner.Path, kp int64) (reason string, changed bool)

type route struct {
	apply      handler
	nextAction string
}

// Adjuster dispatches events to per-kind handlers. Every handler is
// idempotent: replaying an event leaves the path as the first application
// did.
type Adjuster struct {
	log    *logger.Logger
	routes map[EventKind]route
}

// New creates an Adjuster. A nil logger discards output.
func New(log *logger.Logger) *Adjuster {
	return &Adjuster{
		log: logger.OrNop(log),
		routes: map[EventKind]route{
			EventMastered:          {handleMastered, "continue with the next knowledge point"},
			EventDifficult:         {handleDifficult, "study the remedial material, then retry"},
			EventRemedialCompleted: {handleRemedialCompleted, "retry the knowledge point"},
			EventCompleted:         {handleCompleted, "assess mastery to decide the next step"},
		},
	}
}

// Adjust applies e to p and returns the new path. p is never modified.
// Unknown kinds return *UnknownEventError together with an unchanged copy of p.
func (a *Adjuster) Adjust(p planner.Path, e Event) (Result, error) {
	out := p.Clone()
	r, ok := a.routes[e.Kind]
	if !ok {
		err := &UnknownEventError{Kind: e.Kind}
		a.log.Warn("rejected learning event", "learner", p.LearnerID, "event", e.String(), "error", err)
		return Result{
			Path:       out,
			Reason:     fmt.Sprintf("unknown event kind %q, path unchanged", e.Kind),
			NextAction: "continue the current path",
		}, err
	}

	reason, changed := r.apply(&out, e.KnowledgePointID)
	if changed {
		out.Renumber()
	}
	a.log.Info("path adjusted",
		"learner", p.LearnerID,
		"event", e.String(),
		"changed", changed,
		"old_len", p.Len(),
		"new_len", out.Len())

	next := r.nextAction
	if !changed && e.Kind != EventCompleted {
		next = "continue the current path"
	}
	return Result{Path: out, Reason: reason, NextAction: next, Changed: changed}, nil
}

func label(kp int64) string {
	return knowledge.KnowledgePoint{ID: kp}.Label()
}

func handleMastered(p *planner.Path, kp int64) (string, bool) {
	if p.Index(kp, planner.NodeContent) < 0 {
		return fmt.Sprintf("knowledge point %d is not in the path, nothing to remove", kp), false
	}
	p.Nodes = slices.DeleteFunc(p.Nodes, func(n planner.PathNode) bool {
		return n.KnowledgePointID == kp
	})
	return fmt.Sprintf("knowledge point %d mastered, removed from the path", kp), true
}

func handleDifficult(p *planner.Path, kp int64) (string, bool) {
	i := p.Index(kp, planner.NodeContent)
	if i < 0 {
		return fmt.Sprintf("knowledge point %d is not in the path, no remedial inserted", kp), false
	}
	if p.HasRemedialBefore(kp) {
		return fmt.Sprintf("remedial material already scheduled before knowledge point %d", kp), false
	}
	remedial := planner.PathNode{
		KnowledgePointID: kp,
		Reason:           planner.RemedialReason(label(kp)),
		Type:             planner.NodeRemedial,
	}
	p.Nodes = slices.Insert(p.Nodes, i, remedial)
	return fmt.Sprintf("knowledge point %d flagged difficult, remedial material inserted", kp), true
}

func handleRemedialCompleted(p *planner.Path, kp int64) (string, bool) {
	if !p.HasRemedialBefore(kp) {
		return fmt.Sprintf("no remedial material pending for knowledge point %d", kp), false
	}
	i := p.Index(kp, planner.NodeRemedial)
	p.Nodes = slices.Delete(p.Nodes, i, i+1)
	return fmt.Sprintf("remedial material for knowledge point %d completed, retry it", kp), true
}

func handleCompleted(p *planner.Path, kp int64) (string, bool) {
	if p.Index(kp, planner.NodeContent) < 0 {
		return fmt.Sprintf("knowledge point %d is not in the path", kp), false
	}
	return fmt.Sprintf("knowledge point %d completed, continue", kp), false
}
