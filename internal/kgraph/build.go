// Package kgraph assembles knowledge points and relation candidates into a
// graph whose prerequisite edges are guaranteed acyclic.
package kgraph

import (
	"math"

	"github.com/abhisek/kpath/internal/knowledge"
	"github.com/abhisek/kpath/internal/logger"
)

// DefaultMaxCyclesPerRound caps the cycles one resolution round collects
// unless WithMaxCyclesPerRound says otherwise. Dense units have exponentially
// many elementary cycles; later rounds pick up whatever the cap left intact.
const DefaultMaxCyclesPerRound = 10000

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used to report dropped input and removed edges.
func WithLogger(l *logger.Logger) Option {
	return func(b *Builder) { b.log = logger.OrNop(l) }
}

// WithMaxCycleLength bounds the length of cycles enumerated per round.
// Zero means unbounded.
func WithMaxCycleLength(n int) Option {
	return func(b *Builder) { b.maxCycleLength = max(n, 0) }
}

// WithMaxCyclesPerRound bounds how many cycles one resolution round
// enumerates before removing edges. Zero lifts the bound, which can exhaust
// memory on densely connected units.
func WithMaxCyclesPerRound(n int) Option {
	return func(b *Builder) { b.maxCyclesPerRound = max(n, 0) }
}

// Builder builds graphs. It holds no state between Build calls and is safe
// for concurrent use.
type Builder struct {
	log               *logger.Logger
	maxCycleLength    int
	maxCyclesPerRound int
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{log: logger.Nop(), maxCyclesPerRound: DefaultMaxCyclesPerRound}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build is shorthand for NewBuilder(opts...).Build(points, relations).
func Build(points []knowledge.KnowledgePoint, relations []knowledge.Relation, opts ...Option) *Graph {
	return NewBuilder(opts...).Build(points, relations)
}

// Build inserts points and relations, drops malformed input, and removes the
// weakest edge of each prerequisite cycle until none remain.
// Empty input yields an empty graph.
func (b *Builder) Build(points []knowledge.KnowledgePoint, relations []knowledge.Relation) *Graph {
	known := make(map[int64]bool, len(points))
	kept := make([]knowledge.KnowledgePoint, 0, len(points))
	for _, kp := range points {
		if kp.ID <= 0 {
			b.log.Warn("dropping knowledge point without id", "name", kp.Name)
			continue
		}
		if known[kp.ID] {
			b.log.Warn("dropping duplicate knowledge point", "id", kp.ID, "name", kp.Name)
			continue
		}
		known[kp.ID] = true
		kept = append(kept, kp.Clone())
	}

	edges := make([]edge, 0, len(relations))
	for i, r := range relations {
		switch {
		case !known[r.Source] || !known[r.Target]:
			b.log.Warn("dropping relation with unknown endpoint", "relation", r.String())
			continue
		case !r.Kind.Valid():
			b.log.Warn("dropping relation with unknown kind", "relation", r.String())
			continue
		case math.IsNaN(r.Confidence):
			b.log.Warn("dropping relation without confidence", "source", r.Source, "target", r.Target)
			continue
		case r.Confidence < 0 || r.Confidence > 1:
			clamped := min(max(r.Confidence, 0), 1)
			b.log.Warn("clamping relation confidence", "relation", r.String(), "clamped", clamped)
			r.Confidence = clamped
		}
		edges = append(edges, edge{rel: r, seq: i})
	}

	edges, removed := b.resolveCycles(edges)
	g := newGraph(kept, edges, removed)
	b.log.Debug("graph built",
		"nodes", g.Len(),
		"relations", len(edges),
		"prerequisite_edges", len(g.PrerequisiteEdges()),
		"removed", len(removed))
	return g
}

// resolveCycles runs enumerate→remove rounds until the prerequisite subgraph
// is acyclic. Each round removes at least one edge: the first cycle of a
// round is always intact when it is reached.
func (b *Builder) resolveCycles(edges []edge) ([]edge, []RemovedRelation) {
	alive := make([]bool, len(edges))
	for i := range alive {
		alive[i] = true
	}

	var removed []RemovedRelation
	for round := 1; ; round++ {
		byPair := make(map[Edge][]int)
		var live []edge
		for i, e := range edges {
			if !alive[i] || e.rel.Kind != knowledge.RelationPrerequisite {
				continue
			}
			pe := Edge{From: e.rel.Source, To: e.rel.Target}
			byPair[pe] = append(byPair[pe], i)
			live = append(live, e)
		}
		adj := adjacency(prerequisiteEdges(live))

		cycles := enumerateCycles(adj, b.maxCycleLength, b.maxCyclesPerRound)
		if len(cycles) == 0 {
			c := findCycle(adj)
			if c == nil {
				break
			}
			b.log.Debug("bounded cycle search missed a cycle, breaking it directly", "cycle", c)
			cycles = [][]int64{c}
		}

		for _, c := range cycles {
			i, ok := weakestEdge(edges, alive, byPair, c)
			if !ok {
				continue
			}
			alive[i] = false
			removed = append(removed, RemovedRelation{Relation: edges[i].rel, Cycle: c, Round: round})
			b.log.Info("removed prerequisite edge to break cycle",
				"source", edges[i].rel.Source,
				"target", edges[i].rel.Target,
				"confidence", edges[i].rel.Confidence,
				"cycle", c,
				"round", round)
		}
	}

	kept := make([]edge, 0, len(edges)-len(removed))
	for i, e := range edges {
		if alive[i] {
			kept = append(kept, e)
		}
	}
	return kept, removed
}

// weakestEdge picks the lowest-confidence live edge along cycle, breaking
// ties by source, target, then insertion order. It reports false when an
// earlier removal in the same round already broke the cycle.
func weakestEdge(edges []edge, alive []bool, byPair map[Edge][]int, cycle []int64) (int, bool) {
	best := -1
	for k := range cycle {
		pe := Edge{From: cycle[k], To: cycle[(k+1)%len(cycle)]}
		found := false
		for _, i := range byPair[pe] {
			if !alive[i] {
				continue
			}
			found = true
			if best < 0 || weaker(edges[i], edges[best]) {
				best = i
			}
		}
		if !found {
			return 0, false
		}
	}
	return best, best >= 0
}

func weaker(a, b edge) bool {
	if a.rel.Confidence != b.rel.Confidence {
		return a.rel.Confidence < b.rel.Confidence
	}
	if a.rel.Source != b.rel.Source {
		return a.rel.Source < b.rel.Source
	}
	if a.rel.Target != b.rel.Target {
		return a.rel.Target < b.rel.Target
	}
	return a.seq < b.seq
}
