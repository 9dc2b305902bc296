// Package planner turns a prerequisite graph and a learner's mastery snapshot
// into an ordered study path.
package planner

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/kpath/internal/kgraph"
	"github.com/abhisek/kpath/internal/knowledge"
	"github.com/abhisek/kpath/internal/logger"
)

// DependencyGraph is the read-only view of a graph the planner needs.
// *kgraph.Graph satisfies it.
type DependencyGraph interface {
	Points() []knowledge.KnowledgePoint
	PrerequisiteEdges() []kgraph.Edge
}

// Options carries optional planning metadata.
type Options struct {
	// Difficulty levels per knowledge point; missing points count as medium.
	Difficulty map[int64]knowledge.Difficulty
	// DifficultPoints flags points that get a remedial node when the
	// learner's status for them is difficult.
	DifficultPoints map[int64]bool
}

// Planner generates study paths.
type Planner interface {
	Generate(learnerID string, mastery map[int64]knowledge.MasteryStatus, g DependencyGraph, opts Options) Path
}

// DefaultPlanner orders unmastered points topologically, inserts remedial
// nodes, and sorts unordered runs from easy to hard.
type DefaultPlanner struct {
	log *logger.Logger
}

var _ Planner = (*DefaultPlanner)(nil)

// New creates a DefaultPlanner. A nil logger discards output.
func New(log *logger.Logger) *DefaultPlanner {
	return &DefaultPlanner{log: logger.OrNop(log)}
}

// Generate plans with a DefaultPlanner that does not log.
func Generate(learnerID string, mastery map[int64]knowledge.MasteryStatus, g DependencyGraph, opts Options) Path {
	return New(nil).Generate(learnerID, mastery, g, opts)
}

// block is a content node plus the remedial node that travels with it.
type block struct {
	id       int64
	remedial bool
}

// Generate returns a path that is a linear extension of the prerequisite
// order over g's unmastered points. It never fails: a residual cycle is
// ordered by a fallback and logged. Mastery entries for points outside g
// are ignored.
func (p *DefaultPlanner) Generate(learnerID string, mastery map[int64]knowledge.MasteryStatus, g DependencyGraph, opts Options) Path {
	path := Path{LearnerID: learnerID, Nodes: []PathNode{}}

	points := make(map[int64]knowledge.KnowledgePoint)
	var ids []int64
	for _, kp := range g.Points() {
		if knowledge.StatusOf(mastery, kp.ID) == knowledge.StatusMastered {
			continue
		}
		if _, dup := points[kp.ID]; dup {
			continue
		}
		points[kp.ID] = kp
		ids = append(ids, kp.ID)
	}
	if len(ids) == 0 {
		p.log.Debug("nothing left to plan", "learner", learnerID)
		return path
	}

	var edges []kgraph.Edge
	linked := make(map[kgraph.Edge]bool)
	for _, e := range g.PrerequisiteEdges() {
		_, okFrom := points[e.From]
		_, okTo := points[e.To]
		if okFrom && okTo {
			edges = append(edges, e)
			linked[e] = true
		}
	}

	order, stuck := kgraph.Kahn(ids, edges)
	if len(stuck) > 0 {
		rest := make([]int64, 0, len(stuck))
		for id := range stuck {
			rest = append(rest, id)
		}
		slices.SortFunc(rest, func(a, b int64) int {
			if c := cmp.Compare(stuck[a], stuck[b]); c != 0 {
				return c
			}
			return cmp.Compare(a, b)
		})
		p.log.Warn("prerequisite cycle in planning input, appending by in-degree",
			"learner", learnerID, "unordered", rest)
		order = append(order, rest...)
	}

	blocks := make([]block, len(order))
	for i, id := range order {
		blocks[i] = block{
			id:       id,
			remedial: opts.DifficultPoints[id] && knowledge.StatusOf(mastery, id) == knowledge.StatusDifficult,
		}
	}
	blocks = reorderByDifficulty(blocks, linked, opts.Difficulty)

	dependents := make(map[int64][]int64)
	for _, e := range edges {
		dependents[e.From] = append(dependents[e.From], e.To)
	}
	for _, b := range blocks {
		kp := points[b.id]
		if b.remedial {
			path.Nodes = append(path.Nodes, PathNode{
				KnowledgePointID: b.id,
				Reason:           RemedialReason(kp.Label()),
				Type:             NodeRemedial,
			})
		}
		node := PathNode{
			KnowledgePointID: b.id,
			Reason:           contentReason(kp, mastery, opts.Difficulty, dependents[b.id], points),
			Type:             NodeContent,
		}
		if kp.Span != nil {
			node.EstimatedMinutes = kp.Span.Duration() / 60
		}
		path.Nodes = append(path.Nodes, node)
	}
	path.Renumber()

	p.log.Debug("path generated", "learner", learnerID, "nodes", path.Len(), "skipped", len(g.Points())-len(ids))
	return path
}

// reorderByDifficulty stable-sorts each maximal run of consecutive blocks
// that share no prerequisite edge. A contiguous run without direct edges is
// an antichain of the partial order, since any path between two members
// would have to pass through a node placed between them.
func reorderByDifficulty(blocks []block, linked map[kgraph.Edge]bool, levels map[int64]knowledge.Difficulty) []block {
	out := slices.Clone(blocks)
	weight := func(b block) int { return knowledge.DifficultyOf(levels, b.id).Weight() }

	for start := 0; start < len(out); {
		end := start + 1
	extend:
		for end < len(out) {
			next := out[end].id
			for _, b := range out[start:end] {
				if linked[kgraph.Edge{From: b.id, To: next}] || linked[kgraph.Edge{From: next, To: b.id}] {
					break extend
				}
			}
			end++
		}
		slices.SortStableFunc(out[start:end], func(a, b block) int {
			return cmp.Compare(weight(a), weight(b))
		})
		start = end
	}
	return out
}

// RemedialReason is the reason attached to a remedial node for name.
func RemedialReason(name string) string {
	return "flagged difficult, remedial required before " + name
}

func contentReason(kp knowledge.KnowledgePoint, mastery map[int64]knowledge.MasteryStatus,
	levels map[int64]knowledge.Difficulty, dependents []int64, points map[int64]knowledge.KnowledgePoint) string {
	var phrase string
	switch knowledge.StatusOf(mastery, kp.ID) {
	case knowledge.StatusDifficult:
		phrase = "difficult point, focused study"
	case knowledge.StatusLearning:
		phrase = "continue learning"
	default:
		phrase = "new knowledge point"
	}
	reason := fmt.Sprintf("%s (difficulty: %s)", phrase, knowledge.DifficultyOf(levels, kp.ID))
	if len(dependents) == 0 {
		return reason
	}
	names := make([]string, len(dependents))
	for i, id := range dependents {
		names[i] = points[id].Label()
	}
	return reason + "; prerequisite of " + strings.Join(names, ", ")
}
