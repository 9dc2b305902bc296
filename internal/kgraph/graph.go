package kgraph

import (
	"cmp"
	"slices"

	"github.com/abhisek/kpath/internal/knowledge"
)

// Edge is a deduplicated prerequisite edge: From must be learned before To.
type Edge struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// RemovedRelation records a prerequisite relation dropped to break a cycle.
type RemovedRelation struct {
	Relation knowledge.Relation `json:"relation"`
	Cycle    []int64            `json:"cycle"`
	Round    int                `json:"round"`
}

type edge struct {
	rel knowledge.Relation
	seq int
}

// Graph holds knowledge points and their relations with precomputed
// prerequisite indices. A Graph returned by Build is read-only and its
// prerequisite subgraph is acyclic.
type Graph struct {
	points      []knowledge.KnowledgePoint
	byID        map[int64]int
	edges       []edge
	removed     []RemovedRelation
	prereqs     map[int64][]int64
	dependentOf map[int64][]int64
}

// newGraph indexes points (already deduplicated) and retained edges.
func newGraph(points []knowledge.KnowledgePoint, edges []edge, removed []RemovedRelation) *Graph {
	g := &Graph{
		points:      points,
		byID:        make(map[int64]int, len(points)),
		edges:       edges,
		removed:     removed,
		prereqs:     make(map[int64][]int64),
		dependentOf: make(map[int64][]int64),
	}
	slices.SortFunc(g.points, func(a, b knowledge.KnowledgePoint) int { return cmp.Compare(a.ID, b.ID) })
	for i := range g.points {
		g.byID[g.points[i].ID] = i
	}
	for _, e := range g.PrerequisiteEdges() {
		g.prereqs[e.To] = append(g.prereqs[e.To], e.From)
		g.dependentOf[e.From] = append(g.dependentOf[e.From], e.To)
	}
	return g
}

// Len returns the number of knowledge points.
func (g *Graph) Len() int {
	return len(g.points)
}

// Points returns all knowledge points in ascending ID order.
func (g *Graph) Points() []knowledge.KnowledgePoint {
	out := make([]knowledge.KnowledgePoint, len(g.points))
	for i, kp := range g.points {
		out[i] = kp.Clone()
	}
	return out
}

// IDs returns all knowledge point IDs in ascending order.
func (g *Graph) IDs() []int64 {
	ids := make([]int64, len(g.points))
	for i, kp := range g.points {
		ids[i] = kp.ID
	}
	return ids
}

// Point returns the knowledge point with the given ID.
func (g *Graph) Point(id int64) (knowledge.KnowledgePoint, bool) {
	i, ok := g.byID[id]
	if !ok {
		return knowledge.KnowledgePoint{}, false
	}
	return g.points[i].Clone(), true
}

// Relations returns every retained relation in insertion order.
func (g *Graph) Relations() []knowledge.Relation {
	out := make([]knowledge.Relation, len(g.edges))
	for i, e := range g.edges {
		out[i] = e.rel
	}
	return out
}

// RelationsOf returns the retained relations of one kind in insertion order.
func (g *Graph) RelationsOf(kind knowledge.RelationKind) []knowledge.Relation {
	var out []knowledge.Relation
	for _, e := range g.edges {
		if e.rel.Kind == kind {
			out = append(out, e.rel)
		}
	}
	return out
}

// PrerequisiteEdges returns the distinct prerequisite edges sorted by (From, To).
func (g *Graph) PrerequisiteEdges() []Edge {
	return prerequisiteEdges(g.edges)
}

// Prerequisites returns the direct prerequisites of id in ascending order.
func (g *Graph) Prerequisites(id int64) []int64 {
	return slices.Clone(g.prereqs[id])
}

// Dependents returns the knowledge points that directly require id, ascending.
func (g *Graph) Dependents(id int64) []int64 {
	return slices.Clone(g.dependentOf[id])
}

// Roots returns the IDs of points with no prerequisite, ascending.
func (g *Graph) Roots() []int64 {
	var roots []int64
	for _, kp := range g.points {
		if len(g.prereqs[kp.ID]) == 0 {
			roots = append(roots, kp.ID)
		}
	}
	return roots
}

// Removed returns the prerequisite relations dropped during cycle resolution,
// in removal order.
func (g *Graph) Removed() []RemovedRelation {
	out := make([]RemovedRelation, len(g.removed))
	for i, r := range g.removed {
		out[i] = RemovedRelation{Relation: r.Relation, Cycle: slices.Clone(r.Cycle), Round: r.Round}
	}
	return out
}

// Cycles enumerates the elementary cycles of the prerequisite subgraph.
// It is empty for any graph produced by Build.
func (g *Graph) Cycles() [][]int64 {
	return enumerateCycles(adjacency(g.PrerequisiteEdges()), 0, 0)
}

// TopologicalOrder returns all point IDs in a linear extension of the
// prerequisite order, choosing the smallest ready ID at each step.
func (g *Graph) TopologicalOrder() []int64 {
	order, stuck := Kahn(g.IDs(), g.PrerequisiteEdges())
	// Unreachable for a built graph; keep every node in the result regardless.
	return append(order, sortedKeys(stuck)...)
}

// Summary is a serializable overview of a graph.
type Summary struct {
	Nodes             int               `json:"nodes"`
	Relations         int               `json:"relations"`
	ByKind            map[string]int    `json:"by_kind"`
	PrerequisiteEdges []Edge            `json:"prerequisite_edges"`
	Removed           []RemovedRelation `json:"removed"`
	Order             []int64           `json:"order"`
}

// Summarize returns a Summary of g.
func (g *Graph) Summarize() Summary {
	byKind := make(map[string]int, 3)
	for _, e := range g.edges {
		byKind[string(e.rel.Kind)]++
	}
	return Summary{
		Nodes:             len(g.points),
		Relations:         len(g.edges),
		ByKind:            byKind,
		PrerequisiteEdges: g.PrerequisiteEdges(),
		Removed:           g.Removed(),
		Order:             g.TopologicalOrder(),
	}
}

// Kahn computes a topological order of nodes under edges, always taking the
// smallest ready ID next. Edges with an endpoint outside nodes are ignored.
// Nodes that cannot be ordered because they sit on or behind a cycle are
// returned in stuck, mapped to their remaining in-degree.
func Kahn(nodes []int64, edges []Edge) (order []int64, stuck map[int64]int) {
	inDegree := make(map[int64]int, len(nodes))
	for _, id := range nodes {
		inDegree[id] = 0
	}
	out := make(map[int64][]int64)
	seen := make(map[Edge]bool, len(edges))
	for _, e := range edges {
		if seen[e] {
			continue
		}
		if _, ok := inDegree[e.From]; !ok {
			continue
		}
		if _, ok := inDegree[e.To]; !ok {
			continue
		}
		seen[e] = true
		out[e.From] = append(out[e.From], e.To)
		inDegree[e.To]++
	}

	var ready []int64
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	order = make([]int64, 0, len(inDegree))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, dep := range out[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				pos, _ := slices.BinarySearch(ready, dep)
				ready = slices.Insert(ready, pos, dep)
			}
		}
		delete(inDegree, id)
	}

	if len(inDegree) > 0 {
		stuck = inDegree
	}
	return order, stuck
}

func prerequisiteEdges(edges []edge) []Edge {
	seen := make(map[Edge]bool)
	var out []Edge
	for _, e := range edges {
		if e.rel.Kind != knowledge.RelationPrerequisite {
			continue
		}
		pe := Edge{From: e.rel.Source, To: e.rel.Target}
		if seen[pe] {
			continue
		}
		seen[pe] = true
		out = append(out, pe)
	}
	slices.SortFunc(out, compareEdges)
	return out
}

func compareEdges(a, b Edge) int {
	if c := cmp.Compare(a.From, b.From); c != 0 {
		return c
	}
	return cmp.Compare(a.To, b.To)
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
