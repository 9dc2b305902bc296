package kgraph

import "slices"

// Cycle search cost grows exponentially with the number of elementary cycles,
// so Build caps each round at DefaultMaxCyclesPerRound. A depth bound set
// with WithMaxCycleLength can also miss cycles; Build then falls back to
// single-cycle DFS to finish.

// adjacency builds a sorted successor list from deduplicated edges.
func adjacency(edges []Edge) map[int64][]int64 {
	adj := make(map[int64][]int64)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
		if _, ok := adj[e.To]; !ok {
			adj[e.To] = nil
		}
	}
	for id := range adj {
		slices.Sort(adj[id])
	}
	return adj
}

// enumerateCycles lists the elementary cycles of adj. Each cycle is reported
// once, rotated to start at its smallest node. Cycles are grouped by
// strongly connected component, then ordered by starting node.
// maxLen > 0 skips cycles longer than maxLen; maxCycles > 0 stops after
// that many cycles.
func enumerateCycles(adj map[int64][]int64, maxLen, maxCycles int) [][]int64 {
	var cycles [][]int64
	for _, comp := range stronglyConnected(adj) {
		if len(comp) == 1 && !slices.Contains(adj[comp[0]], comp[0]) {
			continue
		}
		member := make(map[int64]bool, len(comp))
		for _, id := range comp {
			member[id] = true
		}
		for _, start := range comp {
			s := cycleSearch{
				adj:       adj,
				member:    member,
				start:     start,
				maxLen:    maxLen,
				onPath:    map[int64]bool{start: true},
				path:      []int64{start},
				maxCycles: maxCycles,
				found:     len(cycles),
			}
			s.walk(start)
			cycles = append(cycles, s.cycles...)
			if maxCycles > 0 && len(cycles) >= maxCycles {
				return cycles[:maxCycles]
			}
		}
	}
	return cycles
}

type cycleSearch struct {
	adj       map[int64][]int64
	member    map[int64]bool
	start     int64
	maxLen    int
	maxCycles int
	found     int
	onPath    map[int64]bool
	path      []int64
	cycles    [][]int64
}

func (s *cycleSearch) full() bool {
	return s.maxCycles > 0 && s.found+len(s.cycles) >= s.maxCycles
}

// walk extends the current path through nodes larger than start, which
// guarantees each cycle is found exactly once, from its smallest node.
func (s *cycleSearch) walk(v int64) {
	for _, w := range s.adj[v] {
		if s.full() {
			return
		}
		if !s.member[w] {
			continue
		}
		if w == s.start {
			s.cycles = append(s.cycles, slices.Clone(s.path))
			continue
		}
		if w < s.start || s.onPath[w] {
			continue
		}
		if s.maxLen > 0 && len(s.path) >= s.maxLen {
			continue
		}
		s.onPath[w] = true
		s.path = append(s.path, w)
		s.walk(w)
		s.path = s.path[:len(s.path)-1]
		delete(s.onPath, w)
	}
}

// stronglyConnected returns the strongly connected components of adj using
// Tarjan's algorithm. Members of each component are sorted and components
// are ordered by their smallest member.
func stronglyConnected(adj map[int64][]int64) [][]int64 {
	t := tarjan{
		adj:     adj,
		index:   make(map[int64]int, len(adj)),
		lowlink: make(map[int64]int, len(adj)),
		onStack: make(map[int64]bool, len(adj)),
	}
	for _, id := range sortedKeys(adj) {
		if _, seen := t.index[id]; !seen {
			t.connect(id)
		}
	}
	for _, comp := range t.comps {
		slices.Sort(comp)
	}
	slices.SortFunc(t.comps, func(a, b []int64) int {
		switch {
		case a[0] < b[0]:
			return -1
		case a[0] > b[0]:
			return 1
		}
		return 0
	})
	return t.comps
}

type tarjan struct {
	adj     map[int64][]int64
	next    int
	index   map[int64]int
	lowlink map[int64]int
	onStack map[int64]bool
	stack   []int64
	comps   [][]int64
}

func (t *tarjan) connect(v int64) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.adj[v] {
		if _, seen := t.index[w]; !seen {
			t.connect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] == t.index[v] {
		var comp []int64
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		t.comps = append(t.comps, comp)
	}
}

// findCycle returns one directed cycle of adj found by depth-first search,
// or nil when adj is acyclic. It runs in linear time and ignores any depth
// bound, so cycle resolution always terminates with an acyclic graph.
func findCycle(adj map[int64][]int64) []int64 {
	const (
		white = iota
		grey
		black
	)
	color := make(map[int64]int, len(adj))
	var stack []int64
	var cycle []int64

	var visit func(v int64) bool
	visit = func(v int64) bool {
		color[v] = grey
		stack = append(stack, v)
		for _, w := range adj[v] {
			switch color[w] {
			case grey:
				i := slices.Index(stack, w)
				cycle = slices.Clone(stack[i:])
				return true
			case white:
				if visit(w) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[v] = black
		return false
	}

	for _, id := range sortedKeys(adj) {
		if color[id] == white && visit(id) {
			return rotateToMin(cycle)
		}
	}
	return nil
}

// rotateToMin rotates a cycle so it starts at its smallest node.
func rotateToMin(cycle []int64) []int64 {
	if len(cycle) == 0 {
		return cycle
	}
	i := slices.Index(cycle, slices.Min(cycle))
	return append(slices.Clone(cycle[i:]), cycle[:i]...)
}
