package planner

import (
	"fmt"
	"slices"
)

// NodeType distinguishes catalog content from inserted remedial material.
type NodeType string

const (
	NodeContent  NodeType = "content"
	NodeRemedial NodeType = "remedial"
)

// ParseNodeType converts a string to a NodeType.
func ParseNodeType(s string) (NodeType, error) {
	switch t := NodeType(s); t {
	case NodeContent, NodeRemedial:
		return t, nil
	}
	return "", fmt.Errorf("unknown node type: %q", s)
}

// Study time estimates, in minutes.
const (
	RemedialMinutes       = 12.0
	DefaultContentMinutes = 15.0
)

// PathNode is one step of a study path. A remedial node refers to the content
// node of the same knowledge point that follows it.
type PathNode struct {
	KnowledgePointID int64    `json:"knowledge_point_id"`
	Order            int      `json:"order"`
	Reason           string   `json:"reason"`
	Type             NodeType `json:"node_type"`
	EstimatedMinutes float64  `json:"estimated_minutes,omitempty"`
}

// Path is an ordered study sequence for one learner.
type Path struct {
	LearnerID string     `json:"learner_id"`
	Nodes     []PathNode `json:"nodes"`
}

// Len returns the number of nodes.
func (p Path) Len() int {
	return len(p.Nodes)
}

// Clone returns a deep copy of p.
func (p Path) Clone() Path {
	return Path{LearnerID: p.LearnerID, Nodes: slices.Clone(p.Nodes)}
}

// Index returns the position of the first node for kp with the given type,
// or -1.
func (p Path) Index(kp int64, t NodeType) int {
	return slices.IndexFunc(p.Nodes, func(n PathNode) bool {
		return n.KnowledgePointID == kp && n.Type == t
	})
}

// HasRemedialBefore reports whether a remedial node for kp precedes kp's
// content node.
func (p Path) HasRemedialBefore(kp int64) bool {
	c := p.Index(kp, NodeContent)
	r := p.Index(kp, NodeRemedial)
	return c >= 0 && r >= 0 && r < c
}

// ContentIDs returns the knowledge point IDs of content nodes in path order.
func (p Path) ContentIDs() []int64 {
	var ids []int64
	for _, n := range p.Nodes {
		if n.Type == NodeContent {
			ids = append(ids, n.KnowledgePointID)
		}
	}
	return ids
}

// Renumber assigns Order 1..N in sequence order.
func (p *Path) Renumber() {
	for i := range p.Nodes {
		p.Nodes[i].Order = i + 1
	}
}

// Validate checks that orders are exactly 1..N, node types are known, and
// every remedial node is followed by its content node.
func (p Path) Validate() error {
	for i, n := range p.Nodes {
		if n.Order != i+1 {
			return fmt.Errorf("node %d has order %d, want %d", i, n.Order, i+1)
		}
		switch n.Type {
		case NodeContent:
		case NodeRemedial:
			rest := Path{Nodes: p.Nodes[i+1:]}
			if rest.Index(n.KnowledgePointID, NodeContent) < 0 {
				return fmt.Errorf("remedial node %d for knowledge point %d has no following content node", n.Order, n.KnowledgePointID)
			}
		default:
			return fmt.Errorf("node %d has unknown type %q", n.Order, n.Type)
		}
	}
	return nil
}

// Suggestion is the next recommended study step.
type Suggestion struct {
	KnowledgePointID int64    `json:"knowledge_point_id"`
	Order            int      `json:"order"`
	Type             NodeType `json:"node_type"`
	Reason           string   `json:"reason"`
	EstimatedMinutes float64  `json:"estimated_minutes"`
}

// Next returns the node at position (0-based count of completed steps).
// It reports false past the end of the path.
func (p Path) Next(position int) (Suggestion, bool) {
	if position < 0 || position >= len(p.Nodes) {
		return Suggestion{}, false
	}
	n := p.Nodes[position]
	s := Suggestion{
		KnowledgePointID: n.KnowledgePointID,
		Order:            n.Order,
		Type:             n.Type,
		Reason:           n.Reason,
		EstimatedMinutes: n.EstimatedMinutes,
	}
	switch {
	case n.Type == NodeRemedial:
		s.EstimatedMinutes = RemedialMinutes
	case s.EstimatedMinutes <= 0:
		s.EstimatedMinutes = DefaultContentMinutes
	}
	if s.Reason == "" {
		s.Reason = "continue along the path"
	}
	return s, true
}
