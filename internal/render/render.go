// Package render formats graphs, paths and logs for the terminal.
package render

import (
	"fmt"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/kpath/internal/adjuster"
	"github.com/abhisek/kpath/internal/kgraph"
	"github.com/abhisek/kpath/internal/knowledge"
	"github.com/abhisek/kpath/internal/planner"
	"github.com/abhisek/kpath/internal/store"
)

// Namer resolves knowledge point names. *kgraph.Graph implements it.
type Namer interface {
	Point(id int64) (knowledge.KnowledgePoint, bool)
}

func label(n Namer, id int64) string {
	if n != nil {
		if kp, ok := n.Point(id); ok {
			return kp.Label()
		}
	}
	return knowledge.KnowledgePoint{ID: id}.Label()
}

const rule = "\u2500"

// Path renders p as a numbered list. names may be nil.
func Path(t Theme, p planner.Path, names Namer) string {
	var b strings.Builder
	b.WriteString(t.Title.Render(fmt.Sprintf("Study path for %s", p.LearnerID)))
	b.WriteString("\n")
	if p.Len() == 0 {
		b.WriteString(t.Hint.Render("Nothing left to study."))
		return b.String()
	}

	var total float64
	for _, n := range p.Nodes {
		style := t.Content
		tag := "  "
		if n.Type == planner.NodeRemedial {
			style = t.Remedial
			tag = "R "
		}
		line := fmt.Sprintf("%3d. %s%-28s", n.Order, tag, label(names, n.KnowledgePointID))
		b.WriteString(style.Render(line))
		b.WriteString("  ")
		b.WriteString(t.Hint.Render(n.Reason))
		b.WriteString("\n")
		if s, ok := p.Next(n.Order - 1); ok {
			total += s.EstimatedMinutes
		}
	}
	b.WriteString(t.Hint.Render(fmt.Sprintf("%d steps, about %.0f min", p.Len(), total)))
	return b.String()
}

// Suggestion renders the next recommended step.
func Suggestion(t Theme, s planner.Suggestion, names Namer) string {
	kind := "Study"
	if s.Type == planner.NodeRemedial {
		kind = "Review"
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		t.Heading.Render(fmt.Sprintf("Next: %s %s", kind, label(names, s.KnowledgePointID))),
		t.Hint.Render(fmt.Sprintf("step %d, about %.0f min", s.Order, s.EstimatedMinutes)),
		s.Reason,
	)
	return t.Card.Render(body)
}

// Adjustment renders the outcome of one event.
func Adjustment(t Theme, res adjuster.Result) string {
	head := "Path unchanged"
	if res.Changed {
		head = "Path adjusted"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		t.Heading.Render(head),
		res.Reason,
		t.Hint.Render(res.NextAction),
	)
}

// Graph renders a graph summary: counts, removed edges and study order.
func Graph(t Theme, unit string, g *kgraph.Graph) string {
	s := g.Summarize()
	var b strings.Builder
	b.WriteString(t.Title.Render(fmt.Sprintf("Graph %s", unit)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d knowledge points, %d relations", s.Nodes, s.Relations)
	kinds := make([]string, 0, len(s.ByKind))
	for _, k := range knowledge.AllRelationKinds() {
		if n := s.ByKind[string(k)]; n > 0 {
			kinds = append(kinds, fmt.Sprintf("%d %s", n, k))
		}
	}
	if len(kinds) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(kinds, ", "))
	}
	b.WriteString("\n")

	if len(s.Removed) > 0 {
		b.WriteString("\n")
		b.WriteString(t.Heading.Render("Removed to break cycles"))
		b.WriteString("\n")
		for _, r := range s.Removed {
			cycle := make([]string, len(r.Cycle))
			for i, id := range r.Cycle {
				cycle[i] = label(g, id)
			}
			line := fmt.Sprintf("  %s -> %s (%.2f), cycle %s, round %d",
				label(g, r.Relation.Source), label(g, r.Relation.Target),
				r.Relation.Confidence, strings.Join(cycle, " > "), r.Round)
			b.WriteString(t.Removed.Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(t.Heading.Render("Order"))
	b.WriteString("\n")
	for i, id := range s.Order {
		fmt.Fprintf(&b, "%3d. %s", i+1, label(g, id))
		if pre := g.Prerequisites(id); len(pre) > 0 {
			names := make([]string, len(pre))
			for j, p := range pre {
				names[j] = label(g, p)
			}
			b.WriteString(t.Hint.Render("  after " + strings.Join(names, ", ")))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// History renders logged adjustments as a table.
func History(t Theme, entries []store.Adjustment) string {
	if len(entries) == 0 {
		return t.Hint.Render("No adjustments recorded.")
	}
	var b strings.Builder
	b.WriteString(t.Heading.Render(fmt.Sprintf("%-5s  %-19s  %-18s  %-6s  %-7s  %s",
		"Seq", "Timestamp", "Event", "KP", "Length", "Reason")))
	b.WriteString("\n")
	b.WriteString(strings.Repeat(rule, 90))
	for _, a := range entries {
		length := fmt.Sprintf("%d", a.NewLength)
		if a.Changed {
			length = fmt.Sprintf("%d>%d", a.OldLength, a.NewLength)
		}
		fmt.Fprintf(&b, "\n%-5d  %-19s  %-18s  %-6d  %-7s  %s",
			a.Sequence,
			a.Timestamp.Local().Format("2006-01-02 15:04:05"),
			a.Kind,
			a.KnowledgePointID,
			length,
			a.Reason)
	}
	return b.String()
}

// Mastery renders a learner's mastery statuses in ID order.
func Mastery(t Theme, learnerID string, statuses map[int64]knowledge.MasteryStatus, names Namer) string {
	var b strings.Builder
	b.WriteString(t.Title.Render(fmt.Sprintf("Mastery for %s", learnerID)))
	if len(statuses) == 0 {
		b.WriteString("\n")
		b.WriteString(t.Hint.Render("No mastery recorded."))
		return b.String()
	}
	ids := make([]int64, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s := statuses[id]
		fmt.Fprintf(&b, "\n%6d  %-28s  %s", id, label(names, id), t.status(string(s)).Render(s.Label()))
	}
	return b.String()
}
