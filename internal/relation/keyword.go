package relation

import (
	"strings"

	"github.com/abhisek/kpath/internal/knowledge"
)

// KeywordSource derives relations from keyword, name and summary overlap
// plus the order of the points' spans.
type KeywordSource struct {
	// KeywordOverlap is the keyword Jaccard index at which points are related.
	KeywordOverlap float64
	// SummarySimilarity is the summary word Jaccard index at which points
	// are related.
	SummarySimilarity float64
	// PrerequisiteConfidence scales the confidence of prerequisite candidates.
	PrerequisiteConfidence float64
	// ContainsRatio is the share of b's keywords that must appear in a for a
	// to contain b.
	ContainsRatio float64
	// MentionKeywords is how many of a's leading keywords are searched for
	// in b's text.
	MentionKeywords int
}

var _ Source = KeywordSource{}

// DefaultKeywordSource returns a KeywordSource with the standard thresholds.
func DefaultKeywordSource() KeywordSource {
	return KeywordSource{
		KeywordOverlap:         0.3,
		SummarySimilarity:      0.6,
		PrerequisiteConfidence: 0.8,
		ContainsRatio:          0.5,
		MentionKeywords:        3,
	}
}

// Relate proposes:
//   - prerequisite when a's span ends before b's starts and b's text mentions
//     one of a's leading keywords or a's name;
//   - related, once per unordered pair (from the smaller ID), when keyword or
//     summary overlap passes its threshold;
//   - contains when enough of b's keywords appear in a.
func (s KeywordSource) Relate(a, b knowledge.KnowledgePoint) []Candidate {
	var out []Candidate
	kw := jaccard(a.Keywords, b.Keywords)

	if a.Span != nil && b.Span != nil && a.Span.End <= b.Span.Start && s.mentions(b, a) {
		out = append(out, Candidate{
			Kind:       knowledge.RelationPrerequisite,
			Confidence: min((kw*0.5+0.5)*s.PrerequisiteConfidence, 1),
		})
	}

	if a.ID < b.ID {
		sum := jaccard(strings.Fields(a.Summary), strings.Fields(b.Summary))
		if kw >= s.KeywordOverlap || sum >= s.SummarySimilarity {
			out = append(out, Candidate{Kind: knowledge.RelationRelated, Confidence: (kw + sum) / 2})
		}
	}

	if coverage(a.Keywords, b.Keywords) >= s.ContainsRatio {
		out = append(out, Candidate{Kind: knowledge.RelationContains, Confidence: kw})
	}
	return out
}

// mentions reports whether b's name or summary refers to a.
func (s KeywordSource) mentions(b, a knowledge.KnowledgePoint) bool {
	text := b.Summary + " " + b.Name
	lead := a.Keywords
	if s.MentionKeywords >= 0 && len(lead) > s.MentionKeywords {
		lead = lead[:s.MentionKeywords]
	}
	for _, k := range lead {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return a.Name != "" && strings.Contains(text, a.Name)
}

func set(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	sa, sb := set(a), set(b)
	inter := 0
	for w := range sa {
		if _, ok := sb[w]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// coverage is the share of b's distinct words present in a.
func coverage(a, b []string) float64 {
	sb := set(b)
	if len(sb) == 0 {
		return 0
	}
	sa := set(a)
	inter := 0
	for w := range sb {
		if _, ok := sa[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(sb))
}
