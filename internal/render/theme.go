package render

import (
	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Theme is the set of styles a rendering uses.
type Theme struct {
	Title    lipgloss.Style
	Heading  lipgloss.Style
	Hint     lipgloss.Style
	Content  lipgloss.Style
	Remedial lipgloss.Style
	Removed  lipgloss.Style
	Status   map[string]lipgloss.Style
	Card     lipgloss.Style
}

// DefaultTheme returns the colored theme.
func DefaultTheme() Theme {
	return Theme{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary),
		Heading: lipgloss.NewStyle().
			Bold(true).
			Foreground(Secondary),
		Hint: lipgloss.NewStyle().
			Foreground(TextDim).
			Italic(true),
		Content: lipgloss.NewStyle(),
		Remedial: lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true),
		Removed: lipgloss.NewStyle().
			Foreground(Error),
		Status: map[string]lipgloss.Style{
			"mastered":  lipgloss.NewStyle().Foreground(Success).Bold(true),
			"difficult": lipgloss.NewStyle().Foreground(Error).Bold(true),
			"learning":  lipgloss.NewStyle().Foreground(Secondary),
			"unlearned": lipgloss.NewStyle().Foreground(TextDim),
		},
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1),
	}
}

// PlainTheme returns a theme without color or borders.
func PlainTheme() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Title:    plain,
		Heading:  plain,
		Hint:     plain,
		Content:  plain,
		Remedial: plain,
		Removed:  plain,
		Status:   map[string]lipgloss.Style{},
		Card:     plain,
	}
}

func (t Theme) status(s string) lipgloss.Style {
	if st, ok := t.Status[s]; ok {
		return st
	}
	return t.Content
}
