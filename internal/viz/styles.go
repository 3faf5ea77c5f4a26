package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	canvas lipgloss.Style
	stats  lipgloss.Style
	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	on     lipgloss.Style
	off    lipgloss.Style
	alert  lipgloss.Style
	graph  lipgloss.Style
	help   lipgloss.Style
	bar    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		canvas: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted),
		stats: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(0, 2).
			Width(44),
		header: lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		label:  lipgloss.NewStyle().Foreground(t.Muted).Width(10),
		value:  lipgloss.NewStyle().Foreground(t.Text),
		on:     lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		off:    lipgloss.NewStyle().Foreground(t.Muted),
		alert:  lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		graph:  lipgloss.NewStyle().Foreground(t.Accent),
		help:   lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		bar:    lipgloss.NewStyle().Foreground(t.Warning),
	}
}

// thrustBar renders |v|/limit as a fixed-width bar. Thruster commands are
// non-positive, so the magnitude is what matters.
func (s styles) thrustBar(v, limit float64, width int) string {
	ratio := 0.0
	if limit != 0 {
		ratio = v / limit
	}
	if ratio < 0 {
		ratio = -ratio
	}
	filled := int(ratio*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	return s.bar.Render(strings.Repeat("█", filled)) + s.off.Render(strings.Repeat("░", width-filled))
}

func (s styles) flag(on bool, yes, no string) string {
	if on {
		return s.on.Render(yes)
	}
	return s.off.Render(no)
}
