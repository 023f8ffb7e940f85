package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	calmGreen  = lipgloss.Color("#39D353")
	calmAmber  = lipgloss.Color("#E3B341")
	calmRed    = lipgloss.Color("#F85149")
	calmCyan   = lipgloss.Color("#58A6FF")
	calmViolet = lipgloss.Color("#BC8CFF")
	dimGrey    = lipgloss.Color("#8B949E")
)

// styles holds the lipgloss styles bound to one output renderer
type styles struct {
	title     lipgloss.Style
	subtitle  lipgloss.Style
	success   lipgloss.Style
	duplicate lipgloss.Style
	failure   lipgloss.Style
	label     lipgloss.Style
	value     lipgloss.Style
	closing   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, color bool) styles {
	if !color {
		plain := r.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		title:     r.NewStyle().Foreground(calmCyan).Bold(true),
		subtitle:  r.NewStyle().Foreground(dimGrey).Italic(true),
		success:   r.NewStyle().Foreground(calmGreen),
		duplicate: r.NewStyle().Foreground(calmAmber),
		failure:   r.NewStyle().Foreground(calmRed),
		label:     r.NewStyle().Foreground(calmCyan).Bold(true),
		value:     r.NewStyle().Foreground(calmAmber),
		closing:   r.NewStyle().Foreground(calmViolet).Bold(true),
	}
}
