package tui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Header  lipgloss.Style
	Step    lipgloss.Style
	Current lipgloss.Style
	Done    lipgloss.Style
	Help    lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Subtle  lipgloss.Style
}

func NewStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AD8CFF")).
			Bold(true).
			Padding(0, 1),

		Step: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777")).
			Padding(0, 1),

		Current: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00E6B8")).
			Bold(true).
			Padding(0, 1),

		Done: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3DDC97")).
			Padding(0, 1),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777")).
			Faint(true),

		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5C5C")).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3DDC97")).
			Bold(true),

		Subtle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")),
	}
}
