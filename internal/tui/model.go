// Package tui renders a generation run's progress in the terminal.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"prompt2web_server/internal/generation"
)

// Run is the part of an orchestrator the view drives.
type Run interface {
	Snapshot() generation.Snapshot
	Stop() bool
}

type snapshotMsg generation.Snapshot

// Model follows one run until it reaches a terminal state.
type Model struct {
	run     Run
	events  <-chan generation.Snapshot
	snap    generation.Snapshot
	spinner spinner.Model
	style   Styles
	done    bool
}

// New builds a view over run, fed by events (usually from Orchestrator.Subscribe).
func New(run Run, events <-chan generation.Snapshot) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &Model{
		run:     run,
		events:  events,
		snap:    run.Snapshot(),
		spinner: sp,
		style:   NewStyles(),
	}
}

// Final is the last snapshot the view saw.
func (m *Model) Final() generation.Snapshot {
	return m.snap
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForSnapshot())
}

func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.events
		if !ok {
			return tea.Quit()
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case snapshotMsg:
		m.snap = generation.Snapshot(msg)
		if m.snap.State.Terminal() {
			m.done = true
			return m, tea.Quit
		}
		return m, m.waitForSnapshot()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.run.Stop() {
				m.done = true
				return m, tea.Quit
			}
			// the cancelled snapshot arrives through events and ends the program
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.style.Header.Render("Prompt2Web"))
	b.WriteString("\n\n")

	for i, step := range m.snap.Steps {
		switch {
		case m.snap.State == generation.StateCompleted || i < m.snap.StepIndex:
			b.WriteString(m.style.Done.Render("✓ " + step))
		case i == m.snap.StepIndex:
			b.WriteString(m.style.Current.Render(m.spinner.View() + " " + step))
		default:
			b.WriteString(m.style.Step.Render("  " + step))
		}
		b.WriteString("\n")
	}

	switch m.snap.State {
	case generation.StateCompleted:
		b.WriteString("\n" + m.style.Success.Render(m.snap.CurrentStep) + "\n")
	case generation.StateFailed:
		b.WriteString("\n" + m.style.Error.Render("Generation failed: "+m.snap.Error) + "\n")
	case generation.StateCancelled:
		b.WriteString("\n" + m.style.Subtle.Render(m.snap.Notice) + "\n")
	default:
		if len(m.snap.Steps) == 0 || m.snap.StepIndex == generation.NoStep {
			b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), m.snap.CurrentStep))
		}
		if !m.done {
			b.WriteString("\n" + m.style.Help.Render("ctrl+c to stop") + "\n")
		}
	}
	return b.String()
}
