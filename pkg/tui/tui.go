/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

// Package tui renders a live status screen for the negotiation lifecycle and
// ICE connectivity. It is a passive view: all state arrives as messages from
// the orchestrator and the connectivity monitor.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model is the Bubble Tea model for the connection status screen.
type Model struct {
	spinner   spinner.Model
	model     string
	phase     string
	attemptID uint64
	iceState  string
	lastError error
	width     int
	height    int
}

// NewModel creates the status screen for a session against the given model id.
func NewModel(model string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		spinner:  s,
		model:    model,
		phase:    "Idle",
		iceState: "New",
		width:    80,
		height:   24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case PhaseMsg:
		m.attemptID = msg.AttemptID
		m.phase = msg.Phase
		return m, nil

	case ICEStateMsg:
		m.iceState = msg.State
		return m, nil

	case ErrorMsg:
		m.lastError = msg.Err
		return m, nil

	case QuitMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the status screen.
func (m Model) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginTop(1).
		MarginBottom(1)

	b.WriteString(titleStyle.Render("🎙 VoicePipe - Realtime Voice Bridge"))
	b.WriteString("\n\n")

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("7"))

	b.WriteString(infoStyle.Render(fmt.Sprintf("Model: %s", m.model)))
	b.WriteString("\n")
	if m.attemptID > 0 {
		b.WriteString(infoStyle.Render(fmt.Sprintf("Attempt: %d", m.attemptID)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(statusStyle.Render(fmt.Sprintf("Negotiation: %s", m.phase)))
	b.WriteString("\n")
	b.WriteString("  ")
	b.WriteString(statusStyle.Render(fmt.Sprintf("ICE: %s", m.iceState)))
	b.WriteString("\n\n")

	if m.lastError != nil {
		errStyle := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Foreground(lipgloss.Color("9")).
			Padding(0, 1).
			Width(minInt(m.width-4, 78))

		b.WriteString(errStyle.Render(m.lastError.Error()))
		b.WriteString("\n\n")
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)

	b.WriteString(helpStyle.Render("Press q to quit."))
	b.WriteString("\n")

	return b.String()
}

// Messages

// PhaseMsg reports a negotiation phase transition.
type PhaseMsg struct {
	AttemptID uint64
	Phase     string
}

// ICEStateMsg reports an ICE connectivity transition.
type ICEStateMsg struct {
	State string
}

// ErrorMsg surfaces a failure on the status screen.
type ErrorMsg struct {
	Err error
}

// QuitMsg shuts the screen down from outside (e.g. on context cancel).
type QuitMsg struct{}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
