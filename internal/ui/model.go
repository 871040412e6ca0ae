// ABOUTME: Bubbletea model for the pomodoro TUI
// ABOUTME: Defines display state, key bindings and update logic
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/noise-pomodoro/internal/app"
	"github.com/harperreed/noise-pomodoro/internal/timer"
)

// Commands is the part of the pomodoro the TUI drives
type Commands interface {
	StartInterval(kind timer.Kind) error
	CancelInterval() error
	ToggleNoise() error
}

// StatusMsg carries a status published by the control loop
type StatusMsg app.Status

// CompleteMsg is sent once when an interval finishes
type CompleteMsg app.Status

// ErrorMsg reports an audio or command failure
type ErrorMsg struct {
	Err error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220")).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("205"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	status    app.Status
	completed int
	lastError string

	showDebug bool
	quitting  bool

	cmds     Commands
	quitChan chan struct{}

	width  int
	height int
}

// NewModel creates a model sending key commands to cmds. quitChan, if not
// nil, receives a value when the user quits.
func NewModel(cmds Commands, initial app.Status, quitChan chan struct{}) Model {
	return Model{
		status:   initial,
		cmds:     cmds,
		quitChan: quitChan,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.status = app.Status(msg)
	case CompleteMsg:
		m.status = app.Status(msg)
		m.completed++
	case ErrorMsg:
		if msg.Err != nil {
			m.lastError = msg.Err.Error()
		}
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping pomodoro...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Noise Pomodoro"))
	b.WriteString("\n")

	b.WriteString(clockStyle.Render(timer.FormatRemaining(m.status.Remaining)))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Interval: "))
	b.WriteString(valueStyle.Render(m.intervalLabel()))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Noise:    "))
	b.WriteString(valueStyle.Render(m.noiseLabel()))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Done:     "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.completed)))
	b.WriteString("\n")

	if m.lastError != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.lastError))
		b.WriteString("\n")
	}

	if m.showDebug {
		b.WriteString("\n")
		b.WriteString(m.renderDebug())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("w:Work  b:Break  n:Noise  c:Cancel  d:Debug  q:Quit"))

	return b.String()
}

func (m Model) intervalLabel() string {
	if m.status.Kind == 0 {
		return "none"
	}
	if m.status.Running {
		return fmt.Sprintf("%s (running)", m.status.Kind)
	}
	return fmt.Sprintf("%s (stopped)", m.status.Kind)
}

func (m Model) noiseLabel() string {
	toggle := "off"
	if m.status.NoiseEnabled {
		toggle = "on"
	}
	return fmt.Sprintf("%s, engine %s", toggle, m.status.Engine)
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	id := m.status.IntervalID
	if id == "" {
		id = "-"
	}
	return fmt.Sprintf("DEBUG:\n  Interval ID:   %s\n  Noise desired: %v\n  Engine state:  %s\n",
		id, m.status.NoiseDesired, m.status.Engine)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.quitChan != nil {
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "w":
		err = m.send(func(c Commands) error { return c.StartInterval(timer.Work) })
	case "b":
		err = m.send(func(c Commands) error { return c.StartInterval(timer.Break) })
	case "n":
		err = m.send(Commands.ToggleNoise)
	case "c":
		err = m.send(Commands.CancelInterval)
	case "d":
		m.showDebug = !m.showDebug
	}

	if err != nil {
		m.lastError = err.Error()
	}

	return m, nil
}

func (m Model) send(fn func(Commands) error) error {
	if m.cmds == nil {
		return nil
	}
	return fn(m.cmds)
}
