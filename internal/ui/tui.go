// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and feeds it pomodoro events
package ui

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/noise-pomodoro/internal/app"
)

// TUI manages the pomodoro TUI
type TUI struct {
	program  *tea.Program
	updates  chan tea.Msg
	quitChan chan struct{} // Signal that the user quit
	stop     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// NewTUI creates a TUI driving cmds. It does not draw until Start.
func NewTUI(cmds Commands, initial app.Status) *TUI {
	t := &TUI{
		updates:  make(chan tea.Msg, 16),
		quitChan: make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	t.program = tea.NewProgram(NewModel(cmds, initial, t.quitChan), tea.WithAltScreen())
	return t
}

// Start runs the TUI until the user quits or Stop is called
func (t *TUI) Start() error {
	t.started.Store(true)

	go func() {
		for {
			select {
			case msg := <-t.updates:
				t.program.Send(msg)
			case <-t.stop:
				return
			}
		}
	}()

	_, err := t.program.Run()
	return err
}

// Send queues msg for the TUI without blocking. Messages are dropped when
// the TUI falls behind.
func (t *TUI) Send(msg tea.Msg) {
	select {
	case t.updates <- msg:
	default:
	}
}

// Listener returns pomodoro callbacks that forward events to the TUI
func (t *TUI) Listener() app.Listener {
	return app.Listener{
		OnTick: func(s app.Status) {
			t.Send(StatusMsg(s))
		},
		OnIntervalComplete: func(s app.Status) {
			t.Send(CompleteMsg(s))
		},
		OnError: func(err error) {
			t.Send(ErrorMsg{Err: err})
		},
	}
}

// Stop stops the TUI
func (t *TUI) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
		if t.started.Load() {
			t.program.Quit()
			return
		}
		// Quit would block on a program that never ran
		t.program.Kill()
	})
}

// QuitChan returns the channel that signals when the user wants to quit
func (t *TUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
