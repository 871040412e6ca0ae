// ABOUTME: Interval countdown state machine
// ABOUTME: Drives work/break intervals and decides when noise should play
package timer

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultWorkSeconds  = 25 * 60
	DefaultBreakSeconds = 5 * 60

	tickInterval = time.Second
)

// Kind is the type of interval
type Kind int

const (
	Work Kind = iota + 1
	Break
)

func (k Kind) String() string {
	switch k {
	case Work:
		return "work"
	case Break:
		return "break"
	default:
		return "none"
	}
}

// ProducesNoise reports whether white noise belongs to this interval
func (k Kind) ProducesNoise() bool {
	return k == Work
}

// ParseKind parses "work" or "break"
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "work", "pomodoro":
		return Work, nil
	case "break":
		return Break, nil
	default:
		return 0, fmt.Errorf("unknown interval kind %q (expected work or break)", s)
	}
}

// State is the countdown state. It is only mutated on the control goroutine.
type State struct {
	ID        string
	Kind      Kind
	Remaining int // seconds
	Running   bool
}

// NoiseDesired is the single decision point for whether noise should play
func NoiseDesired(s State, noiseEnabled bool) bool {
	return s.Running && s.Kind.ProducesNoise() && noiseEnabled
}

// FormatRemaining renders seconds as MM:SS. Negative values render as 00:00.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Audio is the part of the audio engine the timer drives
type Audio interface {
	StartNoise() error
	StopNoise() error
	PlayChime()
}

// Scheduler runs fn on the control goroutine after d. The returned func
// cancels it if it has not run yet.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) (cancel func())
}

// Option configures a Timer
type Option func(*Timer)

// WithDurations sets the work and break lengths. Values under one second
// are ignored.
func WithDurations(work, brk time.Duration) Option {
	return func(t *Timer) {
		if s := int(work / time.Second); s > 0 {
			t.durations[Work] = s
		}
		if s := int(brk / time.Second); s > 0 {
			t.durations[Break] = s
		}
	}
}

// WithNoiseEnabled sets the initial user noise toggle (default true)
func WithNoiseEnabled(enabled bool) Option {
	return func(t *Timer) {
		t.noiseEnabled = enabled
	}
}

// WithOnTick is called after every state change with the new state
func WithOnTick(fn func(State)) Option {
	return func(t *Timer) {
		t.onTick = fn
	}
}

// WithOnComplete is called exactly once per interval that counts down to zero
func WithOnComplete(fn func(State)) Option {
	return func(t *Timer) {
		t.onComplete = fn
	}
}

// Timer counts intervals down one second at a time. It is not safe for
// concurrent use: every method, and every Scheduler callback, must run on
// the same control goroutine.
type Timer struct {
	audio Audio
	sched Scheduler

	durations    map[Kind]int
	state        State
	noiseEnabled bool

	cancelTick func()
	generation uint64

	onTick     func(State)
	onComplete func(State)
}

// New creates an idle timer
func New(audio Audio, sched Scheduler, opts ...Option) *Timer {
	t := &Timer{
		audio: audio,
		sched: sched,
		durations: map[Kind]int{
			Work:  DefaultWorkSeconds,
			Break: DefaultBreakSeconds,
		},
		noiseEnabled: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns a copy of the countdown state
func (t *Timer) State() State {
	return t.state
}

// NoiseEnabled returns the user noise toggle
func (t *Timer) NoiseEnabled() bool {
	return t.noiseEnabled
}

// NoiseDesired returns the current derived noise decision
func (t *Timer) NoiseDesired() bool {
	return NoiseDesired(t.state, t.noiseEnabled)
}

// Duration returns the configured length of kind in seconds
func (t *Timer) Duration(kind Kind) int {
	return t.durations[kind]
}

// Start begins a new interval, replacing any running one
func (t *Timer) Start(kind Kind) {
	seconds, ok := t.durations[kind]
	if !ok {
		log.Printf("Ignoring start of unknown interval kind %d", kind)
		return
	}

	t.stopTick()

	t.state = State{
		ID:        uuid.NewString(),
		Kind:      kind,
		Remaining: seconds,
		Running:   true,
	}

	log.Printf("Interval started: %s %s (%ds)", kind, t.state.ID, seconds)

	t.syncNoise()
	t.notify()
	t.scheduleTick()
}

// Tick advances the countdown by one second. It does nothing unless an
// interval is running.
func (t *Timer) Tick() {
	if !t.state.Running {
		return
	}

	t.stopTick()
	t.state.Remaining--

	if t.state.Remaining > 0 {
		t.notify()
		t.scheduleTick()
		return
	}

	t.state.Remaining = 0
	t.state.Running = false

	t.syncNoise()
	t.audio.PlayChime()
	t.notify()

	log.Printf("Interval complete: %s %s", t.state.Kind, t.state.ID)

	if t.onComplete != nil {
		t.onComplete(t.state)
	}
}

// Cancel stops the countdown and any noise. The audio engine has stopped
// noise by the time Cancel returns.
func (t *Timer) Cancel() {
	t.stopTick()

	wasRunning := t.state.Running
	t.state.Running = false
	t.state.Remaining = 0

	if wasRunning {
		log.Printf("Interval cancelled: %s %s", t.state.Kind, t.state.ID)
	}

	t.syncNoise()
	t.notify()
}

// SetNoiseEnabled updates the user toggle. The countdown is unaffected.
func (t *Timer) SetNoiseEnabled(enabled bool) {
	t.noiseEnabled = enabled
	t.syncNoise()
	t.notify()
}

// syncNoise applies NoiseDesired to the audio engine. Audio failures are
// logged and the countdown carries on without sound.
func (t *Timer) syncNoise() {
	if t.NoiseDesired() {
		if err := t.audio.StartNoise(); err != nil {
			log.Printf("Unable to start white noise: %v", err)
		}
		return
	}

	if err := t.audio.StopNoise(); err != nil {
		log.Printf("Unable to stop white noise: %v", err)
	}
}

func (t *Timer) scheduleTick() {
	t.generation++
	gen := t.generation

	t.cancelTick = t.sched.Schedule(tickInterval, func() {
		// A tick cancelled after it was already queued must not run
		if gen != t.generation {
			return
		}
		t.cancelTick = nil
		t.Tick()
	})
}

func (t *Timer) stopTick() {
	t.generation++
	if t.cancelTick != nil {
		t.cancelTick()
		t.cancelTick = nil
	}
}

func (t *Timer) notify() {
	if t.onTick != nil {
		t.onTick(t.state)
	}
}
