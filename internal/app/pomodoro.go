// ABOUTME: Pomodoro application orchestration
// ABOUTME: Coordinates the control loop, interval timer and audio engine
package app

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harperreed/noise-pomodoro/internal/control"
	"github.com/harperreed/noise-pomodoro/internal/engine"
	"github.com/harperreed/noise-pomodoro/internal/timer"
	"github.com/harperreed/noise-pomodoro/pkg/audio/output"
)

var (
	// ErrClosed is returned by commands sent after Close
	ErrClosed = errors.New("pomodoro closed")
	// ErrBusy is returned by commands when the control queue is full
	ErrBusy = errors.New("pomodoro busy")
)

// Config holds application configuration
type Config struct {
	// Engine configures noise and chime playback
	Engine engine.Config

	// WorkDuration (default: 25m)
	WorkDuration time.Duration

	// BreakDuration (default: 5m)
	BreakDuration time.Duration

	// NoiseEnabled is the initial noise toggle
	NoiseEnabled bool
}

// DefaultConfig returns the standard 25/5 configuration with noise on
func DefaultConfig() Config {
	return Config{
		WorkDuration:  timer.DefaultWorkSeconds * time.Second,
		BreakDuration: timer.DefaultBreakSeconds * time.Second,
		NoiseEnabled:  true,
	}
}

// Status is a point-in-time view of the pomodoro
type Status struct {
	IntervalID   string
	Kind         timer.Kind
	Remaining    int
	Running      bool
	NoiseEnabled bool
	NoiseDesired bool
	Engine       engine.State
}

// Listener receives pomodoro events. OnTick and OnIntervalComplete run on
// the control goroutine; OnError may run on any goroutine. None may block.
type Listener struct {
	OnTick             func(Status)
	OnIntervalComplete func(Status)
	OnError            func(error)
}

// Pomodoro is the command surface of the application. All methods are safe
// for concurrent use. Commands are queued for the control loop and return
// immediately; a command that finds the queue full is rejected with ErrBusy
// rather than waiting.
type Pomodoro struct {
	config Config
	engine *engine.Engine
	loop   *control.Loop
	timer  *timer.Timer

	status atomic.Pointer[Status]

	listenersMu sync.RWMutex
	listeners   []Listener

	closeOnce sync.Once
	closeErr  error
}

// New creates a pomodoro playing through dev and starts its control loop
func New(dev output.Device, config Config) (*Pomodoro, error) {
	p := &Pomodoro{config: config}

	engCfg := config.Engine
	userOnError := engCfg.OnError
	engCfg.OnError = func(err error) {
		if userOnError != nil {
			userOnError(err)
		}
		p.emitError(err)
	}

	eng, err := engine.New(dev, engCfg)
	if err != nil {
		return nil, err
	}
	p.engine = eng

	p.loop = control.NewLoop()
	p.timer = timer.New(eng, p.loop,
		timer.WithDurations(config.WorkDuration, config.BreakDuration),
		timer.WithNoiseEnabled(config.NoiseEnabled),
		timer.WithOnTick(p.handleTick),
		timer.WithOnComplete(p.handleComplete),
	)

	initial := p.statusOf(p.timer.State())
	p.status.Store(&initial)

	p.loop.Start()

	log.Printf("Pomodoro ready: work=%ds break=%ds noise=%v",
		p.timer.Duration(timer.Work), p.timer.Duration(timer.Break), config.NoiseEnabled)

	return p, nil
}

// Engine returns the audio engine
func (p *Pomodoro) Engine() *engine.Engine {
	return p.engine
}

// Subscribe registers l for all future events
func (p *Pomodoro) Subscribe(l Listener) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()

	p.listeners = append(p.listeners, l)
}

// StartInterval begins a work or break interval, replacing any running one
func (p *Pomodoro) StartInterval(kind timer.Kind) error {
	return p.post(func() { p.timer.Start(kind) })
}

// CancelInterval stops the current interval and its noise
func (p *Pomodoro) CancelInterval() error {
	return p.post(p.timer.Cancel)
}

// SetNoiseEnabled sets the noise toggle without touching the countdown
func (p *Pomodoro) SetNoiseEnabled(enabled bool) error {
	return p.post(func() { p.timer.SetNoiseEnabled(enabled) })
}

// ToggleNoise flips the noise toggle
func (p *Pomodoro) ToggleNoise() error {
	return p.post(func() { p.timer.SetNoiseEnabled(!p.timer.NoiseEnabled()) })
}

// Snapshot returns the latest status published by the control loop
func (p *Pomodoro) Snapshot() Status {
	s := *p.status.Load()
	s.Engine = p.engine.State()
	return s
}

// Close cancels the running interval, stops noise before the loop goes
// away and then releases the audio engine. It is idempotent.
func (p *Pomodoro) Close() error {
	p.closeOnce.Do(func() {
		if !p.loop.Do(p.timer.Cancel) {
			log.Printf("Control loop already stopped, forcing noise off")
			if err := p.engine.StopNoise(); err != nil {
				log.Printf("Failed to stop noise: %v", err)
			}
		}
		p.loop.Stop()
		p.closeErr = p.engine.Close()
	})
	return p.closeErr
}

func (p *Pomodoro) post(fn func()) error {
	switch err := p.loop.TryPost(fn); {
	case errors.Is(err, control.ErrStopped):
		return ErrClosed
	case errors.Is(err, control.ErrQueueFull):
		log.Printf("Dropping command, control queue full")
		return ErrBusy
	default:
		return err
	}
}

func (p *Pomodoro) statusOf(st timer.State) Status {
	return Status{
		IntervalID:   st.ID,
		Kind:         st.Kind,
		Remaining:    st.Remaining,
		Running:      st.Running,
		NoiseEnabled: p.timer.NoiseEnabled(),
		NoiseDesired: p.timer.NoiseDesired(),
		Engine:       p.engine.State(),
	}
}

func (p *Pomodoro) snapshotListeners() []Listener {
	p.listenersMu.RLock()
	defer p.listenersMu.RUnlock()

	return append([]Listener(nil), p.listeners...)
}

func (p *Pomodoro) handleTick(st timer.State) {
	s := p.statusOf(st)
	p.status.Store(&s)

	for _, l := range p.snapshotListeners() {
		if l.OnTick != nil {
			l.OnTick(s)
		}
	}
}

func (p *Pomodoro) handleComplete(st timer.State) {
	s := p.statusOf(st)

	for _, l := range p.snapshotListeners() {
		if l.OnIntervalComplete != nil {
			l.OnIntervalComplete(s)
		}
	}
}

func (p *Pomodoro) emitError(err error) {
	for _, l := range p.snapshotListeners() {
		if l.OnError != nil {
			l.OnError(err)
		}
	}
}
