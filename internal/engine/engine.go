// ABOUTME: Audio engine for white noise and the completion chime
// ABOUTME: Owns the noise stream lifecycle and plays chimes on detached goroutines
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harperreed/noise-pomodoro/pkg/audio"
	"github.com/harperreed/noise-pomodoro/pkg/audio/generate"
	"github.com/harperreed/noise-pomodoro/pkg/audio/output"
)

const (
	// DefaultChimeGrace is how long a chime may run past its own duration
	DefaultChimeGrace = 2 * time.Second

	// Edge fade that keeps the chime from clicking
	chimeFade = 5 * time.Millisecond

	// maxConcurrentChimes limits simultaneous chime playback
	maxConcurrentChimes = 2

	// chimeCancelWait bounds how long Close waits for a cancelled chime to
	// leave device.Play before releasing the device
	chimeCancelWait = 500 * time.Millisecond
)

// State is the noise stream lifecycle state
type State int32

const (
	Idle State = iota
	Starting
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config holds engine configuration
type Config struct {
	// Profile is the noise profile (default: 44100Hz, amplitude 0.12)
	Profile audio.NoiseProfile

	// ChimeFrequency in Hz (default: 880)
	ChimeFrequency float64

	// ChimeDuration (default: 600ms)
	ChimeDuration time.Duration

	// ChimeGrace bounds chime playback at ChimeDuration+ChimeGrace
	ChimeGrace time.Duration

	// OnError is called for every audio failure. It may be called from any
	// goroutine but never while the engine lock is held.
	OnError func(error)
}

// Engine plays white noise on demand and the completion chime.
//
// Lifecycle state changes are serialized by mu. The audio callback never
// takes mu: it only touches the stream's own generator, which reads the
// immutable profile.
type Engine struct {
	device        output.Device
	profile       audio.NoiseProfile
	chimeFreq     float64
	chimeDuration time.Duration
	chimeGrace    time.Duration
	onError       func(error)

	mu        sync.Mutex
	state     atomic.Int32
	stream    output.Stream
	watchStop chan struct{}

	closed     atomic.Bool
	chimeMu    sync.Mutex
	chimes     sync.WaitGroup
	chimeCount atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an engine on dev. Invalid configuration fails here and only here.
func New(dev output.Device, cfg Config) (*Engine, error) {
	if dev == nil {
		return nil, audio.NewError(audio.InvalidConfiguration, "new engine", errors.New("no output device"))
	}

	if cfg.Profile == (audio.NoiseProfile{}) {
		cfg.Profile = audio.DefaultNoiseProfile()
	}
	if cfg.ChimeFrequency == 0 {
		cfg.ChimeFrequency = generate.DefaultToneFrequency
	}
	if cfg.ChimeDuration == 0 {
		cfg.ChimeDuration = generate.DefaultToneDuration
	}
	if cfg.ChimeGrace == 0 {
		cfg.ChimeGrace = DefaultChimeGrace
	}

	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}
	nyquist := float64(cfg.Profile.SampleRate) / 2
	if !(cfg.ChimeFrequency > 0 && cfg.ChimeFrequency < nyquist) {
		return nil, audio.NewError(audio.InvalidConfiguration, "new engine",
			fmt.Errorf("chime frequency must be in (0, %.0f) Hz, got %v", nyquist, cfg.ChimeFrequency))
	}
	if cfg.ChimeDuration < 0 || cfg.ChimeGrace < 0 {
		return nil, audio.NewError(audio.InvalidConfiguration, "new engine",
			fmt.Errorf("chime duration and grace must be positive, got %v and %v", cfg.ChimeDuration, cfg.ChimeGrace))
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		device:        dev,
		profile:       cfg.Profile,
		chimeFreq:     cfg.ChimeFrequency,
		chimeDuration: cfg.ChimeDuration,
		chimeGrace:    cfg.ChimeGrace,
		onError:       cfg.OnError,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Profile returns the engine's noise profile
func (e *Engine) Profile() audio.NoiseProfile {
	return e.profile
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	return State(e.state.Load())
}

// StartNoise opens the noise stream if the engine is idle. Calling it while
// running is a no-op. On failure the state stays Idle and the error is also
// sent to OnError.
func (e *Engine) StartNoise() error {
	e.mu.Lock()

	if e.closed.Load() {
		e.mu.Unlock()
		return audio.NewError(audio.DeviceUnavailable, "start noise", errors.New("engine closed"))
	}

	if e.stream != nil {
		e.mu.Unlock()
		return nil
	}

	e.state.Store(int32(Starting))

	gen := generate.NewNoiseGenerator(e.profile)
	stream, err := e.device.OpenStream(e.profile.SampleRate, gen.Fill)
	if err != nil {
		e.state.Store(int32(Idle))
		e.mu.Unlock()

		aerr := audio.NewError(audio.DeviceUnavailable, "start noise", err)
		e.report(aerr)
		return aerr
	}

	stop := make(chan struct{})
	e.stream = stream
	e.watchStop = stop
	e.state.Store(int32(Running))
	e.mu.Unlock()

	go e.watch(stream, stop)

	log.Printf("White noise started: %dHz, amplitude %.2f", e.profile.SampleRate, e.profile.Amplitude)
	return nil
}

// StopNoise closes the noise stream if one is running. Calling it while idle
// is a no-op. When it returns no further noise callbacks will run.
func (e *Engine) StopNoise() error {
	e.mu.Lock()

	if e.stream == nil {
		e.mu.Unlock()
		return nil
	}

	err := e.teardown()
	e.mu.Unlock()

	log.Printf("White noise stopped")

	if err != nil {
		aerr := audio.NewError(audio.DeviceUnavailable, "stop noise", err)
		e.report(aerr)
		return aerr
	}
	return nil
}

// teardown closes the current stream and returns to Idle (must hold e.mu)
func (e *Engine) teardown() error {
	close(e.watchStop)
	err := e.stream.Close()

	e.stream = nil
	e.watchStop = nil
	e.state.Store(int32(Idle))

	return err
}

// watch forces the engine back to Idle if stream fails while it is current
func (e *Engine) watch(stream output.Stream, stop <-chan struct{}) {
	var failure error

	select {
	case <-stop:
		return
	case failure = <-stream.Err():
	}

	e.mu.Lock()
	if e.stream != stream {
		e.mu.Unlock()
		return
	}
	// StopNoise cannot close stop while we hold the lock
	if err := e.teardown(); err != nil {
		log.Printf("Error closing failed stream: %v", err)
	}
	e.mu.Unlock()

	e.report(audio.NewError(audio.PlaybackInterrupted, "noise stream", failure))
}

// PlayChime plays the completion chime on its own goroutine and returns
// immediately. Failures are reported through OnError only.
func (e *Engine) PlayChime() {
	e.chimeMu.Lock()
	if e.closed.Load() {
		e.chimeMu.Unlock()
		log.Printf("Chime skipped: engine closed")
		return
	}

	// Concurrency limit check - atomic increment then check
	if e.chimeCount.Add(1) > maxConcurrentChimes {
		e.chimeCount.Add(-1)
		e.chimeMu.Unlock()
		log.Printf("Chime skipped: concurrent chime limit reached")
		return
	}

	e.chimes.Add(1)
	e.chimeMu.Unlock()

	// Settings are captured now so the goroutine shares no mutable state
	go e.playChime(e.chimeFreq, e.chimeDuration, e.profile.SampleRate)
}

func (e *Engine) playChime(freq float64, duration time.Duration, sampleRate int) {
	defer e.chimes.Done()
	defer e.chimeCount.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			e.report(audio.NewError(audio.ChimeFailed, "play chime", fmt.Errorf("panic: %v", r)))
		}
	}()

	samples := generate.Tone(freq, duration, sampleRate)
	generate.ApplyFade(samples, audio.Frames(chimeFade, sampleRate))

	ctx, cancel := context.WithTimeout(e.ctx, duration+e.chimeGrace)
	defer cancel()

	if err := e.device.Play(ctx, samples, sampleRate); err != nil {
		e.report(audio.NewError(audio.ChimeFailed, "play chime", err))
	}
}

// Close stops noise, waits for in-flight chimes no longer than their bound
// and releases the device. Further StartNoise calls fail and PlayChime
// becomes a no-op.
func (e *Engine) Close() error {
	e.chimeMu.Lock()
	if e.closed.Load() {
		e.chimeMu.Unlock()
		return nil
	}
	e.closed.Store(true)
	e.chimeMu.Unlock()

	stopErr := e.StopNoise()

	done := make(chan struct{})
	go func() {
		e.chimes.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(e.chimeDuration + e.chimeGrace):
		log.Printf("Cancelling chime still playing at shutdown")
	}
	e.cancel()

	// A cancelled Play may still be tearing down its own playback handle,
	// which must happen before the device it belongs to is released
	select {
	case <-done:
	case <-time.After(chimeCancelWait):
		log.Printf("Chime did not stop after cancel, leaving audio device open")
		return errors.Join(stopErr, audio.NewError(audio.ChimeFailed, "close",
			errors.New("chime still playing, audio device not released")))
	}

	if err := e.device.Close(); err != nil {
		return errors.Join(stopErr, fmt.Errorf("failed to close audio device: %w", err))
	}
	return stopErr
}

// report logs err and forwards it to OnError
func (e *Engine) report(err error) {
	log.Printf("Audio error: %v", err)
	if e.onError != nil {
		e.onError(err)
	}
}
