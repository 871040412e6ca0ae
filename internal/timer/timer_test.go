// ABOUTME: Tests for the interval countdown state machine
// ABOUTME: Tests ticking, completion, cancellation and the noise decision
package timer

import (
	"errors"
	"testing"
	"time"

	"github.com/harperreed/noise-pomodoro/internal/engine"
	"github.com/harperreed/noise-pomodoro/pkg/audio/output"
)

// fakeAudio counts requests made to the audio engine
type fakeAudio struct {
	starts   int
	stops    int
	chimes   int
	startErr error
	playing  bool
}

func (a *fakeAudio) StartNoise() error {
	a.starts++
	if a.startErr != nil {
		return a.startErr
	}
	a.playing = true
	return nil
}

func (a *fakeAudio) StopNoise() error {
	a.stops++
	a.playing = false
	return nil
}

func (a *fakeAudio) PlayChime() {
	a.chimes++
}

// manualScheduler holds scheduled callbacks until the test fires them
type manualScheduler struct {
	pending []*scheduled
}

type scheduled struct {
	d         time.Duration
	fn        func()
	cancelled bool
}

func (s *manualScheduler) Schedule(d time.Duration, fn func()) func() {
	e := &scheduled{d: d, fn: fn}
	s.pending = append(s.pending, e)
	return func() { e.cancelled = true }
}

// live returns callbacks that are still scheduled
func (s *manualScheduler) live() []*scheduled {
	var out []*scheduled
	for _, e := range s.pending {
		if !e.cancelled {
			out = append(out, e)
		}
	}
	return out
}

// fire runs the single live callback, as the control loop would
func (s *manualScheduler) fire(t *testing.T) {
	t.Helper()
	live := s.live()
	if len(live) != 1 {
		t.Fatalf("expected exactly one pending tick, got %d", len(live))
	}
	e := live[0]
	e.cancelled = true
	e.fn()
}

func newTestTimer(opts ...Option) (*Timer, *fakeAudio, *manualScheduler) {
	a := &fakeAudio{}
	s := &manualScheduler{}
	return New(a, s, opts...), a, s
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
		wantErr  bool
	}{
		{"work", Work, false},
		{"Pomodoro", Work, false},
		{" break ", Break, false},
		{"nap", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, err := ParseKind(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if kind != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, kind)
			}
		})
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		seconds  int
		expected string
	}{
		{1500, "25:00"},
		{742, "12:22"},
		{300, "05:00"},
		{59, "00:59"},
		{0, "00:00"},
		{-5, "00:00"},
		{6000, "100:00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatRemaining(tt.seconds); got != tt.expected {
				t.Errorf("FormatRemaining(%d) = %q, expected %q", tt.seconds, got, tt.expected)
			}
		})
	}
}

func TestNoiseDesired(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		enabled  bool
		expected bool
	}{
		{"running work enabled", State{Kind: Work, Running: true}, true, true},
		{"running work disabled", State{Kind: Work, Running: true}, false, false},
		{"stopped work", State{Kind: Work}, true, false},
		{"running break", State{Kind: Break, Running: true}, true, false},
		{"idle", State{}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NoiseDesired(tt.state, tt.enabled); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestStartWork(t *testing.T) {
	tm, a, s := newTestTimer()

	var ticks []State
	tm.onTick = func(st State) { ticks = append(ticks, st) }

	tm.Start(Work)

	st := tm.State()
	if !st.Running || st.Kind != Work || st.Remaining != 1500 {
		t.Errorf("unexpected state after start: %+v", st)
	}
	if st.ID == "" {
		t.Error("expected an interval ID")
	}
	if a.starts != 1 || !a.playing {
		t.Errorf("expected noise started once, got %d starts", a.starts)
	}
	if len(s.live()) != 1 || s.live()[0].d != time.Second {
		t.Errorf("expected one tick scheduled in 1s, got %+v", s.live())
	}
	if len(ticks) != 1 || ticks[0].Remaining != 1500 {
		t.Errorf("expected initial tick notification, got %+v", ticks)
	}
}

func TestWorkIntervalRunsToCompletion(t *testing.T) {
	tm, a, s := newTestTimer()

	completions := 0
	var completed State
	tm.onComplete = func(st State) {
		completions++
		completed = st
		if a.chimes != 1 {
			t.Errorf("completion fired before chime was requested")
		}
	}

	tm.Start(Work)
	id := tm.State().ID

	for i := 0; i < DefaultWorkSeconds; i++ {
		s.fire(t)
	}

	if a.stops != 1 {
		t.Errorf("expected exactly one StopNoise, got %d", a.stops)
	}
	if a.chimes != 1 {
		t.Errorf("expected exactly one chime, got %d", a.chimes)
	}
	if len(s.live()) != 0 {
		t.Errorf("expected no ticks scheduled after completion, got %d", len(s.live()))
	}
	if completions != 1 {
		t.Errorf("expected one completion, got %d", completions)
	}
	if completed.ID != id || completed.Kind != Work || completed.Running || completed.Remaining != 0 {
		t.Errorf("unexpected completed state %+v", completed)
	}

	// Extra ticks after completion change nothing
	tm.Tick()
	if a.stops != 1 || a.chimes != 1 || completions != 1 {
		t.Error("tick after completion had side effects")
	}
}

func TestTickDecrements(t *testing.T) {
	tm, _, s := newTestTimer(WithDurations(10*time.Second, 5*time.Second))

	tm.Start(Work)
	s.fire(t)
	s.fire(t)

	if got := tm.State().Remaining; got != 8 {
		t.Errorf("expected 8 seconds remaining, got %d", got)
	}
}

func TestToggleNoiseMidInterval(t *testing.T) {
	tm, a, s := newTestTimer()

	tm.Start(Work)
	for i := 0; i < 10; i++ {
		s.fire(t)
	}
	remaining := tm.State().Remaining

	tm.SetNoiseEnabled(false)

	if a.playing || a.stops != 1 {
		t.Errorf("expected noise stopped once, stops=%d playing=%v", a.stops, a.playing)
	}
	if tm.State().Remaining != remaining || !tm.State().Running {
		t.Errorf("toggle changed countdown: %+v", tm.State())
	}
	if len(s.live()) != 1 {
		t.Errorf("toggle disturbed tick scheduling: %d pending", len(s.live()))
	}

	// Re-enabling mid-interval resumes noise
	tm.SetNoiseEnabled(true)
	if !a.playing || a.starts != 2 {
		t.Errorf("expected noise resumed, starts=%d playing=%v", a.starts, a.playing)
	}
}

func TestCancelResetsAndStopsEngine(t *testing.T) {
	dev := output.NewNullWithBuffer(64)
	eng, err := engine.New(dev, engine.Config{})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	defer eng.Close()

	s := &manualScheduler{}
	tm := New(eng, s)

	tm.Start(Work)
	if eng.State() != engine.Running {
		t.Fatalf("expected engine Running, got %v", eng.State())
	}

	for tm.State().Remaining > 742 {
		s.fire(t)
	}
	if tm.State().Remaining != 742 {
		t.Fatalf("expected 742 remaining, got %d", tm.State().Remaining)
	}

	tm.Cancel()

	if eng.State() != engine.Idle {
		t.Errorf("expected engine Idle immediately after Cancel, got %v", eng.State())
	}
	if dev.OpenStreams() != 0 {
		t.Errorf("expected no open streams, got %d", dev.OpenStreams())
	}
	st := tm.State()
	if st.Remaining != 0 || st.Running {
		t.Errorf("expected reset state, got %+v", st)
	}
	if len(s.live()) != 0 {
		t.Errorf("expected pending tick cancelled, got %d", len(s.live()))
	}
}

func TestBreakNeverProducesNoise(t *testing.T) {
	tm, a, s := newTestTimer()

	tm.Start(Break)
	tm.SetNoiseEnabled(false)
	tm.SetNoiseEnabled(true)

	for i := 0; i < DefaultBreakSeconds; i++ {
		s.fire(t)
	}

	if a.starts != 0 {
		t.Errorf("break started noise %d times", a.starts)
	}
	if a.chimes != 1 {
		t.Errorf("expected chime at end of break, got %d", a.chimes)
	}
}

func TestStartWithNoiseDisabled(t *testing.T) {
	tm, a, _ := newTestTimer(WithNoiseEnabled(false))

	tm.Start(Work)

	if a.starts != 0 {
		t.Errorf("expected no noise with toggle off, got %d starts", a.starts)
	}
	if !tm.State().Running {
		t.Error("expected interval running")
	}
}

func TestRestartCancelsPendingTick(t *testing.T) {
	tm, _, s := newTestTimer()

	tm.Start(Work)
	first := s.live()[0]
	firstID := tm.State().ID

	tm.Start(Break)

	if !first.cancelled {
		t.Error("expected first tick cancelled on restart")
	}
	if tm.State().ID == firstID {
		t.Error("expected a new interval ID")
	}

	// Even if the old callback was already queued, it must not tick
	first.fn()
	if got := tm.State().Remaining; got != DefaultBreakSeconds {
		t.Errorf("stale tick decremented new interval to %d", got)
	}
}

func TestStaleTickAfterCancel(t *testing.T) {
	tm, a, s := newTestTimer()

	tm.Start(Work)
	pending := s.live()[0]
	tm.Cancel()

	pending.fn()

	if tm.State().Running || tm.State().Remaining != 0 {
		t.Errorf("stale tick revived the timer: %+v", tm.State())
	}
	if a.chimes != 0 {
		t.Error("stale tick played a chime")
	}
}

func TestStartFailureKeepsCounting(t *testing.T) {
	tm, a, s := newTestTimer()
	a.startErr = errors.New("device unavailable")

	tm.Start(Work)
	s.fire(t)

	if got := tm.State().Remaining; got != DefaultWorkSeconds-1 {
		t.Errorf("expected countdown to continue, got %d", got)
	}
}

func TestWithDurations(t *testing.T) {
	tm, _, _ := newTestTimer(WithDurations(50*time.Minute, 500*time.Millisecond))

	if tm.Duration(Work) != 3000 {
		t.Errorf("expected 3000s work, got %d", tm.Duration(Work))
	}
	if tm.Duration(Break) != DefaultBreakSeconds {
		t.Errorf("sub-second break should be ignored, got %d", tm.Duration(Break))
	}
}

func TestStartUnknownKind(t *testing.T) {
	tm, a, s := newTestTimer()

	tm.Start(Kind(42))

	if tm.State().Running || a.starts != 0 || len(s.live()) != 0 {
		t.Errorf("unknown kind should be ignored, state %+v", tm.State())
	}
}
