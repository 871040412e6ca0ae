// ABOUTME: Audio output tests
// ABOUTME: Verifies Device implementations, stream gating and the null backend
package output

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestImplementsDevice(t *testing.T) {
	var _ Device = (*Oto)(nil)
	var _ Device = (*Malgo)(nil)
	var _ Device = (*Null)(nil)
	var _ Stream = (*NullStream)(nil)
	var _ Stream = (*otoStream)(nil)
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		backend   string
		expectErr bool
	}{
		{"", false},
		{"oto", false},
		{"malgo", false},
		{"null", false},
		{"portaudio", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			dev, err := New(tt.backend)
			if (err != nil) != tt.expectErr {
				t.Fatalf("New(%q) error = %v, expectErr %v", tt.backend, err, tt.expectErr)
			}
			if !tt.expectErr && dev == nil {
				t.Fatal("expected a device")
			}
		})
	}
}

func TestNullStreamPullsSamples(t *testing.T) {
	dev := NewNullWithBuffer(64)

	var calls atomic.Int64
	stream, err := dev.OpenStream(48000, func(out []float32) {
		if len(out) != 64 {
			t.Errorf("expected 64 frames per callback, got %d", len(out))
		}
		calls.Add(1)
	})
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected callbacks, got %d", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	if dev.OpenStreams() != 1 {
		t.Errorf("expected 1 open stream, got %d", dev.OpenStreams())
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != after {
		t.Errorf("fill called after Close returned (%d -> %d)", after, calls.Load())
	}

	if dev.OpenStreams() != 0 {
		t.Errorf("expected 0 open streams, got %d", dev.OpenStreams())
	}

	if ns := stream.(*NullStream); ns.Rendered() != after*64 {
		t.Errorf("expected %d rendered frames, got %d", after*64, ns.Rendered())
	}

	// Second close is a no-op
	if err := stream.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if dev.OpenStreams() != 0 {
		t.Errorf("double close changed stream count to %d", dev.OpenStreams())
	}
}

func TestNullStreamInvalidSampleRate(t *testing.T) {
	dev := NewNull()
	if _, err := dev.OpenStream(0, func([]float32) {}); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestNullPlay(t *testing.T) {
	dev := NewNullWithBuffer(64)

	start := time.Now()
	if err := dev.Play(context.Background(), make([]float32, 441), 44100); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 9*time.Millisecond {
		t.Errorf("Play returned after %v, expected about 10ms", elapsed)
	}
	if dev.Played() != 1 {
		t.Errorf("expected 1 playback, got %d", dev.Played())
	}
}

func TestNullPlayCancelled(t *testing.T) {
	dev := NewNullWithBuffer(64)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := dev.Play(ctx, make([]float32, 44100*10), 44100)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if dev.Played() != 0 {
		t.Errorf("cancelled playback should not count, got %d", dev.Played())
	}
}

func TestGateRecoversPanic(t *testing.T) {
	g := newStreamGate(func(out []float32) {
		out[0] = 1
		panic("boom")
	})

	out := []float32{0.5, 0.5}
	g.render(out)

	if out[0] != 0 || out[1] != 0 {
		t.Errorf("expected silence after panic, got %v", out)
	}
	if g.Dropped() != 1 {
		t.Errorf("expected 1 dropped buffer, got %d", g.Dropped())
	}
}

func TestGateSilentAfterClose(t *testing.T) {
	called := false
	g := newStreamGate(func(out []float32) { called = true })

	if !g.close() {
		t.Fatal("first close should report true")
	}
	if g.close() {
		t.Error("second close should report false")
	}

	out := []float32{0.3}
	g.render(out)
	if called {
		t.Error("fill called on closed gate")
	}
	if out[0] != 0 {
		t.Errorf("expected silence, got %v", out[0])
	}
}

func TestGateFailReportsOnce(t *testing.T) {
	g := newStreamGate(func([]float32) {})

	g.fail(errors.New("unplugged"))
	g.fail(errors.New("again"))

	select {
	case err := <-g.errCh:
		if err == nil {
			t.Fatal("expected an error")
		}
	default:
		t.Fatal("expected a reported failure")
	}

	select {
	case err := <-g.errCh:
		t.Errorf("expected a single failure, got another: %v", err)
	default:
	}
}

func TestGateFailIgnoredAfterClose(t *testing.T) {
	g := newStreamGate(func([]float32) {})
	g.close()
	g.fail(errors.New("teardown"))

	select {
	case err := <-g.errCh:
		t.Errorf("failure after close should be ignored, got %v", err)
	default:
	}
}

func TestOneShotFillsAndPads(t *testing.T) {
	shot := newOneShot([]float32{0.1, 0.2, 0.3, 0.4, 0.5}, 3)

	tests := []struct {
		n        int
		want     []float32
		finished bool
	}{
		{3, []float32{0.1, 0.2, 0.3}, false},
		{3, []float32{0.4, 0.5, 0}, true},
		{4, []float32{0, 0, 0, 0}, true},
	}

	for i, tt := range tests {
		got := shot.next(tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("Period %d: expected %d samples, got %d", i, len(tt.want), len(got))
		}
		for j := range tt.want {
			if got[j] != tt.want[j] {
				t.Errorf("Period %d sample %d: expected %v, got %v", i, j, tt.want[j], got[j])
			}
		}

		select {
		case <-shot.Finished():
			if !tt.finished {
				t.Errorf("Period %d: finished too early", i)
			}
		default:
			if tt.finished {
				t.Errorf("Period %d: expected finished", i)
			}
		}
	}
}

func TestOneShotReusesBuffer(t *testing.T) {
	shot := newOneShot(make([]float32, 1<<20), 512)

	allocs := testing.AllocsPerRun(100, func() {
		shot.next(512)
	})
	if allocs != 0 {
		t.Errorf("Expected no allocations per period, got %v", allocs)
	}
}
