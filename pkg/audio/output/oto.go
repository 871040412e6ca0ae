// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams mono float32 PCM through ebitengine/oto players
package output

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/harperreed/noise-pomodoro/pkg/audio"
)

const (
	// otoBufferSize trades latency against underrun risk
	otoBufferSize = 50 * time.Millisecond

	// How often a stream checks its player for device errors
	otoErrPollInterval = 200 * time.Millisecond

	// How often a one-shot playback checks whether it finished
	otoPlayPollInterval = 10 * time.Millisecond
)

// Oto output implementation using oto library
type Oto struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	sampleRate int
}

// NewOto creates a new Oto output
func NewOto() Device {
	return &Oto{}
}

// context returns the process-wide oto context, creating it on first use.
// oto only allows one context per process, so a later request for a
// different sample rate fails instead of reinitializing.
func (o *Oto) context(sampleRate int) (*oto.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if o.sampleRate != sampleRate {
			return nil, fmt.Errorf("oto context already running at %dHz, cannot switch to %dHz", o.sampleRate, sampleRate)
		}
		if err := o.otoCtx.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return o.otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: audio.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferSize,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate

	log.Printf("Audio output initialized: %dHz, %d channel (oto)", sampleRate, audio.Channels)

	return ctx, nil
}

// OpenStream starts a persistent player that reads from fill
func (o *Oto) OpenStream(sampleRate int, fill FillFunc) (Stream, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	ctx, err := o.context(sampleRate)
	if err != nil {
		return nil, err
	}

	s := &otoStream{
		gate: newStreamGate(fill),
		stop: make(chan struct{}),
		done: make(chan struct{}),
		// Typical oto reads are a few thousand bytes; grows rarely
		buf: make([]float32, audio.Frames(otoBufferSize, sampleRate)),
	}

	s.player = ctx.NewPlayer(s)
	s.player.Play()

	go s.watch()

	return s, nil
}

// Play plays samples on a one-shot player. oto mixes it with any running
// stream, so the chime never shares a buffer with the noise.
func (o *Oto) Play(ctx context.Context, samples []float32, sampleRate int) error {
	otoCtx, err := o.context(sampleRate)
	if err != nil {
		return err
	}

	player := otoCtx.NewPlayer(bytes.NewReader(audio.Float32LEBytes(samples)))
	defer player.Close()

	player.Play()

	ticker := time.NewTicker(otoPlayPollInterval)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if err := player.Err(); err != nil {
		return fmt.Errorf("oto playback failed: %w", err)
	}
	return nil
}

// Close suspends the oto context. oto cannot tear a context down, so the
// device is left suspended until the process exits.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend oto context: %w", err)
		}
	}
	return nil
}

// otoStream adapts a FillFunc to the io.Reader oto pulls from
type otoStream struct {
	gate   *streamGate
	player *oto.Player

	// Only touched from oto's reader goroutine
	buf []float32

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Read is called by oto on its audio goroutine
func (s *otoStream) Read(p []byte) (int, error) {
	n := len(p) / audio.BytesPerSample
	if n == 0 {
		return 0, nil
	}

	if cap(s.buf) < n {
		s.buf = make([]float32, n)
	}
	samples := s.buf[:n]

	s.gate.render(samples)
	audio.PutFloat32LE(p, samples)

	return n * audio.BytesPerSample, nil
}

// watch surfaces player errors (e.g. device disconnected) on the Err channel
func (s *otoStream) watch() {
	defer close(s.done)

	ticker := time.NewTicker(otoErrPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.player.Err(); err != nil {
				s.gate.fail(err)
				return
			}
		}
	}
}

func (s *otoStream) Err() <-chan error {
	return s.gate.errCh
}

// Close closes the gate first so no fill runs after return, then releases
// the player outside the gate lock.
func (s *otoStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.gate.close()

		close(s.stop)
		<-s.done

		s.player.Pause()
		if cerr := s.player.Close(); cerr != nil {
			err = fmt.Errorf("failed to close oto player: %w", cerr)
		}
	})
	return err
}
