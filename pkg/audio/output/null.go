// ABOUTME: Null audio output for headless systems and tests
// ABOUTME: Drives stream callbacks from a ticker and discards the samples
package output

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harperreed/noise-pomodoro/pkg/audio"
)

// DefaultNullBufferFrames matches a typical hardware period
const DefaultNullBufferFrames = 512

// Null is a Device without a sound card. Streams are clocked by a ticker at
// the rate real hardware would request buffers.
type Null struct {
	bufferFrames int

	mu      sync.Mutex
	streams int // open streams
	played  atomic.Int64
}

// NewNull creates a null output
func NewNull() Device {
	return NewNullWithBuffer(DefaultNullBufferFrames)
}

// NewNullWithBuffer creates a null output requesting bufferFrames per callback
func NewNullWithBuffer(bufferFrames int) *Null {
	if bufferFrames <= 0 {
		bufferFrames = DefaultNullBufferFrames
	}
	return &Null{bufferFrames: bufferFrames}
}

// OpenStream starts the ticker-driven callback loop
func (n *Null) OpenStream(sampleRate int, fill FillFunc) (Stream, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	period := audio.DurationOf(n.bufferFrames, sampleRate)
	if period <= 0 {
		period = time.Millisecond
	}

	s := &NullStream{
		gate:   newStreamGate(fill),
		owner:  n,
		period: period,
		buf:    make([]float32, n.bufferFrames),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	n.mu.Lock()
	n.streams++
	n.mu.Unlock()

	go s.run()

	return s, nil
}

// Play waits for the playback duration of samples, or until ctx is done
func (n *Null) Play(ctx context.Context, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	timer := time.NewTimer(audio.DurationOf(len(samples), sampleRate))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		n.played.Add(1)
		return nil
	}
}

// Close has nothing to release
func (n *Null) Close() error {
	return nil
}

// OpenStreams returns the number of streams not yet closed
func (n *Null) OpenStreams() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.streams
}

// Played returns the number of completed one-shot playbacks
func (n *Null) Played() int64 {
	return n.played.Load()
}

// NullStream is a stream opened on a Null device
type NullStream struct {
	gate   *streamGate
	owner  *Null
	period time.Duration
	buf    []float32

	rendered atomic.Int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (s *NullStream) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.gate.render(s.buf)
			s.rendered.Add(int64(len(s.buf)))
		}
	}
}

// Rendered returns the number of frames pulled from the fill func
func (s *NullStream) Rendered() int64 {
	return s.rendered.Load()
}

func (s *NullStream) Err() <-chan error {
	return s.gate.errCh
}

// Close stops the callback loop and waits for it to exit
func (s *NullStream) Close() error {
	s.closeOnce.Do(func() {
		s.gate.close()
		close(s.stop)
		<-s.done

		s.owner.mu.Lock()
		s.owner.streams--
		s.owner.mu.Unlock()
	})
	return nil
}
