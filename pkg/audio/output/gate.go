// ABOUTME: Fill gate shared by stream backends
// ABOUTME: Serializes audio callbacks against Close and converts panics to silence
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// streamGate guards a stream's FillFunc. The lock is per stream and only
// contended while the stream is closing.
type streamGate struct {
	mu     sync.Mutex
	closed bool
	fill   FillFunc

	errCh    chan error
	errOnce  sync.Once
	panicked atomic.Bool
	dropped  atomic.Int64
}

func newStreamGate(fill FillFunc) *streamGate {
	return &streamGate{
		fill:  fill,
		errCh: make(chan error, 1),
	}
}

// render fills out, or writes silence if the stream is closed or the fill
// panics. The hardware clock is never stalled by a failing fill.
func (g *streamGate) render(out []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		clear(out)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			clear(out)
			g.dropped.Add(1)
			if g.panicked.CompareAndSwap(false, true) {
				log.Printf("Audio fill panicked, dropping buffer: %v", r)
			}
		}
	}()

	g.fill(out)
}

// close blocks until any in-flight render returns. Reports whether this
// call closed the gate.
func (g *streamGate) close() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false
	}
	g.closed = true
	return true
}

func (g *streamGate) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// fail reports a runtime stream failure once. Failures after close are
// expected teardown noise and are ignored.
func (g *streamGate) fail(err error) {
	if g.isClosed() {
		return
	}
	g.errOnce.Do(func() {
		g.errCh <- fmt.Errorf("stream failed: %w", err)
	})
}

// Dropped returns the number of buffers replaced by silence
func (g *streamGate) Dropped() int64 {
	return g.dropped.Load()
}
