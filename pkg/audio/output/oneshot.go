// ABOUTME: Cursor over a fixed sample buffer for callback-driven one-shot playback
// ABOUTME: Fills device periods from a reused buffer and signals when the last frame is out
package output

import "sync"

// oneShot feeds a finite sample slice to a device data callback
type oneShot struct {
	mu       sync.Mutex
	samples  []float32
	pos      int
	buf      []float32
	finished chan struct{}
	once     sync.Once
}

func newOneShot(samples []float32, bufSize int) *oneShot {
	return &oneShot{
		samples:  samples,
		buf:      make([]float32, bufSize),
		finished: make(chan struct{}),
	}
}

// next returns the following n samples, zero padded past the end. The
// returned slice is only valid until the next call.
func (o *oneShot) next(n int) []float32 {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cap(o.buf) < n {
		o.buf = make([]float32, n)
	}
	out := o.buf[:n]

	copied := copy(out, o.samples[min(o.pos, len(o.samples)):])
	clear(out[copied:])
	o.pos += copied

	if o.pos >= len(o.samples) {
		o.once.Do(func() { close(o.finished) })
	}
	return out
}

// Finished is closed once every sample has been handed out
func (o *oneShot) Finished() <-chan struct{} {
	return o.finished
}
