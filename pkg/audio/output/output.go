// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends
package output

import (
	"context"
	"fmt"
)

// FillFunc renders the next buffer of mono samples in place. It runs on the
// device's audio thread and must not block.
type FillFunc func(out []float32)

// Stream is a running continuous output stream
type Stream interface {
	// Err delivers at most one error if the stream fails while running
	Err() <-chan error

	// Close stops the stream and releases the device. No FillFunc call is
	// in progress or will start once Close returns.
	Close() error
}

// Device represents an audio output device
type Device interface {
	// OpenStream starts a mono stream that pulls samples from fill
	OpenStream(sampleRate int, fill FillFunc) (Stream, error)

	// Play plays samples once and blocks until they finish or ctx is done
	Play(ctx context.Context, samples []float32, sampleRate int) error

	// Close releases output resources
	Close() error
}

// New returns the device for a backend name
func New(backend string) (Device, error) {
	switch backend {
	case "", "oto":
		return NewOto(), nil
	case "malgo":
		return NewMalgo(), nil
	case "null":
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q (supported: oto, malgo, null)", backend)
	}
}
