//go:build !malgo

// ABOUTME: Malgo stub when library not available
// ABOUTME: Provides compile-time placeholder when built without the malgo tag
package output

import (
	"context"
	"fmt"
)

var errMalgoDisabled = fmt.Errorf("malgo support not enabled (build with -tags malgo)")

// Malgo output implementation (stub)
type Malgo struct{}

// NewMalgo creates a new Malgo output
func NewMalgo() Device {
	return &Malgo{}
}

// OpenStream always fails without the malgo tag
func (m *Malgo) OpenStream(sampleRate int, fill FillFunc) (Stream, error) {
	return nil, errMalgoDisabled
}

// Play always fails without the malgo tag
func (m *Malgo) Play(ctx context.Context, samples []float32, sampleRate int) error {
	return errMalgoDisabled
}

// Close releases resources
func (m *Malgo) Close() error {
	return nil
}
