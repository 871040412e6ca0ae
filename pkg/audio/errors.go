// ABOUTME: Typed audio failures
// ABOUTME: Converts device-layer errors into a small, matchable taxonomy
package audio

import (
	"errors"
	"fmt"
)

// Kind classifies an audio failure
type Kind int

const (
	// DeviceUnavailable means no output device, or the device is busy
	DeviceUnavailable Kind = iota + 1
	// InvalidConfiguration means the profile or chime settings are out of range
	InvalidConfiguration
	// PlaybackInterrupted means a running stream failed mid-flight
	PlaybackInterrupted
	// ChimeFailed means the one-shot completion chime could not be played
	ChimeFailed
)

var (
	ErrDeviceUnavailable    = errors.New("audio device unavailable")
	ErrInvalidConfiguration = errors.New("invalid audio configuration")
	ErrPlaybackInterrupted  = errors.New("audio playback interrupted")
	ErrChimeFailed          = errors.New("chime playback failed")
)

func (k Kind) String() string {
	switch k {
	case DeviceUnavailable:
		return "device_unavailable"
	case InvalidConfiguration:
		return "invalid_configuration"
	case PlaybackInterrupted:
		return "playback_interrupted"
	case ChimeFailed:
		return "chime_failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case DeviceUnavailable:
		return ErrDeviceUnavailable
	case InvalidConfiguration:
		return ErrInvalidConfiguration
	case PlaybackInterrupted:
		return ErrPlaybackInterrupted
	case ChimeFailed:
		return ErrChimeFailed
	}
	return nil
}

// Error is an audio failure tagged with its Kind and the operation that failed
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError wraps err as an audio failure of the given kind
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind.sentinel())
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind.sentinel(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind, so
// errors.Is(err, ErrDeviceUnavailable) works through wrapping.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind of the first audio Error in err's chain, or 0
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}
