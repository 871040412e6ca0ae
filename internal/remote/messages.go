// ABOUTME: Remote control message type definitions
// ABOUTME: JSON envelopes exchanged over the pomodoro websocket
package remote

import (
	"encoding/json"

	"github.com/harperreed/noise-pomodoro/internal/app"
	"github.com/harperreed/noise-pomodoro/internal/timer"
)

// Message types
const (
	TypeServerHello    = "server/hello"
	TypeTimerStatus    = "timer/status"
	TypeTimerComplete  = "timer/complete"
	TypeServerError    = "server/error"
	TypeIntervalStart  = "interval/start"
	TypeIntervalCancel = "interval/cancel"
	TypeNoiseSet       = "noise/set"
)

// Message is the top-level wrapper for all remote messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// inboundMessage defers payload decoding until the type is known
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerHello is sent to every client on connect
type ServerHello struct {
	ServerID     string `json:"server_id"`
	ClientID     string `json:"client_id"`
	Name         string `json:"name"`
	Product      string `json:"product"`
	Version      string `json:"version"`
	Manufacturer string `json:"manufacturer"`
}

// TimerStatus mirrors app.Status on the wire
type TimerStatus struct {
	IntervalID   string `json:"interval_id,omitempty"`
	Kind         string `json:"kind"`
	Remaining    int    `json:"remaining"`
	Label        string `json:"label"`
	Running      bool   `json:"running"`
	NoiseEnabled bool   `json:"noise_enabled"`
	NoiseDesired bool   `json:"noise_desired"`
	Engine       string `json:"engine"`
}

// IntervalStart asks the server to start a work or break interval
type IntervalStart struct {
	Kind string `json:"kind"`
}

// NoiseSet sets the noise toggle
type NoiseSet struct {
	Enabled bool `json:"enabled"`
}

// ErrorPayload describes a rejected command or an audio failure
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewTimerStatus converts a status for the wire
func NewTimerStatus(s app.Status) TimerStatus {
	return TimerStatus{
		IntervalID:   s.IntervalID,
		Kind:         s.Kind.String(),
		Remaining:    s.Remaining,
		Label:        timer.FormatRemaining(s.Remaining),
		Running:      s.Running,
		NoiseEnabled: s.NoiseEnabled,
		NoiseDesired: s.NoiseDesired,
		Engine:       s.Engine.String(),
	}
}
