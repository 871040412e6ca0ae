// ABOUTME: Sine tone generator for the completion chime
// ABOUTME: Renders a fixed-duration sine burst with optional edge fades
package generate

import (
	"math"
	"time"

	"github.com/harperreed/noise-pomodoro/pkg/audio"
)

const (
	DefaultToneFrequency = 880.0 // A5
	DefaultToneDuration  = 600 * time.Millisecond

	// ToneAmplitude keeps the chime well below clipping
	ToneAmplitude = 0.3
)

// Tone renders round(duration*sampleRate) samples of
// ToneAmplitude*sin(2*pi*freq*t), with t stepping over [0, duration).
func Tone(freq float64, duration time.Duration, sampleRate int) []float32 {
	n := audio.Frames(duration, sampleRate)
	if n <= 0 {
		return nil
	}

	out := make([]float32, n)
	step := 2 * math.Pi * freq / float64(sampleRate)
	for i := range out {
		out[i] = float32(ToneAmplitude * math.Sin(step*float64(i)))
	}
	return out
}

// ApplyFade ramps the first and last fade samples linearly in place.
// The fade is clamped to half the buffer.
func ApplyFade(samples []float32, fade int) {
	if fade > len(samples)/2 {
		fade = len(samples) / 2
	}
	if fade <= 0 {
		return
	}

	last := len(samples) - 1
	for i := 0; i < fade; i++ {
		gain := float32(i) / float32(fade)
		samples[i] *= gain
		samples[last-i] *= gain
	}
}
