// ABOUTME: Audio type definitions
// ABOUTME: Defines the noise profile and float32 sample conversions
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	DefaultSampleRate = 44100
	DefaultAmplitude  = 0.12

	// MaxAmplitude is the clipping ceiling for generated noise
	MaxAmplitude = 0.3

	// Output streams are mono float32
	Channels       = 1
	BytesPerSample = 4
)

// NoiseProfile describes the generated noise. It is never mutated after
// construction, so the audio callback may read it without locking.
type NoiseProfile struct {
	SampleRate int
	Amplitude  float64
}

// DefaultNoiseProfile returns 44.1kHz noise at amplitude 0.12
func DefaultNoiseProfile() NoiseProfile {
	return NoiseProfile{
		SampleRate: DefaultSampleRate,
		Amplitude:  DefaultAmplitude,
	}
}

// Validate checks the sample rate and amplitude bounds
func (p NoiseProfile) Validate() error {
	if p.SampleRate <= 0 {
		return NewError(InvalidConfiguration, "validate profile",
			fmt.Errorf("sample rate must be positive, got %d", p.SampleRate))
	}
	// Written so that NaN fails as well
	if !(p.Amplitude > 0 && p.Amplitude <= MaxAmplitude) {
		return NewError(InvalidConfiguration, "validate profile",
			fmt.Errorf("amplitude must be in (0, %.2f], got %v", MaxAmplitude, p.Amplitude))
	}
	return nil
}

// Frames returns the number of samples that cover d at sampleRate
func Frames(d time.Duration, sampleRate int) int {
	return int(math.Round(d.Seconds() * float64(sampleRate)))
}

// DurationOf returns the playback time of n samples at sampleRate
func DurationOf(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(sampleRate) * float64(time.Second))
}

// PutFloat32LE packs samples into dst as little-endian float32.
// dst must hold at least len(samples)*BytesPerSample bytes.
func PutFloat32LE(dst []byte, samples []float32) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(dst[i*BytesPerSample:], math.Float32bits(s))
	}
}

// Float32LEBytes returns samples packed as little-endian float32
func Float32LEBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	PutFloat32LE(out, samples)
	return out
}

// Float32FromLE unpacks little-endian float32 bytes into samples
func Float32FromLE(b []byte) []float32 {
	samples := make([]float32, len(b)/BytesPerSample)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*BytesPerSample:]))
	}
	return samples
}
