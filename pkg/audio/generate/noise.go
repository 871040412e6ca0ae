// ABOUTME: White noise generator
// ABOUTME: Fills buffers with uniform noise scaled by the profile amplitude
package generate

import (
	"math/rand/v2"

	"github.com/harperreed/noise-pomodoro/pkg/audio"
)

// NoiseGenerator produces uniform white noise. Its random state is not
// synchronized: each stream owns its own generator and only that stream's
// callback calls Fill.
type NoiseGenerator struct {
	rng       *rand.Rand
	amplitude float32
}

// NewNoiseGenerator creates a randomly seeded generator for profile
func NewNoiseGenerator(profile audio.NoiseProfile) *NoiseGenerator {
	return newSeededNoiseGenerator(profile, rand.Uint64(), rand.Uint64())
}

func newSeededNoiseGenerator(profile audio.NoiseProfile, seed1, seed2 uint64) *NoiseGenerator {
	return &NoiseGenerator{
		rng:       rand.New(rand.NewPCG(seed1, seed2)),
		amplitude: float32(profile.Amplitude),
	}
}

// Fill overwrites dst with noise. It does not allocate, so it is safe to
// call from an audio callback with a pre-sized buffer.
func (g *NoiseGenerator) Fill(dst []float32) {
	for i := range dst {
		dst[i] = float32(g.rng.Float64()*2-1) * g.amplitude
	}
}

// Noise returns n fresh noise samples for profile
func Noise(n int, profile audio.NoiseProfile) []float32 {
	if n < 0 {
		n = 0
	}
	out := make([]float32, n)
	NewNoiseGenerator(profile).Fill(out)
	return out
}
