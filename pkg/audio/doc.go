// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the noise profile, audio error taxonomy and sample conversions
// Package audio provides the fundamental audio types shared by the generators,
// the output backends and the engine.
//
// This package defines:
//   - NoiseProfile: sample rate and amplitude of the generated noise
//   - Error: typed audio failures (device unavailable, invalid configuration,
//     playback interrupted, chime failed)
//
// It also provides helpers for packing float32 samples into the little-endian
// byte layout used by the output devices.
//
// Example:
//
//	profile := audio.NoiseProfile{SampleRate: 44100, Amplitude: 0.12}
//	if err := profile.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package audio
