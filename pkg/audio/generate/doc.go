// ABOUTME: Sample generators package
// ABOUTME: Provides white noise and sine tone generation as float32 PCM
// Package generate produces the audio the timer plays.
//
// Supported signals:
//   - White noise: uniform samples in [-amplitude, amplitude]
//   - Tone: a fixed-length sine burst used as the completion chime
//
// All output is mono float32 PCM.
//
// Example:
//
//	gen := generate.NewNoiseGenerator(audio.DefaultNoiseProfile())
//	buf := make([]float32, 512)
//	gen.Fill(buf)
//
//	chime := generate.Tone(880, 600*time.Millisecond, 44100)
package generate
