// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Device interface with oto, malgo and null backends
// Package output provides audio playback devices.
//
// A Device opens continuous pull-based streams (the device calls a FillFunc
// whenever it needs samples) and plays one-shot buffers. Backends:
//   - Oto: default, cross-platform via ebitengine/oto
//   - Malgo: miniaudio callback device (build with -tags malgo)
//   - Null: no sound card; drives the callback from a ticker
//
// Example:
//
//	dev := output.NewOto()
//	stream, err := dev.OpenStream(44100, func(out []float32) {
//	    gen.Fill(out)
//	})
//	defer stream.Close()
package output
