//go:build malgo

// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo for callback-driven float32 playback
package output

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/harperreed/noise-pomodoro/pkg/audio"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	closed   bool

	// plays tracks one-shot devices that still belong to malgoCtx
	plays sync.WaitGroup
}

// NewMalgo creates a new Malgo output
func NewMalgo() Device {
	return &Malgo{}
}

// context returns the shared miniaudio context (must not hold m.mu)
func (m *Malgo) context() (*malgo.AllocatedContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.New("malgo output closed")
	}
	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}
	return m.malgoCtx, nil
}

// initDevice creates and starts a mono float32 playback device
func (m *Malgo) initDevice(sampleRate int, callbacks malgo.DeviceCallbacks) (*malgo.Device, error) {
	ctx, err := m.context()
	if err != nil {
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = audio.Channels
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start device: %w", err)
	}

	return device, nil
}

// OpenStream starts a device whose data callback pulls from fill
func (m *Malgo) OpenStream(sampleRate int, fill FillFunc) (Stream, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	s := &malgoStream{
		gate: newStreamGate(fill),
		// One period at 44.1kHz is usually well under this
		buf: make([]float32, 4096),
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, _ []byte, frameCount uint32) {
			s.dataCallback(pOutputSample, frameCount)
		},
		Stop: func() {
			s.gate.fail(errors.New("device stopped"))
		},
	}

	device, err := m.initDevice(sampleRate, callbacks)
	if err != nil {
		return nil, err
	}
	s.device = device

	log.Printf("Audio stream started: %dHz, %d channel (malgo)", sampleRate, audio.Channels)

	return s, nil
}

// Play renders samples through a dedicated device and waits for the last frame
func (m *Malgo) Play(ctx context.Context, samples []float32, sampleRate int) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("malgo output closed")
	}
	m.plays.Add(1)
	m.mu.Unlock()
	defer m.plays.Done()

	shot := newOneShot(samples, 4096)
	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, _ []byte, frameCount uint32) {
			audio.PutFloat32LE(pOutputSample, shot.next(int(frameCount)*audio.Channels))
		},
	}

	device, err := m.initDevice(sampleRate, callbacks)
	if err != nil {
		return err
	}
	defer device.Uninit()

	select {
	case <-shot.Finished():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for in-flight Play calls to release their devices, then
// releases the miniaudio context
func (m *Malgo) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.plays.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

type malgoStream struct {
	gate      *streamGate
	device    *malgo.Device
	buf       []float32
	closeOnce sync.Once
}

// dataCallback is called by malgo to fill the audio output buffer
func (s *malgoStream) dataCallback(pOutput []byte, frameCount uint32) {
	n := int(frameCount) * audio.Channels
	if cap(s.buf) < n {
		s.buf = make([]float32, n)
	}
	samples := s.buf[:n]

	s.gate.render(samples)
	audio.PutFloat32LE(pOutput, samples)
}

func (s *malgoStream) Err() <-chan error {
	return s.gate.errCh
}

// Close stops and uninitializes the device
func (s *malgoStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.gate.close()
		if stopErr := s.device.Stop(); stopErr != nil {
			err = fmt.Errorf("device stop error: %w", stopErr)
		}
		s.device.Uninit()
	})
	return err
}
