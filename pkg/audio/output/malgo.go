// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses the miniaudio library via malgo for callback-driven playback
package output

import (
	"encoding/binary"
	"log"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// Malgo output implementation using the malgo/miniaudio library. The device
// runs a float32 stream and pulls directly from the Source inside miniaudio's
// data callback.
type Malgo struct {
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	src        Source
	sampleRate int
	channels   int
	scratch    []float32
	mu         sync.Mutex
}

// NewMalgo creates a new Malgo output.
func NewMalgo() Output {
	return &Malgo{}
}

// Open initializes the playback device and starts pulling from src.
func (m *Malgo) Open(sampleRate, channels int, src Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if m.sampleRate == sampleRate && m.channels == channels {
			log.Printf("Audio output already initialized with same format, reusing device")
			m.src = src
			return nil
		}
		m.closeDevice()
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return &DeviceInitError{Backend: "malgo", Err: err}
		}
		m.malgoCtx = ctx
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			m.dataCallback(pOutputSample, frameCount)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return &DeviceInitError{Backend: "malgo", Err: err}
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return &DeviceInitError{Backend: "malgo", Err: err}
	}

	m.device = device
	m.src = src
	m.sampleRate = sampleRate
	m.channels = channels

	log.Printf("Audio output initialized: %dHz, %d channels (malgo/f32)", sampleRate, channels)

	return nil
}

// dataCallback is called by malgo to fill the audio output buffer. It pulls
// interleaved float32 samples from the source and encodes them little-endian.
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	src := m.src
	if src == nil {
		for i := range pOutput {
			pOutput[i] = 0
		}
		return
	}

	total := int(frameCount) * m.channels
	if cap(m.scratch) < total {
		m.scratch = make([]float32, total)
	}
	scratch := m.scratch[:total]

	src.Pull(scratch)

	for i, s := range scratch {
		binary.LittleEndian.PutUint32(pOutput[i*4:], math.Float32bits(s))
	}
}

// Close releases output resources.
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}

	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu).
func (m *Malgo) closeDevice() {
	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	m.src = nil
}
