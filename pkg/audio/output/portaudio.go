//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform audio output using PortAudio float32 streams
package output

import (
	"log"

	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation. PortAudio's callback hands over an
// interleaved float32 buffer, which maps directly onto Source.Pull.
type PortAudio struct {
	stream *portaudio.Stream
	src    Source
}

// NewPortAudio creates a new PortAudio output.
func NewPortAudio() Output {
	return &PortAudio{}
}

// Open initializes PortAudio and starts the stream.
func (p *PortAudio) Open(sampleRate, channels int, src Source) error {
	if err := portaudio.Initialize(); err != nil {
		return &DeviceInitError{Backend: "portaudio", Err: err}
	}

	p.src = src
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), 0, func(out []float32) {
		p.src.Pull(out)
	})
	if err != nil {
		portaudio.Terminate()
		return &DeviceInitError{Backend: "portaudio", Err: err}
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return &DeviceInitError{Backend: "portaudio", Err: err}
	}

	p.stream = stream
	log.Printf("Audio output initialized: %dHz, %d channels (portaudio/f32)", sampleRate, channels)
	return nil
}

// Close releases resources.
func (p *PortAudio) Close() error {
	if p.stream != nil {
		if err := p.stream.Stop(); err != nil {
			log.Printf("Warning: portaudio stream stop error: %v", err)
		}
		if err := p.stream.Close(); err != nil {
			log.Printf("Warning: portaudio stream close error: %v", err)
		}
		p.stream = nil
	}
	return portaudio.Terminate()
}
