//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"
)

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{}
}

// Open reports that PortAudio support is not compiled in.
func (p *PortAudio) Open(sampleRate, channels int, src Source) error {
	return &DeviceInitError{
		Backend: "portaudio",
		Err:     errors.New("support not enabled (build with -tags portaudio)"),
	}
}

// Close releases resources.
func (p *PortAudio) Close() error {
	return nil
}
