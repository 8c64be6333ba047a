// ABOUTME: Test tone generator for the audio source
// ABOUTME: Generates a mono 440Hz sine wave
package server

import (
	"math"
	"sync"
)

const (
	// Tone format constants
	DefaultSampleRate = 48000
	DefaultChannels   = 1
)

// ToneSource generates a 440Hz test tone
type ToneSource struct {
	sampleIndex uint64
	sampleMu    sync.Mutex
	frequency   float64
}

// NewToneSource creates a new test tone generator
func NewToneSource() *ToneSource {
	return &ToneSource{
		frequency: 440.0, // A4 note
	}
}

func (s *ToneSource) Read(samples []int16) (int, error) {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	for i := range samples {
		t := float64(s.sampleIndex+uint64(i)) / float64(DefaultSampleRate)
		sample := math.Sin(2 * math.Pi * s.frequency * t)

		samples[i] = int16(sample * 32767.0 * 0.5) // 50% volume
	}

	s.sampleIndex += uint64(len(samples))

	return len(samples), nil
}

func (s *ToneSource) SampleRate() int { return DefaultSampleRate }
func (s *ToneSource) Channels() int   { return DefaultChannels }
func (s *ToneSource) Close() error    { return nil }
