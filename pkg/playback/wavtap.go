// ABOUTME: Debug capture of the post-mix mono stream
// ABOUTME: Keeps a bounded sample window and writes it out as a 16-bit WAV
package playback

import (
	"fmt"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavTap captures the device-rate mono stream feeding the playback buffer so
// pipeline output can be inspected offline. The capture window is bounded;
// older audio is evicted once maxSeconds of samples are held.
type WavTap struct {
	mu         sync.Mutex
	path       string
	sampleRate int
	maxSamples int
	samples    []float32
}

// NewWavTap creates a tap writing to path on Flush, keeping at most
// maxSeconds of audio at sampleRate.
func NewWavTap(path string, sampleRate, maxSeconds int) *WavTap {
	if maxSeconds < 1 {
		maxSeconds = 1
	}
	return &WavTap{
		path:       path,
		sampleRate: sampleRate,
		maxSamples: sampleRate * maxSeconds,
	}
}

// Push appends samples to the capture window, evicting the oldest beyond the
// window bound.
func (w *WavTap) Push(samples []float32) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples = append(w.samples, samples...)
	if over := len(w.samples) - w.maxSamples; over > 0 {
		w.samples = append(w.samples[:0], w.samples[over:]...)
	}
}

// Len returns the number of captured samples.
func (w *WavTap) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.samples)
}

// Flush writes the captured window to the tap's path as a mono 16-bit PCM
// WAV file.
func (w *WavTap) Flush() error {
	w.mu.Lock()
	samples := make([]float32, len(w.samples))
	copy(samples, w.samples)
	sampleRate := w.sampleRate
	path := w.path
	w.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav capture: %w", err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		v := int(s * 32767.0)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		buf.Data[i] = v
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("write wav capture: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav capture: %w", err)
	}
	return f.Close()
}
