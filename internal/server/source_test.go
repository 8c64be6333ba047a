// ABOUTME: Tests for audio source loading and sample conversion
// ABOUTME: Covers dispatch by extension, WAV decode and looping, and scaling helpers
package server

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestNewSourceEmptyPathIsTone(t *testing.T) {
	src, err := NewSource("")
	if err != nil {
		t.Fatalf("expected tone source, got error: %v", err)
	}
	defer src.Close()

	if _, ok := src.(*ToneSource); !ok {
		t.Errorf("expected *ToneSource, got %T", src)
	}
}

func TestNewSourceMissingFile(t *testing.T) {
	if _, err := NewSource("/nonexistent/file.wav"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNewSourceUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.xyz")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewSource(path); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

// writeTestWAV writes a mono 16-bit WAV with the given samples
func writeTestWAV(t *testing.T, path string, rate int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		SourceBitDepth: 16,
		Data:           data,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestWAVSourceReadsSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	writeTestWAV(t, path, 8000, []int{100, -100, 2000, -2000})

	src, err := NewWAVSource(path)
	if err != nil {
		t.Fatalf("failed to open WAV: %v", err)
	}
	defer src.Close()

	if src.SampleRate() != 8000 {
		t.Errorf("expected rate 8000, got %d", src.SampleRate())
	}
	if src.Channels() != 1 {
		t.Errorf("expected mono, got %d channels", src.Channels())
	}

	samples := make([]int16, 4)
	n, err := src.Read(samples)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 samples, got %d", n)
	}

	expected := []int16{100, -100, 2000, -2000}
	for i := range expected {
		if samples[i] != expected[i] {
			t.Errorf("sample %d: expected %d, got %d", i, expected[i], samples[i])
		}
	}
}

func TestWAVSourceLoops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.wav")
	writeTestWAV(t, path, 8000, []int{1, 2, 3, 4})

	src, err := NewWAVSource(path)
	if err != nil {
		t.Fatalf("failed to open WAV: %v", err)
	}
	defer src.Close()

	first := make([]int16, 4)
	if _, err := src.Read(first); err != nil {
		t.Fatalf("first read failed: %v", err)
	}

	// The file is exhausted; the next read must rewind and replay
	second := make([]int16, 4)
	n, err := src.Read(second)
	if err != nil {
		t.Fatalf("looped read failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 samples after loop, got %d", n)
	}

	for i := range first {
		if second[i] != first[i] {
			t.Errorf("loop sample %d: expected %d, got %d", i, first[i], second[i])
		}
	}
}

func TestWAVSampleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		bitDepth int
		expected int16
	}{
		{"16-bit passthrough", 12345, 16, 12345},
		{"16-bit negative", -12345, 16, -12345},
		{"24-bit scales down", 8388607, 24, 32767},
		{"24-bit negative", -8388608, 24, -32768},
		{"8-bit midpoint is silence", 128, 8, 0},
		{"8-bit max", 255, 8, 32512},
		{"32-bit scales down", 1 << 30, 32, 16384},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wavSampleToInt16(tt.value, tt.bitDepth); got != tt.expected {
				t.Errorf("wavSampleToInt16(%d, %d) = %d, expected %d",
					tt.value, tt.bitDepth, got, tt.expected)
			}
		})
	}
}

func TestFloatSampleToInt16(t *testing.T) {
	tests := []struct {
		value    float32
		expected int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{2, 32767},   // clamped
		{-2, -32767}, // clamped
		{0.5, 16383},
	}

	for _, tt := range tests {
		if got := floatSampleToInt16(tt.value); got != tt.expected {
			t.Errorf("floatSampleToInt16(%f) = %d, expected %d", tt.value, got, tt.expected)
		}
	}
}
