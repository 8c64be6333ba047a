// ABOUTME: Tests for the WAV debug capture
// ABOUTME: Covers window bounding and the written file's validity
package playback

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestWavTapBoundsWindow(t *testing.T) {
	// 1 second at 100Hz keeps at most 100 samples
	tap := NewWavTap(filepath.Join(t.TempDir(), "cap.wav"), 100, 1)

	tap.Push(make([]float32, 80))
	if tap.Len() != 80 {
		t.Fatalf("expected 80 samples, got %d", tap.Len())
	}

	tap.Push(make([]float32, 50))
	if tap.Len() != 100 {
		t.Errorf("expected window capped at 100 samples, got %d", tap.Len())
	}
}

func TestWavTapKeepsNewest(t *testing.T) {
	tap := NewWavTap(filepath.Join(t.TempDir(), "cap.wav"), 4, 1)

	tap.Push([]float32{0.1, 0.2, 0.3})
	tap.Push([]float32{0.4, 0.5})

	if tap.Len() != 4 {
		t.Fatalf("expected 4 samples, got %d", tap.Len())
	}
	// Oldest sample (0.1) evicted
	if tap.samples[0] != 0.2 {
		t.Errorf("expected oldest surviving sample 0.2, got %v", tap.samples[0])
	}
	if tap.samples[3] != 0.5 {
		t.Errorf("expected newest sample 0.5, got %v", tap.samples[3])
	}
}

func TestWavTapFlushWritesValidWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cap.wav")
	tap := NewWavTap(path, 8000, 2)

	tap.Push([]float32{0.5, -0.5, 0.25, -0.25})
	if err := tap.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open capture: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("capture is not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode capture: %v", err)
	}
	if buf.Format.SampleRate != 8000 {
		t.Errorf("expected 8000Hz, got %d", buf.Format.SampleRate)
	}
	if buf.Format.NumChannels != 1 {
		t.Errorf("expected mono, got %d channels", buf.Format.NumChannels)
	}
	if len(buf.Data) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(buf.Data))
	}
	// 0.5 scales to 16383 at 16-bit
	if buf.Data[0] < 16000 || buf.Data[0] > 16500 {
		t.Errorf("expected first sample near 16384, got %d", buf.Data[0])
	}
}
