// ABOUTME: Tests for the channel mixer
// ABOUTME: Covers mono fan-out, downmix averaging, and the general remap path
package mix

import (
	"testing"

	"github.com/dcam0050/DoraROSBridge/pkg/audio"
)

func TestMixMonoToStereo(t *testing.T) {
	frame := audio.Frame{
		Samples:    []float32{0.1, -0.2, 0.3},
		SampleRate: 48000,
		Channels:   1,
	}

	out := Mix(frame, 2)

	if out.Channels != 2 {
		t.Fatalf("expected 2 channels, got %d", out.Channels)
	}
	want := []float32{0.1, 0.1, -0.2, -0.2, 0.3, 0.3}
	if len(out.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(out.Samples))
	}
	for i := range want {
		if out.Samples[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], out.Samples[i])
		}
	}
}

func TestMixStereoToMono(t *testing.T) {
	// Opposite full-scale samples cancel to exactly zero
	frame := audio.Frame{
		Samples:    []float32{1.0, -1.0, 0.5, 0.5},
		SampleRate: 48000,
		Channels:   2,
	}

	out := Mix(frame, 1)

	if out.Channels != 1 {
		t.Fatalf("expected 1 channel, got %d", out.Channels)
	}
	if len(out.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(out.Samples))
	}
	if out.Samples[0] != 0 {
		t.Errorf("expected [1,-1] to average to 0, got %v", out.Samples[0])
	}
	if out.Samples[1] != 0.5 {
		t.Errorf("expected [0.5,0.5] to average to 0.5, got %v", out.Samples[1])
	}
}

func TestMixQuadToMono(t *testing.T) {
	frame := audio.Frame{
		Samples:    []float32{0.4, 0.4, 0.4, 0.4, 1.0, -1.0, 0.5, -0.5},
		SampleRate: 44100,
		Channels:   4,
	}

	out := Mix(frame, 1)

	if len(out.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(out.Samples))
	}
	if out.Samples[0] != 0.4 {
		t.Errorf("expected uniform frame to average to itself, got %v", out.Samples[0])
	}
	if out.Samples[1] != 0 {
		t.Errorf("expected symmetric frame to average to 0, got %v", out.Samples[1])
	}
}

func TestMixPassthrough(t *testing.T) {
	frame := audio.Frame{
		Samples:    []float32{0.1, 0.2, 0.3, 0.4},
		SampleRate: 48000,
		Channels:   2,
	}

	out := Mix(frame, 2)

	// Matching layout must not copy
	if &out.Samples[0] != &frame.Samples[0] {
		t.Error("expected passthrough to reuse the input slice")
	}
}

func TestMixStereoToQuad(t *testing.T) {
	// Widening repeats input channels: out channel c takes in channel c%2
	frame := audio.Frame{
		Samples:    []float32{0.1, 0.2},
		SampleRate: 48000,
		Channels:   2,
	}

	out := Mix(frame, 4)

	want := []float32{0.1, 0.2, 0.1, 0.2}
	if len(out.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(out.Samples))
	}
	for i := range want {
		if out.Samples[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], out.Samples[i])
		}
	}
}

func TestMixQuadToStereo(t *testing.T) {
	// Narrowing keeps the leading channels
	frame := audio.Frame{
		Samples:    []float32{0.1, 0.2, 0.3, 0.4},
		SampleRate: 48000,
		Channels:   4,
	}

	out := Mix(frame, 2)

	want := []float32{0.1, 0.2}
	if len(out.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(out.Samples))
	}
	for i := range want {
		if out.Samples[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], out.Samples[i])
		}
	}
}

func TestMixPreservesFrameCount(t *testing.T) {
	cases := []struct{ in, out int }{
		{1, 2}, {2, 1}, {2, 4}, {4, 2}, {3, 5}, {6, 1}, {1, 8},
	}
	const frames = 17

	for _, tc := range cases {
		frame := audio.Frame{
			Samples:    make([]float32, frames*tc.in),
			SampleRate: 48000,
			Channels:   tc.in,
		}
		out := Mix(frame, tc.out)
		if len(out.Samples) != frames*tc.out {
			t.Errorf("%d->%d: expected %d samples, got %d",
				tc.in, tc.out, frames*tc.out, len(out.Samples))
		}
	}
}

func TestFanOut(t *testing.T) {
	mono := []float32{0.5, -0.5}
	dst := make([]float32, 6)

	FanOut(dst, mono, 3)

	want := []float32{0.5, 0.5, 0.5, -0.5, -0.5, -0.5}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], dst[i])
		}
	}
}
