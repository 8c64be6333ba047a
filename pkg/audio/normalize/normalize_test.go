// ABOUTME: Tests for the sample format normalizer
// ABOUTME: Covers scaling, bounds, and malformed input handling per format
package normalize

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/dcam0050/DoraROSBridge/pkg/audio"
)

func TestNormalizeS16LEFullScale(t *testing.T) {
	// Full-scale input: -32768 and 32767 little-endian
	data := make([]byte, 4)
	binary.LittleEndian.PutUint16(data[0:], uint16(0x8000)) // -32768
	binary.LittleEndian.PutUint16(data[2:], uint16(0x7FFF)) // 32767

	frame, err := Normalize(audio.Packet{Data: data, Format: audio.FormatS16LE, SampleRate: 48000, Channels: 1})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if len(frame.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(frame.Samples))
	}
	if frame.Samples[0] != -1.0 {
		t.Errorf("expected -32768 -> -1.0, got %v", frame.Samples[0])
	}
	// 32767/32768 is just under full scale
	want := float32(32767.0 / 32768.0)
	if frame.Samples[1] != want {
		t.Errorf("expected 32767 -> %v, got %v", want, frame.Samples[1])
	}
}

func TestNormalizeS8(t *testing.T) {
	data := []byte{0x80, 0x7F, 0x00} // -128, 127, 0
	frame, err := Normalize(audio.Packet{Data: data, Format: audio.FormatS8, SampleRate: 8000, Channels: 1})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if frame.Samples[0] != -1.0 {
		t.Errorf("expected -128 -> -1.0, got %v", frame.Samples[0])
	}
	if frame.Samples[1] != float32(127.0/128.0) {
		t.Errorf("expected 127 -> %v, got %v", float32(127.0/128.0), frame.Samples[1])
	}
	if frame.Samples[2] != 0 {
		t.Errorf("expected 0 -> 0, got %v", frame.Samples[2])
	}
}

func TestNormalizeU8Midpoint(t *testing.T) {
	// U8 is offset binary: 128 is silence, 0 is -1.0, 255 just under +1.0
	data := []byte{128, 0, 255}
	frame, err := Normalize(audio.Packet{Data: data, Format: audio.FormatU8, SampleRate: 8000, Channels: 1})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if frame.Samples[0] != 0 {
		t.Errorf("expected 128 -> 0, got %v", frame.Samples[0])
	}
	if frame.Samples[1] != -1.0 {
		t.Errorf("expected 0 -> -1.0, got %v", frame.Samples[1])
	}
	if frame.Samples[2] != float32(127.0/128.0) {
		t.Errorf("expected 255 -> %v, got %v", float32(127.0/128.0), frame.Samples[2])
	}
}

func TestNormalizeS32LEFullScale(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], uint32(0x80000000)) // -2147483648
	binary.LittleEndian.PutUint32(data[4:], uint32(0x7FFFFFFF)) // 2147483647

	frame, err := Normalize(audio.Packet{Data: data, Format: audio.FormatS32LE, SampleRate: 48000, Channels: 1})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if frame.Samples[0] != -1.0 {
		t.Errorf("expected min int32 -> -1.0, got %v", frame.Samples[0])
	}
	if frame.Samples[1] < 0.9999 || frame.Samples[1] > 1.0 {
		t.Errorf("expected max int32 just under 1.0, got %v", frame.Samples[1])
	}
}

func TestNormalizeF32LEPassthroughAndClamp(t *testing.T) {
	values := []float32{0.5, -0.25, 2.0, -3.0, float32(math.NaN())}
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}

	frame, err := Normalize(audio.Packet{Data: data, Format: audio.FormatF32LE, SampleRate: 44100, Channels: 1})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if frame.Samples[0] != 0.5 || frame.Samples[1] != -0.25 {
		t.Errorf("in-range values should pass through, got %v, %v", frame.Samples[0], frame.Samples[1])
	}
	if frame.Samples[2] != 1.0 {
		t.Errorf("expected 2.0 clamped to 1.0, got %v", frame.Samples[2])
	}
	if frame.Samples[3] != -1.0 {
		t.Errorf("expected -3.0 clamped to -1.0, got %v", frame.Samples[3])
	}
	if frame.Samples[4] != 0 {
		t.Errorf("expected NaN mapped to 0, got %v", frame.Samples[4])
	}
}

func TestNormalizeSampleCount(t *testing.T) {
	// Output length must be payload bytes / sample width for every format
	cases := []struct {
		format audio.SampleFormat
		bytes  int
		want   int
	}{
		{audio.FormatS8, 7, 7},
		{audio.FormatU8, 3, 3},
		{audio.FormatS16LE, 12, 6},
		{audio.FormatS32LE, 16, 4},
		{audio.FormatF32LE, 20, 5},
	}

	for _, tc := range cases {
		frame, err := Normalize(audio.Packet{
			Data:       make([]byte, tc.bytes),
			Format:     tc.format,
			SampleRate: 48000,
			Channels:   1,
		})
		if err != nil {
			t.Fatalf("%s: normalize failed: %v", tc.format, err)
		}
		if len(frame.Samples) != tc.want {
			t.Errorf("%s: expected %d samples from %d bytes, got %d",
				tc.format, tc.want, tc.bytes, len(frame.Samples))
		}
	}
}

func TestNormalizeBounds(t *testing.T) {
	// Every output sample stays inside [-1, 1] for arbitrary input bytes
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}

	for _, format := range []audio.SampleFormat{
		audio.FormatS8, audio.FormatU8, audio.FormatS16LE, audio.FormatS32LE, audio.FormatF32LE,
	} {
		frame, err := Normalize(audio.Packet{Data: data, Format: format, SampleRate: 48000, Channels: 1})
		if err != nil {
			t.Fatalf("%s: normalize failed: %v", format, err)
		}
		for i, s := range frame.Samples {
			if s < -1.0 || s > 1.0 {
				t.Fatalf("%s: sample %d out of range: %v", format, i, s)
			}
		}
	}
}

func TestNormalizeUnsupportedFormat(t *testing.T) {
	_, err := Normalize(audio.Packet{Data: []byte{0, 0}, Format: audio.FormatUnknown, SampleRate: 48000, Channels: 1})
	if !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestNormalizeMalformedPayload(t *testing.T) {
	// 5 bytes is not a whole number of 16-bit samples
	_, err := Normalize(audio.Packet{Data: make([]byte, 5), Format: audio.FormatS16LE, SampleRate: 48000, Channels: 1})
	if !errors.Is(err, audio.ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}

	// 6 bytes is not a whole number of float32 samples
	_, err = Normalize(audio.Packet{Data: make([]byte, 6), Format: audio.FormatF32LE, SampleRate: 48000, Channels: 1})
	if !errors.Is(err, audio.ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}

func TestNormalizeEmptyPayload(t *testing.T) {
	frame, err := Normalize(audio.Packet{Data: nil, Format: audio.FormatS16LE, SampleRate: 48000, Channels: 2})
	if err != nil {
		t.Fatalf("normalize failed on empty payload: %v", err)
	}
	if len(frame.Samples) != 0 {
		t.Errorf("expected 0 samples, got %d", len(frame.Samples))
	}
	if frame.SampleRate != 48000 || frame.Channels != 2 {
		t.Errorf("metadata should pass through, got rate=%d channels=%d", frame.SampleRate, frame.Channels)
	}
}
