// ABOUTME: Sample format normalizer
// ABOUTME: Converts raw packet payloads to float32 frames in [-1, 1]
package normalize

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dcam0050/DoraROSBridge/pkg/audio"
)

// Normalize converts a packet's payload to a Frame of float32 samples in
// [-1, 1]. The frame carries the packet's sample rate and channel count
// unchanged. Packets with an unknown format or a payload that is not a whole
// number of samples are rejected; the input is never modified.
func Normalize(pkt audio.Packet) (audio.Frame, error) {
	width := pkt.Format.Width()
	if width == 0 {
		return audio.Frame{}, fmt.Errorf("%w: %s", audio.ErrUnsupportedFormat, pkt.Format)
	}
	if len(pkt.Data)%width != 0 {
		return audio.Frame{}, fmt.Errorf("%w: %d bytes is not a whole number of %s samples",
			audio.ErrMalformedPacket, len(pkt.Data), pkt.Format)
	}

	n := len(pkt.Data) / width
	samples := make([]float32, n)

	switch pkt.Format {
	case audio.FormatS8:
		for i := 0; i < n; i++ {
			samples[i] = float32(int8(pkt.Data[i])) / 128.0
		}
	case audio.FormatU8:
		for i := 0; i < n; i++ {
			samples[i] = (float32(pkt.Data[i]) - 128.0) / 128.0
		}
	case audio.FormatS16LE:
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(pkt.Data[i*2:]))
			samples[i] = float32(v) / 32768.0
		}
	case audio.FormatS32LE:
		for i := 0; i < n; i++ {
			v := int32(binary.LittleEndian.Uint32(pkt.Data[i*4:]))
			samples[i] = float32(float64(v) / 2147483648.0)
		}
	case audio.FormatF32LE:
		for i := 0; i < n; i++ {
			v := math.Float32frombits(binary.LittleEndian.Uint32(pkt.Data[i*4:]))
			samples[i] = clamp(v)
		}
	}

	return audio.Frame{
		Samples:    samples,
		SampleRate: pkt.SampleRate,
		Channels:   pkt.Channels,
	}, nil
}

// clamp bounds a sample to [-1, 1]. Float payloads may carry out-of-range
// values; NaN maps to 0 so one bad sample cannot poison downstream sums.
func clamp(v float32) float32 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
