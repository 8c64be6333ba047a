// ABOUTME: Core audio type definitions
// ABOUTME: Defines sample formats, raw packets, and normalized frames
package audio

import (
	"errors"
	"time"
)

// SampleFormat identifies the binary encoding of samples in a raw packet.
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatS8
	FormatU8
	FormatS16LE
	FormatS32LE
	FormatF32LE
)

// ErrUnsupportedFormat is returned when a packet declares a sample format
// the normalizer has no conversion for.
var ErrUnsupportedFormat = errors.New("unsupported sample format")

// ErrMalformedPacket is returned when a packet's payload length is not a
// whole number of samples for its declared format.
var ErrMalformedPacket = errors.New("malformed packet")

// ParseSampleFormat maps the wire spelling of a format to its SampleFormat.
// Unrecognized spellings map to FormatUnknown.
func ParseSampleFormat(s string) SampleFormat {
	switch s {
	case "S8":
		return FormatS8
	case "U8":
		return FormatU8
	case "S16LE":
		return FormatS16LE
	case "S32LE":
		return FormatS32LE
	case "F32LE":
		return FormatF32LE
	default:
		return FormatUnknown
	}
}

// String returns the wire spelling of the format.
func (f SampleFormat) String() string {
	switch f {
	case FormatS8:
		return "S8"
	case FormatU8:
		return "U8"
	case FormatS16LE:
		return "S16LE"
	case FormatS32LE:
		return "S32LE"
	case FormatF32LE:
		return "F32LE"
	default:
		return "unknown"
	}
}

// Width returns the size of one sample in bytes, or 0 for FormatUnknown.
func (f SampleFormat) Width() int {
	switch f {
	case FormatS8, FormatU8:
		return 1
	case FormatS16LE:
		return 2
	case FormatS32LE, FormatF32LE:
		return 4
	default:
		return 0
	}
}

// Packet is one unit of raw audio as delivered by a source. Metadata rides
// with the payload because sources may change format between packets.
type Packet struct {
	Data       []byte
	Format     SampleFormat
	SampleRate int
	Channels   int
	Received   time.Time
}

// Frames returns the number of per-channel sample groups in the packet,
// assuming a well-formed payload.
func (p Packet) Frames() int {
	w := p.Format.Width()
	if w == 0 || p.Channels == 0 {
		return 0
	}
	return len(p.Data) / (w * p.Channels)
}

// Frame is normalized audio: interleaved float32 samples in [-1, 1].
type Frame struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration returns the play time the frame covers.
func (f Frame) Duration() time.Duration {
	if f.SampleRate == 0 || f.Channels == 0 {
		return 0
	}
	frames := len(f.Samples) / f.Channels
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}
