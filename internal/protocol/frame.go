// ABOUTME: Binary wire codec for raw audio frames
// ABOUTME: Packs per-packet format metadata into a fixed header ahead of the payload
package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/dcam0050/DoraROSBridge/pkg/audio"
)

// AudioFrameMessageType identifies binary audio frames on the wire.
const AudioFrameMessageType = 0x01

// Binary format: [message_type:1][format_code:1][channels:1][sample_rate:4 BE][payload:N]
const frameHeaderLen = 7

// EncodeAudioFrame packs a raw packet into a binary wire frame. Zero
// SampleRate or Channels are encoded as zero, meaning "sender declares
// nothing"; the sink substitutes its configured defaults.
func EncodeAudioFrame(pkt audio.Packet) []byte {
	frame := make([]byte, frameHeaderLen+len(pkt.Data))
	frame[0] = AudioFrameMessageType
	frame[1] = formatCode(pkt.Format)
	frame[2] = byte(pkt.Channels)
	binary.BigEndian.PutUint32(frame[3:7], uint32(pkt.SampleRate))
	copy(frame[frameHeaderLen:], pkt.Data)
	return frame
}

// DecodeAudioFrame unpacks a binary wire frame into a raw packet. The
// returned packet aliases data's payload bytes. An unknown format code
// decodes to FormatUnknown so the normalizer can reject it per packet.
func DecodeAudioFrame(data []byte) (audio.Packet, error) {
	if len(data) < frameHeaderLen {
		return audio.Packet{}, fmt.Errorf("%w: binary frame truncated at %d bytes", audio.ErrMalformedPacket, len(data))
	}
	if data[0] != AudioFrameMessageType {
		return audio.Packet{}, fmt.Errorf("unknown binary message type %d", data[0])
	}

	return audio.Packet{
		Data:       data[frameHeaderLen:],
		Format:     formatFromCode(data[1]),
		Channels:   int(data[2]),
		SampleRate: int(binary.BigEndian.Uint32(data[3:7])),
	}, nil
}

// formatCode maps a sample format to its stable wire code. The codes are
// part of the protocol and must not change between releases.
func formatCode(f audio.SampleFormat) byte {
	switch f {
	case audio.FormatS8:
		return 1
	case audio.FormatU8:
		return 2
	case audio.FormatS16LE:
		return 3
	case audio.FormatS32LE:
		return 4
	case audio.FormatF32LE:
		return 5
	default:
		return 0
	}
}

func formatFromCode(code byte) audio.SampleFormat {
	switch code {
	case 1:
		return audio.FormatS8
	case 2:
		return audio.FormatU8
	case 3:
		return audio.FormatS16LE
	case 4:
		return audio.FormatS32LE
	case 5:
		return audio.FormatF32LE
	default:
		return audio.FormatUnknown
	}
}
