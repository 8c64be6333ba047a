// ABOUTME: Oto-based audio output implementation
// ABOUTME: Bridges oto's reader-driven player to the pull Source interface
package output

import (
	"encoding/binary"
	"log"

	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using the oto library. Oto drives playback by
// reading from an io.Reader, so the Source is wrapped in a reader that
// converts pulled float32 samples to the S16LE stream oto consumes.
type Oto struct {
	otoCtx     *oto.Context
	player     *oto.Player
	sampleRate int
	channels   int
}

// NewOto creates a new Oto output.
func NewOto() Output {
	return &Oto{}
}

// Open initializes the output device and starts the player.
func (o *Oto) Open(sampleRate, channels int, src Source) error {
	// oto allows only one context per process and cannot be reconfigured
	if o.otoCtx != nil {
		if o.sampleRate != sampleRate || o.channels != channels {
			log.Printf("Warning: format change (%dHz %dch -> %dHz %dch) not supported by oto, keeping existing context",
				o.sampleRate, o.channels, sampleRate, channels)
		}
		if o.player != nil {
			o.player.Close()
		}
		o.player = o.otoCtx.NewPlayer(&srcReader{src: src, channels: o.channels})
		o.player.Play()
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return &DeviceInitError{Backend: "oto", Err: err}
	}

	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels

	o.player = o.otoCtx.NewPlayer(&srcReader{src: src, channels: channels})
	o.player.Play()

	log.Printf("Audio output initialized: %dHz, %d channels (oto/s16le)", sampleRate, channels)

	return nil
}

// Close stops the player and suspends the context. The oto context itself
// cannot be torn down; suspending releases the device until the next Open.
func (o *Oto) Close() error {
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Warning: oto context suspend error: %v", err)
		}
	}
	return nil
}

// srcReader adapts a Source to the io.Reader oto's player drains. Each Read
// pulls whole frames of float32 audio and encodes them as S16LE bytes; a
// request too small for one frame is filled with silence.
type srcReader struct {
	src      Source
	channels int
	scratch  []float32
}

func (r *srcReader) Read(p []byte) (int, error) {
	bytesPerFrame := 2 * r.channels
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	total := frames * r.channels
	if cap(r.scratch) < total {
		r.scratch = make([]float32, total)
	}
	scratch := r.scratch[:total]

	r.src.Pull(scratch)

	for i, s := range scratch {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(sampleToInt16(s)))
	}

	return total * 2, nil
}

// sampleToInt16 converts a normalized float sample to S16LE range, clamping
// so gain boosts cannot wrap.
func sampleToInt16(s float32) int16 {
	v := int32(s * 32767.0)
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}
