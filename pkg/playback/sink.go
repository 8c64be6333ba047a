// ABOUTME: Device-facing pull adapter over the playback buffer
// ABOUTME: Pads underruns with silence and applies preroll gating and gain
package playback

import (
	"sync/atomic"

	"github.com/dcam0050/DoraROSBridge/pkg/audio/mix"
)

// deviceFeed answers the device callback's pulls from the playback buffer.
// Each pull does a bounded amount of work: one buffer drain, a gain multiply,
// and a mono fan-out to the device's channel layout. Shortfalls come back as
// silence so the device always gets a full period.
//
// Until the buffer has accumulated preroll samples, a pull that the buffer
// cannot fully satisfy produces pure silence instead of draining the few
// samples present. Without the gate, the first packets of a stream trickle
// out as audible stutter; with it, playback opens with real margin. The gate
// re-arms whenever the buffer runs dry enough to fall below the threshold.
type deviceFeed struct {
	buffer   *Buffer
	channels int
	preroll  int

	volume atomic.Int32
	muted  atomic.Bool

	scratch   []float32
	pulls     atomic.Uint64
	underruns atomic.Uint64
}

func newDeviceFeed(buffer *Buffer, channels, preroll int) *deviceFeed {
	if channels < 1 {
		channels = 1
	}
	if preroll < 0 {
		preroll = 0
	}
	d := &deviceFeed{
		buffer:   buffer,
		channels: channels,
		preroll:  preroll,
	}
	d.volume.Store(100)
	return d
}

// Pull fills dst, an interleaved buffer for the configured channel count.
// It returns the number of dst samples backed by real audio; the rest is
// silence. Called from the device's realtime context: no locks are held
// beyond the buffer's own copy, and no allocation happens after the first
// call at a given period size.
func (d *deviceFeed) Pull(dst []float32) int {
	d.pulls.Add(1)

	mono := len(dst) / d.channels
	if mono == 0 {
		zeroSamples(dst)
		return 0
	}

	if avail := d.buffer.Len(); avail < mono && avail < d.preroll {
		zeroSamples(dst)
		if avail > 0 {
			d.underruns.Add(1)
		}
		return 0
	}

	if cap(d.scratch) < mono {
		d.scratch = make([]float32, mono)
	}
	scratch := d.scratch[:mono]

	n := d.buffer.Pull(scratch)
	if n < mono {
		d.underruns.Add(1)
		zeroSamples(scratch[n:])
	}

	if mult := d.gain(); mult != 1.0 {
		for i := 0; i < n; i++ {
			scratch[i] *= mult
		}
	}

	mix.FanOut(dst, scratch, d.channels)
	return n * d.channels
}

func (d *deviceFeed) gain() float32 {
	if d.muted.Load() {
		return 0
	}
	return float32(d.volume.Load()) / 100.0
}

// SetVolume sets playback volume (0-100).
func (d *deviceFeed) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	d.volume.Store(int32(volume))
}

// SetMuted sets the mute state.
func (d *deviceFeed) SetMuted(muted bool) {
	d.muted.Store(muted)
}

// Volume returns the current volume (0-100).
func (d *deviceFeed) Volume() int {
	return int(d.volume.Load())
}

// Muted returns the mute state.
func (d *deviceFeed) Muted() bool {
	return d.muted.Load()
}

// Underruns returns how many pulls were padded or silenced for lack of
// buffered audio.
func (d *deviceFeed) Underruns() uint64 {
	return d.underruns.Load()
}

// Pulls returns the total number of device pulls served.
func (d *deviceFeed) Pulls() uint64 {
	return d.pulls.Load()
}

func zeroSamples(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
