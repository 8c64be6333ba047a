// ABOUTME: Audio output interface definition
// ABOUTME: Common pull-based interface for audio playback backends
package output

import "fmt"

// Source supplies audio to an output device. Pull fills dst, an interleaved
// float32 buffer laid out for the channel count the device was opened with,
// and returns how many samples came from real audio. The implementation pads
// any shortfall with silence, so dst is always fully written. Pull is called
// from the device's realtime context and must not block on I/O.
type Source interface {
	Pull(dst []float32) int
}

// Output represents a pull-based audio output device. Open acquires the
// device and starts draining src; Close stops the device and releases it.
type Output interface {
	Open(sampleRate, channels int, src Source) error
	Close() error
}

// DeviceInitError reports a failure to acquire or start an output device.
// It is fatal to the playback session; callers decide whether to retry.
type DeviceInitError struct {
	Backend string
	Err     error
}

func (e *DeviceInitError) Error() string {
	return fmt.Sprintf("%s device init failed: %v", e.Backend, e.Err)
}

func (e *DeviceInitError) Unwrap() error {
	return e.Err
}
