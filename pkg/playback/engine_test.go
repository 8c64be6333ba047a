// ABOUTME: Tests for the playback engine
// ABOUTME: Covers state transitions, the ingest pipeline, and failure recovery
package playback

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dcam0050/DoraROSBridge/pkg/audio"
	"github.com/dcam0050/DoraROSBridge/pkg/audio/output"
)

// fakeOutput stands in for a device backend so tests can drive the pull side.
type fakeOutput struct {
	mu       sync.Mutex
	opened   bool
	rate     int
	channels int
	src      output.Source
	failErr  error
	closes   int
}

func (f *fakeOutput) Open(rate, channels int, src output.Source) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.opened = true
	f.rate = rate
	f.channels = channels
	f.src = src
	return nil
}

func (f *fakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = false
	f.closes++
	return nil
}

func (f *fakeOutput) pull(dst []float32) int {
	f.mu.Lock()
	src := f.src
	f.mu.Unlock()
	return src.Pull(dst)
}

// s16Packet builds a mono S16LE packet from int16 values.
func s16Packet(rate int, values ...int16) audio.Packet {
	data := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return audio.Packet{
		Data:       data,
		Format:     audio.FormatS16LE,
		SampleRate: rate,
		Channels:   1,
		Received:   time.Now(),
	}
}

func newTestEngine(t *testing.T, fake *fakeOutput, mutate func(*Config)) *Engine {
	t.Helper()
	config := Config{
		SampleRate:     48000,
		DeviceChannels: 1,
		PrerollMs:      -1,
		Output:         fake,
	}
	if mutate != nil {
		mutate(&config)
	}
	return NewEngine(config)
}

func TestEngineStartStopStateSequence(t *testing.T) {
	var states []State
	fake := &fakeOutput{}
	e := newTestEngine(t, fake, func(c *Config) {
		c.OnStateChange = func(s State) { states = append(states, s) }
	})

	if e.State() != StateStopped {
		t.Fatalf("expected initial state stopped, got %s", e.State())
	}

	if err := e.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !fake.opened {
		t.Error("expected device opened")
	}
	if fake.rate != 48000 || fake.channels != 1 {
		t.Errorf("device opened with %dHz %dch", fake.rate, fake.channels)
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if fake.opened {
		t.Error("expected device closed")
	}

	want := []State{StateStarting, StateRunning, StateStopping, StateStopped}
	if len(states) != len(want) {
		t.Fatalf("expected state sequence %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], states[i])
		}
	}
}

func TestEngineStartDeviceFailure(t *testing.T) {
	cause := errors.New("device busy")
	fake := &fakeOutput{failErr: &output.DeviceInitError{Backend: "fake", Err: cause}}
	e := newTestEngine(t, fake, nil)

	err := e.Start()
	if err == nil {
		t.Fatal("expected start to fail")
	}

	// The typed init error must reach the caller intact
	var initErr *output.DeviceInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected DeviceInitError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to survive")
	}

	if e.State() != StateStopped {
		t.Errorf("expected engine back in stopped, got %s", e.State())
	}

	// A later start with a healthy device recovers
	fake.failErr = nil
	if err := e.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	e.Stop()
}

func TestEngineStartTwice(t *testing.T) {
	fake := &fakeOutput{}
	e := newTestEngine(t, fake, nil)

	if err := e.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer e.Stop()

	if err := e.Start(); err == nil {
		t.Error("expected second start to fail")
	}
}

func TestEngineIngestBeforeStart(t *testing.T) {
	e := newTestEngine(t, &fakeOutput{}, nil)

	err := e.Ingest(s16Packet(48000, 100, 200))
	if !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestEngineEndToEnd(t *testing.T) {
	fake := &fakeOutput{}
	e := newTestEngine(t, fake, nil)

	if err := e.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer e.Stop()

	// 16384 normalizes to 0.5, -16384 to -0.5; rate matches the device so
	// the resampler passes through
	if err := e.Ingest(s16Packet(48000, 16384, -16384)); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	dst := make([]float32, 4)
	n := fake.pull(dst)

	if n != 2 {
		t.Fatalf("expected 2 real samples, got %d", n)
	}
	if dst[0] != 0.5 || dst[1] != -0.5 {
		t.Errorf("expected 0.5,-0.5, got %v,%v", dst[0], dst[1])
	}
	if dst[2] != 0 || dst[3] != 0 {
		t.Errorf("expected trailing silence, got %v,%v", dst[2], dst[3])
	}
}

func TestEngineMalformedPacketDoesNotHalt(t *testing.T) {
	fake := &fakeOutput{}
	var reported []error
	e := newTestEngine(t, fake, func(c *Config) {
		c.OnError = func(err error) { reported = append(reported, err) }
	})

	if err := e.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer e.Stop()

	// Odd byte count cannot be S16LE
	bad := audio.Packet{Data: []byte{1, 2, 3}, Format: audio.FormatS16LE, SampleRate: 48000, Channels: 1}
	if err := e.Ingest(bad); !errors.Is(err, audio.ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}

	if e.State() != StateRunning {
		t.Fatalf("malformed packet must not change state, got %s", e.State())
	}
	if len(reported) != 1 {
		t.Errorf("expected 1 reported error, got %d", len(reported))
	}

	// The next good packet plays normally
	if err := e.Ingest(s16Packet(48000, 16384)); err != nil {
		t.Fatalf("ingest after bad packet failed: %v", err)
	}
	dst := make([]float32, 1)
	if n := fake.pull(dst); n != 1 {
		t.Fatalf("expected 1 real sample, got %d", n)
	}

	stats := e.Stats()
	if stats.Malformed != 1 {
		t.Errorf("expected 1 malformed counted, got %d", stats.Malformed)
	}
	if stats.Packets != 1 {
		t.Errorf("expected 1 accepted packet, got %d", stats.Packets)
	}
}

func TestEngineUnsupportedFormatCounted(t *testing.T) {
	fake := &fakeOutput{}
	e := newTestEngine(t, fake, nil)
	if err := e.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer e.Stop()

	bad := audio.Packet{Data: []byte{1, 2}, Format: audio.FormatUnknown, SampleRate: 48000, Channels: 1}
	if err := e.Ingest(bad); !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	stats := e.Stats()
	if stats.Unsupported != 1 {
		t.Errorf("expected 1 unsupported counted, got %d", stats.Unsupported)
	}
}

func TestEngineRateChangeMidStream(t *testing.T) {
	fake := &fakeOutput{}
	e := newTestEngine(t, fake, nil)
	if err := e.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer e.Stop()

	// Same declared rate as the device, then a packet at a higher rate that
	// must be downsampled 2:1
	if err := e.Ingest(s16Packet(48000, 16384, 16384)); err != nil {
		t.Fatalf("ingest at device rate failed: %v", err)
	}
	if err := e.Ingest(s16Packet(96000, 8192, 8192, 8192, 8192)); err != nil {
		t.Fatalf("ingest at changed rate failed: %v", err)
	}

	// 2 passthrough + ~2 downsampled samples
	dst := make([]float32, 8)
	n := fake.pull(dst)
	if n < 3 || n > 5 {
		t.Errorf("expected 3-5 real samples across the rate change, got %d", n)
	}
}

func TestEngineDefaultsMetadatalessPackets(t *testing.T) {
	fake := &fakeOutput{}
	e := newTestEngine(t, fake, func(c *Config) {
		c.EnableDebug = true
	})
	if err := e.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer e.Stop()

	pkt := audio.Packet{Data: []byte{0, 64}, Format: audio.FormatS16LE} // rate/channels unset
	if err := e.Ingest(pkt); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	records := e.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].SampleRate != 48000 {
		t.Errorf("expected default rate 48000, got %d", records[0].SampleRate)
	}
	if records[0].Channels != 1 {
		t.Errorf("expected default channels 1, got %d", records[0].Channels)
	}
	if records[0].Timestamp.IsZero() {
		t.Error("expected arrival timestamp to be filled in")
	}
}

func TestEngineAnalyzeOnly(t *testing.T) {
	fake := &fakeOutput{}
	e := newTestEngine(t, fake, func(c *Config) {
		c.AnalyzeOnly = true
		c.EnableDebug = true
	})

	if err := e.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer e.Stop()

	if fake.opened {
		t.Error("analyze-only mode must not open the device")
	}

	if err := e.Ingest(s16Packet(48000, 100, -100)); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if got := len(e.Records()); got != 1 {
		t.Errorf("expected stats observation, got %d records", got)
	}
}

func TestEnginePeriodicFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio_debug.json")
	fake := &fakeOutput{}
	e := newTestEngine(t, fake, func(c *Config) {
		c.EnableDebug = true
		c.DebugFile = path
		c.FlushEvery = 2
	})
	if err := e.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer e.Stop()

	e.Ingest(s16Packet(48000, 1))
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected no flush after 1 packet")
	}

	e.Ingest(s16Packet(48000, 2))
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected flush after 2 packets: %v", err)
	}
}

func TestEngineStopDiscardsBuffer(t *testing.T) {
	fake := &fakeOutput{}
	e := newTestEngine(t, fake, nil)
	if err := e.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	e.Ingest(s16Packet(48000, 1, 2, 3, 4))
	if err := e.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if fake.closes != 1 {
		t.Errorf("expected 1 device close, got %d", fake.closes)
	}

	// Stop is idempotent
	if err := e.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
	if fake.closes != 1 {
		t.Errorf("second stop must not close again, got %d closes", fake.closes)
	}

	// Ingest after stop is rejected
	if err := e.Ingest(s16Packet(48000, 5)); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning after stop, got %v", err)
	}
}

func TestEnginesAreIsolated(t *testing.T) {
	fakeA := &fakeOutput{}
	fakeB := &fakeOutput{}
	a := newTestEngine(t, fakeA, nil)
	b := newTestEngine(t, fakeB, nil)

	if a.ID() == b.ID() {
		t.Error("expected distinct session IDs")
	}

	if err := a.Start(); err != nil {
		t.Fatalf("start a: %v", err)
	}
	defer a.Stop()
	if err := b.Start(); err != nil {
		t.Fatalf("start b: %v", err)
	}
	defer b.Stop()

	a.Ingest(s16Packet(48000, 16384, 16384, 16384))

	// Engine B's buffer must stay empty
	dst := make([]float32, 3)
	if n := fakeB.pull(dst); n != 0 {
		t.Errorf("expected engine b empty, pulled %d real samples", n)
	}
	if n := fakeA.pull(dst); n != 3 {
		t.Errorf("expected engine a to hold 3 samples, pulled %d", n)
	}

	if b.Stats().Packets != 0 {
		t.Errorf("expected no packets on engine b, got %d", b.Stats().Packets)
	}
}

func TestEngineWavTap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")
	fake := &fakeOutput{}
	e := newTestEngine(t, fake, func(c *Config) {
		c.WavTapFile = path
		c.WavTapMaxSeconds = 1
	})
	if err := e.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	e.Ingest(s16Packet(48000, 16384, -16384, 16384, -16384))
	if err := e.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected wav capture written: %v", err)
	}
	// 44-byte header plus 4 16-bit samples
	if info.Size() < 44 {
		t.Errorf("capture too small to be a wav file: %d bytes", info.Size())
	}
}
