// ABOUTME: Playback engine tying normalizer, mixer, resampler, and device together
// ABOUTME: Owns the session state machine and the packet ingest pipeline
package playback

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dcam0050/DoraROSBridge/pkg/audio"
	"github.com/dcam0050/DoraROSBridge/pkg/audio/mix"
	"github.com/dcam0050/DoraROSBridge/pkg/audio/normalize"
	"github.com/dcam0050/DoraROSBridge/pkg/audio/output"
	"github.com/dcam0050/DoraROSBridge/pkg/audio/resample"
)

// ErrNotRunning is returned by Ingest when the engine is not in StateRunning.
var ErrNotRunning = errors.New("engine not running")

// State identifies the engine lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Config holds engine configuration.
type Config struct {
	// SampleRate is the device output rate, and the rate assumed for packets
	// that declare none (default: 48000)
	SampleRate int

	// PacketChannels is the channel count assumed for packets that declare
	// none (default: 1)
	PacketChannels int

	// DeviceChannels is the hardware channel layout the mono stream is
	// fanned out to (default: 2)
	DeviceChannels int

	// BufferSeconds bounds the playback buffer (default: 5)
	BufferSeconds int

	// PrerollMs is how much audio must accumulate before a low buffer starts
	// draining (default: 100; negative disables the gate)
	PrerollMs int

	// Volume is the initial volume (0-100, default: 100)
	Volume int

	// AnalyzeOnly disables the device and buffer entirely; packets are
	// normalized and observed for stats only
	AnalyzeOnly bool

	// EnableDebug turns on per-packet stats collection
	EnableDebug bool

	// DebugMaxEntries bounds the stats ring (default: 100)
	DebugMaxEntries int

	// DebugFile, when set with EnableDebug, receives periodic and final
	// JSON flushes of the stats ring
	DebugFile string

	// FlushEvery flushes the stats ring after every N accepted packets
	// (default: 10)
	FlushEvery int

	// WavTapFile, when set, captures the post-mix device-rate mono stream
	// and writes it as a WAV file on stop
	WavTapFile string

	// WavTapMaxSeconds bounds the WAV capture window (default: 30)
	WavTapMaxSeconds int

	// Output is the device backend (default: the malgo backend)
	Output output.Output

	// OnStateChange is called after every state transition
	OnStateChange func(State)

	// OnError is called for recoverable per-packet errors
	OnError func(error)
}

// EngineStats is a point-in-time snapshot of the engine's counters.
type EngineStats struct {
	State           State
	Packets         uint64
	Malformed       uint64
	Unsupported     uint64
	BufferedSamples int
	BufferedSeconds float64
	Underruns       uint64
	Pulls           uint64
	Evicted         uint64
	Volume          int
	Muted           bool
}

// Engine converts raw audio packets into a steady device-rate stream. One
// engine is one playback session: it owns its buffer, its device handle, and
// its stats, so multiple engines can coexist in a process.
type Engine struct {
	config Config
	id     string

	state atomic.Int32

	mu           sync.Mutex
	buffer       *Buffer
	feed         *deviceFeed
	out          output.Output
	deviceOpen   bool
	resampler    *resample.Resampler
	resampleRate int
	lastOverflow time.Time

	collector *Collector
	tap       *WavTap

	packets atomic.Uint64
}

// NewEngine creates an engine with the given configuration.
func NewEngine(config Config) *Engine {
	if config.SampleRate <= 0 {
		config.SampleRate = 48000
	}
	if config.PacketChannels <= 0 {
		config.PacketChannels = 1
	}
	if config.DeviceChannels <= 0 {
		config.DeviceChannels = 2
	}
	if config.BufferSeconds <= 0 {
		config.BufferSeconds = 5
	}
	if config.PrerollMs < 0 {
		config.PrerollMs = 0
	} else if config.PrerollMs == 0 {
		config.PrerollMs = 100
	}
	if config.Volume == 0 {
		config.Volume = 100
	}
	if config.DebugMaxEntries <= 0 {
		config.DebugMaxEntries = DefaultMaxEntries
	}
	if config.FlushEvery <= 0 {
		config.FlushEvery = 10
	}
	if config.WavTapMaxSeconds <= 0 {
		config.WavTapMaxSeconds = 30
	}
	if config.Output == nil {
		config.Output = output.NewMalgo()
	}

	e := &Engine{
		config:    config,
		id:        uuid.New().String(),
		out:       config.Output,
		collector: NewCollector(config.DebugMaxEntries),
	}
	if config.WavTapFile != "" {
		e.tap = NewWavTap(config.WavTapFile, config.SampleRate, config.WavTapMaxSeconds)
	}
	return e
}

// ID returns the engine's session ID.
func (e *Engine) ID() string {
	return e.id
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Start acquires the output device and moves the engine to StateRunning.
// A device failure leaves the engine stopped and returns the init error
// unchanged, so callers can inspect it with errors.As.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if State(e.state.Load()) != StateStopped {
		return fmt.Errorf("start from state %s", e.State())
	}
	e.setState(StateStarting)

	if e.config.AnalyzeOnly {
		log.Printf("Engine %s starting in analyze-only mode", e.id)
		e.setState(StateRunning)
		return nil
	}

	e.buffer = NewBuffer(e.config.SampleRate * e.config.BufferSeconds)
	preroll := e.config.SampleRate * e.config.PrerollMs / 1000
	e.feed = newDeviceFeed(e.buffer, e.config.DeviceChannels, preroll)
	e.feed.SetVolume(e.config.Volume)

	if err := e.out.Open(e.config.SampleRate, e.config.DeviceChannels, e.feed); err != nil {
		e.buffer = nil
		e.feed = nil
		e.setState(StateStopped)
		return err
	}
	e.deviceOpen = true

	log.Printf("Engine %s running: %dHz, %d device channels, %ds buffer",
		e.id, e.config.SampleRate, e.config.DeviceChannels, e.config.BufferSeconds)
	e.setState(StateRunning)
	return nil
}

// Ingest accepts one raw packet and moves it through the pipeline:
// normalize, observe, downmix, resample, append. Bad packets are counted and
// reported but never stop the session; the error return tells the caller
// what happened to this one packet.
func (e *Engine) Ingest(pkt audio.Packet) error {
	if State(e.state.Load()) != StateRunning {
		return ErrNotRunning
	}

	// Packets carrying no metadata adopt the configured defaults
	if pkt.SampleRate <= 0 {
		pkt.SampleRate = e.config.SampleRate
	}
	if pkt.Channels <= 0 {
		pkt.Channels = e.config.PacketChannels
	}
	if pkt.Received.IsZero() {
		pkt.Received = time.Now()
	}

	frame, err := normalize.Normalize(pkt)
	if err != nil {
		e.collector.CountDrop(err)
		e.notifyError(fmt.Errorf("packet dropped: %w", err))
		return err
	}

	if e.config.EnableDebug {
		e.collector.Observe(pkt, frame)
		e.maybeFlush()
	}

	e.packets.Add(1)

	if e.config.AnalyzeOnly {
		return nil
	}

	mono := mix.Mix(frame, 1)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buffer == nil {
		// Stopped while this packet was in flight
		return ErrNotRunning
	}

	if e.resampler == nil || e.resampleRate != pkt.SampleRate {
		// A declared-rate change breaks stream continuity; the seam is
		// accepted and the resampler starts fresh
		e.resampler = resample.New(pkt.SampleRate, e.config.SampleRate, 1)
		e.resampleRate = pkt.SampleRate
	}
	samples := e.resampler.Resample(mono.Samples)

	if e.tap != nil {
		e.tap.Push(samples)
	}

	if evicted := e.buffer.Append(samples); evicted > 0 {
		if time.Since(e.lastOverflow) > time.Second {
			e.lastOverflow = time.Now()
			log.Printf("Playback buffer overflow: evicted %d samples (source ahead of device)", evicted)
		}
	}

	return nil
}

// Stop releases the device, discards buffered audio, and flushes debug
// artifacts. Stopping an already stopped engine is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := State(e.state.Load())
	if s == StateStopped || s == StateStopping {
		return nil
	}
	e.setState(StateStopping)

	if e.deviceOpen {
		if err := e.out.Close(); err != nil {
			log.Printf("Engine %s: output close error: %v", e.id, err)
		}
		e.deviceOpen = false
	}

	// Buffered audio is discarded, not drained: a stop should be prompt
	if e.buffer != nil {
		e.buffer.Clear()
		e.buffer = nil
	}
	e.feed = nil
	e.resampler = nil
	e.resampleRate = 0

	if e.config.EnableDebug && e.config.DebugFile != "" {
		if err := e.collector.Flush(e.config.DebugFile); err != nil {
			log.Printf("Engine %s: debug flush failed: %v", e.id, err)
		}
	}
	if e.tap != nil {
		if err := e.tap.Flush(); err != nil {
			log.Printf("Engine %s: wav capture flush failed: %v", e.id, err)
		}
	}

	log.Printf("Engine %s stopped after %d packets", e.id, e.packets.Load())
	e.setState(StateStopped)
	return nil
}

// SetVolume sets playback volume (0-100).
func (e *Engine) SetVolume(volume int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.feed != nil {
		e.feed.SetVolume(volume)
	}
}

// SetMuted sets the mute state.
func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.feed != nil {
		e.feed.SetMuted(muted)
	}
}

// Records returns the collected per-packet stats, oldest first.
func (e *Engine) Records() []PacketStats {
	return e.collector.Records()
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() EngineStats {
	stats := EngineStats{
		State:   e.State(),
		Packets: e.packets.Load(),
	}
	stats.Malformed, stats.Unsupported = e.collector.Dropped()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buffer != nil {
		stats.BufferedSamples = e.buffer.Len()
		stats.BufferedSeconds = float64(stats.BufferedSamples) / float64(e.config.SampleRate)
		stats.Evicted = e.buffer.Dropped()
	}
	if e.feed != nil {
		stats.Underruns = e.feed.Underruns()
		stats.Pulls = e.feed.Pulls()
		stats.Volume = e.feed.Volume()
		stats.Muted = e.feed.Muted()
	}
	return stats
}

// maybeFlush writes the debug file after every FlushEvery accepted packets.
func (e *Engine) maybeFlush() {
	if e.config.DebugFile == "" {
		return
	}
	if e.collector.Observed()%uint64(e.config.FlushEvery) != 0 {
		return
	}
	if err := e.collector.Flush(e.config.DebugFile); err != nil {
		log.Printf("Engine %s: debug flush failed: %v", e.id, err)
	}
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	if e.config.OnStateChange != nil {
		e.config.OnStateChange(s)
	}
}

func (e *Engine) notifyError(err error) {
	if e.config.OnError != nil {
		e.config.OnError(err)
	} else {
		log.Printf("Engine %s: %v", e.id, err)
	}
}
