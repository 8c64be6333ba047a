// ABOUTME: Per-packet statistics collector with a bounded ring
// ABOUTME: Computes signal stats off the critical path and flushes them as JSON
package playback

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/dcam0050/DoraROSBridge/pkg/audio"
)

// DefaultMaxEntries is the stats ring capacity when none is configured.
const DefaultMaxEntries = 100

// PacketStats describes one accepted packet after normalization. MeasuredRate
// is derived from arrival spacing and is zero until two packets have been
// seen; it exposes the gap between what a source declares and what it sends.
type PacketStats struct {
	Timestamp     time.Time          `json:"timestamp"`
	Format        audio.SampleFormat `json:"-"`
	FormatName    string             `json:"format"`
	SampleRate    int                `json:"sample_rate"`
	Channels      int                `json:"channels"`
	Samples       int                `json:"samples"`
	Min           float32            `json:"min"`
	Max           float32            `json:"max"`
	Mean          float32            `json:"mean"`
	RMS           float32            `json:"rms"`
	ZeroCrossings int                `json:"zero_crossings"`
	MeasuredRate  float64            `json:"measured_rate"`
}

// Collector keeps the newest PacketStats in a fixed-capacity ring and counts
// rejected packets. It has its own lock and no ties to the audio path, so a
// slow flush can never stall playback.
type Collector struct {
	mu          sync.Mutex
	entries     []PacketStats
	start       int
	count       int
	observed    uint64
	malformed   uint64
	unsupported uint64
	prevArrival time.Time
}

// NewCollector creates a collector retaining at most maxEntries records.
// Values below one fall back to DefaultMaxEntries.
func NewCollector(maxEntries int) *Collector {
	if maxEntries < 1 {
		maxEntries = DefaultMaxEntries
	}
	return &Collector{
		entries: make([]PacketStats, maxEntries),
	}
}

// Observe records stats for one accepted packet. The frame must be the
// normalized form of the packet. When the ring is full the oldest record is
// evicted.
func (c *Collector) Observe(pkt audio.Packet, frame audio.Frame) {
	stats := PacketStats{
		Timestamp:  pkt.Received,
		Format:     pkt.Format,
		FormatName: pkt.Format.String(),
		SampleRate: pkt.SampleRate,
		Channels:   pkt.Channels,
		Samples:    len(frame.Samples),
	}

	if len(frame.Samples) > 0 {
		min := frame.Samples[0]
		max := frame.Samples[0]
		var sum, sumSq float64
		crossings := 0
		prevNonNeg := frame.Samples[0] >= 0

		for _, s := range frame.Samples {
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
			sum += float64(s)
			sumSq += float64(s) * float64(s)

			nonNeg := s >= 0
			if nonNeg != prevNonNeg {
				crossings++
				prevNonNeg = nonNeg
			}
		}

		n := float64(len(frame.Samples))
		stats.Min = min
		stats.Max = max
		stats.Mean = float32(sum / n)
		stats.RMS = float32(math.Sqrt(sumSq / n))
		stats.ZeroCrossings = crossings
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.prevArrival.IsZero() && pkt.Channels > 0 {
		dt := pkt.Received.Sub(c.prevArrival).Seconds()
		if dt > 0 {
			frames := len(frame.Samples) / pkt.Channels
			stats.MeasuredRate = float64(frames) / dt
		}
	}
	c.prevArrival = pkt.Received

	idx := (c.start + c.count) % len(c.entries)
	c.entries[idx] = stats
	if c.count < len(c.entries) {
		c.count++
	} else {
		c.start = (c.start + 1) % len(c.entries)
	}
	c.observed++
}

// CountDrop tallies a rejected packet by its rejection error.
func (c *Collector) CountDrop(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case errors.Is(err, audio.ErrMalformedPacket):
		c.malformed++
	case errors.Is(err, audio.ErrUnsupportedFormat):
		c.unsupported++
	}
}

// Records returns the retained stats, oldest first.
func (c *Collector) Records() []PacketStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]PacketStats, c.count)
	for i := 0; i < c.count; i++ {
		out[i] = c.entries[(c.start+i)%len(c.entries)]
	}
	return out
}

// Observed returns how many packets have been recorded in total, including
// ones already evicted from the ring.
func (c *Collector) Observed() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.observed
}

// Dropped returns the malformed and unsupported packet counts.
func (c *Collector) Dropped() (malformed, unsupported uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.malformed, c.unsupported
}

// Flush writes the retained records, oldest first, as a JSON array at path.
// The file is replaced atomically enough for a debug artifact: written whole,
// then closed.
func (c *Collector) Flush(path string) error {
	records := c.Records()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal debug stats: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write debug stats: %w", err)
	}

	return nil
}
