// ABOUTME: Bounded FIFO buffer for mono device-rate samples
// ABOUTME: Absorbs bursty ingest so the device callback can drain steadily
package playback

import (
	"sync"
)

// Buffer is a bounded FIFO of mono float32 samples sitting between packet
// ingest and the device callback. When full, the oldest samples are evicted
// in favor of new audio: stale audio is worth less than fresh audio once the
// source is ahead of real time. Append and Pull are safe to call
// concurrently; neither blocks beyond the copy itself.
type Buffer struct {
	mu       sync.Mutex
	buf      []float32
	readPos  int
	writePos int
	size     int
	count    int
	dropped  uint64
}

// NewBuffer creates a buffer holding at most capacity samples.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		buf:  make([]float32, capacity),
		size: capacity,
	}
}

// Append adds samples at the tail, evicting the oldest buffered samples when
// the buffer would overflow. Returns how many samples were evicted.
func (b *Buffer) Append(samples []float32) int {
	if len(samples) == 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	evicted := 0

	// An append larger than the whole buffer keeps only its newest tail
	if len(samples) >= b.size {
		evicted = b.count + (len(samples) - b.size)
		samples = samples[len(samples)-b.size:]
		b.readPos = 0
		b.writePos = 0
		b.count = 0
	} else if need := len(samples) - (b.size - b.count); need > 0 {
		b.readPos = (b.readPos + need) % b.size
		b.count -= need
		evicted = need
	}

	for _, s := range samples {
		b.buf[b.writePos] = s
		b.writePos = (b.writePos + 1) % b.size
	}
	b.count += len(samples)

	b.dropped += uint64(evicted)
	return evicted
}

// Pull removes up to len(dst) samples from the head and returns how many
// were copied. It never blocks and never errors: an underrun simply returns
// fewer samples, and the caller decides how to pad.
func (b *Buffer) Pull(dst []float32) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(dst)
	if n > b.count {
		n = b.count
	}
	for i := 0; i < n; i++ {
		dst[i] = b.buf[b.readPos]
		b.readPos = (b.readPos + 1) % b.size
	}
	b.count -= n

	return n
}

// Len returns the number of samples currently buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the buffer's sample capacity.
func (b *Buffer) Cap() int {
	return b.size
}

// Dropped returns the cumulative number of samples evicted by overflow.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Clear discards all buffered samples.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readPos = 0
	b.writePos = 0
	b.count = 0
}
