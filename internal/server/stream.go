// ABOUTME: Streaming loop for the audio source
// ABOUTME: Paces fixed-duration chunks from a Source and broadcasts wire frames
package server

import (
	"encoding/binary"
	"io"
	"log"
	"sync"
	"time"

	"github.com/dcam0050/DoraROSBridge/internal/protocol"
	"github.com/dcam0050/DoraROSBridge/pkg/audio"
)

const (
	// Chunk timing
	ChunkDurationMs = 20 // 20ms chunks
)

// Streamer reads PCM chunks from a Source and hands encoded frames to a
// broadcast function on a fixed cadence.
type Streamer struct {
	source Source
	send   func(frame []byte)

	scratch []int16

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewStreamer creates a streamer for the given source
func NewStreamer(source Source, send func(frame []byte)) *Streamer {
	chunkSamples := (source.SampleRate() * source.Channels() * ChunkDurationMs) / 1000

	return &Streamer{
		source:   source,
		send:     send,
		scratch:  make([]int16, chunkSamples),
		stopChan: make(chan struct{}),
	}
}

// Run streams chunks until Stop is called or the source ends
func (s *Streamer) Run() {
	log.Printf("Streamer starting: %d Hz, %d channels, %dms chunks",
		s.source.SampleRate(), s.source.Channels(), ChunkDurationMs)

	ticker := time.NewTicker(time.Duration(ChunkDurationMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !s.sendChunk() {
				log.Printf("Streamer: source ended")
				return
			}
		case <-s.stopChan:
			log.Printf("Streamer stopping")
			return
		}
	}
}

// Stop stops the streamer
func (s *Streamer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// sendChunk reads one chunk and broadcasts it. Returns false when the
// source is exhausted.
func (s *Streamer) sendChunk() bool {
	n, err := s.source.Read(s.scratch)
	if err == io.EOF {
		return false
	}
	if err != nil {
		log.Printf("Source read error: %v", err)
		return false
	}
	if n == 0 {
		return true
	}

	pkt := audio.Packet{
		Data:       encodeS16LE(s.scratch[:n]),
		Format:     audio.FormatS16LE,
		SampleRate: s.source.SampleRate(),
		Channels:   s.source.Channels(),
	}

	s.send(protocol.EncodeAudioFrame(pkt))
	return true
}

// encodeS16LE packs int16 samples as little-endian bytes
func encodeS16LE(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}
	return buf
}
