// ABOUTME: Audio fundamentals package providing core types
// ABOUTME: Defines SampleFormat, Packet, and Frame used across the pipeline
// Package audio provides the fundamental types for the playback pipeline.
//
// This package defines the types every stage shares:
//   - SampleFormat: The binary encoding of raw samples (S8, U8, S16LE, S32LE, F32LE)
//   - Packet: Raw bytes plus per-packet metadata as delivered by a source
//   - Frame: Normalized interleaved float32 samples in [-1, 1]
//
// It also defines the error taxonomy for rejected packets:
// ErrUnsupportedFormat and ErrMalformedPacket.
//
// Example:
//
//	pkt := audio.Packet{
//	    Data:       payload,
//	    Format:     audio.ParseSampleFormat("S16LE"),
//	    SampleRate: 48000,
//	    Channels:   2,
//	    Received:   time.Now(),
//	}
package audio
