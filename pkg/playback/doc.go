// ABOUTME: Playback engine package tying the audio pipeline to a device
// ABOUTME: Provides Engine, the bounded Buffer, and the stats Collector
// Package playback turns bursty, variable-format audio packets into a
// steady stream for a pull-based output device.
//
// The Engine is the package's center: it runs packets through
// normalize, mix, and resample, buffers the result, and answers the
// device's pulls with silence-padded audio. Each Engine is one session
// with its own buffer, device handle, and stats, stepping through
// Stopped, Starting, Running, Stopping.
//
// Example:
//
//	engine := playback.NewEngine(playback.Config{SampleRate: 48000})
//	if err := engine.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
//	for pkt := range packets {
//	    engine.Ingest(pkt)
//	}
package playback
