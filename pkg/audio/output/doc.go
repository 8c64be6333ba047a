// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the pull-based Output interface and its device backends
// Package output provides pull-based audio playback backends.
//
// An Output drains a Source from the device's own callback or reader
// thread; the Source pads underruns with silence so the device never
// starves. Three backends are provided:
//   - Malgo: miniaudio callback device (default)
//   - Oto: reader-driven device, io.Reader bridge
//   - PortAudio: float32 callback device, behind the portaudio build tag
//
// Example:
//
//	out := output.NewMalgo()
//	err := out.Open(48000, 2, src)
//	defer out.Close()
package output
