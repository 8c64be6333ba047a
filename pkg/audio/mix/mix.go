// ABOUTME: Channel layout mixer
// ABOUTME: Converts interleaved frames between channel counts without resampling
package mix

import (
	"github.com/dcam0050/DoraROSBridge/pkg/audio"
)

// Mix converts a frame to the target channel count. The frame count (samples
// per channel) is preserved exactly. Mono fan-out duplicates the sample to
// every output channel; downmix to mono takes the arithmetic mean. For other
// layout changes output channel c takes input channel c mod N, which repeats
// leading channels when widening and truncates trailing ones when narrowing.
// When the layout already matches, the input frame is returned as-is.
func Mix(frame audio.Frame, targetChannels int) audio.Frame {
	in := frame.Channels
	if in == targetChannels || in == 0 || targetChannels <= 0 || len(frame.Samples) == 0 {
		return frame
	}

	frames := len(frame.Samples) / in
	out := audio.Frame{
		Samples:    make([]float32, frames*targetChannels),
		SampleRate: frame.SampleRate,
		Channels:   targetChannels,
	}

	switch {
	case in == 1:
		FanOut(out.Samples, frame.Samples, targetChannels)
	case targetChannels == 1:
		downmix(out.Samples, frame.Samples, in)
	default:
		for f := 0; f < frames; f++ {
			src := frame.Samples[f*in:]
			dst := out.Samples[f*targetChannels:]
			for c := 0; c < targetChannels; c++ {
				dst[c] = src[c%in]
			}
		}
	}

	return out
}

// FanOut writes each mono sample to every channel of the interleaved dst.
// dst must hold len(mono)*channels samples.
func FanOut(dst []float32, mono []float32, channels int) {
	if channels == 1 {
		copy(dst, mono)
		return
	}
	for f, s := range mono {
		base := f * channels
		for c := 0; c < channels; c++ {
			dst[base+c] = s
		}
	}
}

// downmix averages interleaved channels into mono. The stereo case is
// unrolled since nearly all real input is stereo.
func downmix(dst []float32, src []float32, channels int) {
	frames := len(src) / channels
	switch channels {
	case 2:
		for f := 0; f < frames; f++ {
			dst[f] = (src[f*2] + src[f*2+1]) * 0.5
		}
	default:
		inv := float32(1.0) / float32(channels)
		for f := 0; f < frames; f++ {
			sum := float32(0)
			base := f * channels
			for c := 0; c < channels; c++ {
				sum += src[base+c]
			}
			dst[f] = sum * inv
		}
	}
}
