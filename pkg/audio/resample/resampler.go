// ABOUTME: Linear resampler for converting between sample rates
// ABOUTME: Carries fractional read position across chunks for seamless streams
package resample

// Resampler converts interleaved float32 audio between sample rates using
// linear interpolation. The fractional read position and the final frame of
// each chunk are carried across calls, so a stream fed in arbitrary chunk
// sizes resamples identically to the same stream fed whole.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
	prev       []float32 // final frame of the previous chunk
	hasPrev    bool
}

// New creates a resampler for the given rate pair and channel count.
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		prev:       make([]float32, channels),
	}
}

// Resample converts one chunk of interleaved samples at the input rate to the
// output rate. Matching rates return the input slice untouched. The last
// input frame is held back as the interpolation anchor for the next chunk, so
// a long stream loses nothing at chunk seams.
func (r *Resampler) Resample(input []float32) []float32 {
	if r.inputRate == r.outputRate {
		return input
	}
	if len(input) == 0 {
		return nil
	}

	inFrames := len(input) / r.channels

	// Index space for this call: frame 0 is the carried previous frame when
	// present, followed by this chunk's frames.
	extFrames := inFrames
	if r.hasPrev {
		extFrames++
	}
	sampleAt := func(idx, ch int) float32 {
		if r.hasPrev {
			if idx == 0 {
				return r.prev[ch]
			}
			idx--
		}
		return input[idx*r.channels+ch]
	}

	estFrames := int(float64(extFrames)/r.ratio) + 2
	out := make([]float32, 0, estFrames*r.channels)

	for {
		idx := int(r.position)
		if idx >= extFrames-1 {
			break
		}
		frac := float32(r.position - float64(idx))
		for ch := 0; ch < r.channels; ch++ {
			s0 := sampleAt(idx, ch)
			s1 := sampleAt(idx+1, ch)
			out = append(out, s0+frac*(s1-s0))
		}
		r.position += r.ratio
	}

	r.position -= float64(extFrames - 1)
	copy(r.prev, input[(inFrames-1)*r.channels:])
	r.hasPrev = true

	return out
}

// Reset clears the carried position and anchor frame. Use it when the stream
// breaks, such as after a declared-rate change.
func (r *Resampler) Reset() {
	r.position = 0.0
	r.hasPrev = false
	for i := range r.prev {
		r.prev[i] = 0
	}
}

// OutputSamplesNeeded estimates how many output samples one chunk of input
// samples produces.
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// InputSamplesNeeded estimates how many input samples are needed to produce
// the given number of output samples.
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.ratio)
	return inputFrames * r.channels
}
