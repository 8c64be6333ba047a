// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates.
// Handles both upsampling and downsampling, and carries its read
// position across chunks so streamed input resamples without seams.
//
// Example:
//
//	r := resample.New(44100, 48000, 1)
//	out := r.Resample(chunk)
package resample
