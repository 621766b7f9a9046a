// SPDX-License-Identifier: MIT
//
// Package dsptest provides deterministic signal generators for exercising
// the feature extraction pipeline in tests and benchmarks.
package dsptest

import "math"

// SineWave returns size float32 samples of a sine at the given frequency,
// scaled to amplitude (0..1 of full scale).
func SineWave(size int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * amplitude)
	}
	return buffer
}

// VowelLikeWave returns a harmonic-rich signal resembling a voiced sound:
// a fundamental plus two harmonics at decreasing amplitude.
func VowelLikeWave(size int, sampleRate, fundamental float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*fundamental*t)*0.5 +
			math.Sin(2*math.Pi*2*fundamental*t)*0.3 +
			math.Sin(2*math.Pi*3*fundamental*t)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// Silence returns size zero samples.
func Silence(size int) []float32 {
	return make([]float32, size)
}
