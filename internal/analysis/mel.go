// SPDX-License-Identifier: MIT
package analysis

import "math"

// hzToMel converts a frequency in Hz to the mel scale.
func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

// melToHz converts a mel-scale value back to Hz.
func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterBank builds numFilters triangular filters spanning 0 Hz to the
// Nyquist frequency, spaced evenly on the mel scale. Each row holds one
// weight per spectrum bin; most weights are zero.
func melFilterBank(numFilters, numBins, fftSize int, sampleRate float64) [][]float64 {
	melLow := hzToMel(0)
	melHigh := hzToMel(sampleRate / 2)

	// numFilters + 2 edge points: each filter spans [edge m, edge m+2]
	// and peaks at edge m+1.
	edges := make([]float64, numFilters+2)
	for i := range edges {
		mel := melLow + (melHigh-melLow)*float64(i)/float64(numFilters+1)
		edges[i] = melToHz(mel)
	}

	binWidth := sampleRate / float64(fftSize)
	bank := make([][]float64, numFilters)
	for m := range bank {
		lower, center, upper := edges[m], edges[m+1], edges[m+2]
		filter := make([]float64, numBins)
		for k := range filter {
			freq := float64(k) * binWidth
			switch {
			case freq >= lower && freq <= center && center > lower:
				filter[k] = (freq - lower) / (center - lower)
			case freq > center && freq <= upper && upper > center:
				filter[k] = (upper - freq) / (upper - center)
			}
		}
		bank[m] = filter
	}
	return bank
}
