// SPDX-License-Identifier: MIT
/*
Package analysis turns raw audio blocks into compact acoustic feature records
for mouth-shape classification:
- RMS energy as a loudness / speech-presence proxy
- MFCCs (Hann window -> FFT -> mel filter bank -> log -> DCT-II)
- Spectral centroid as a brightness proxy
- Zero-crossing rate as a noisiness proxy

Thread Safety:
- The extractor owns pre-allocated FFT/DCT workspaces guarded by a mutex,
  so Extract may be called from concurrent producers
- Returned records carry freshly allocated coefficient slices and are never
  mutated after construction
*/
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"lipsync/internal/config"
	applog "lipsync/internal/log"
	"lipsync/pkg/bitint"
)

// ErrInvalidBlock is returned when a delivered block does not match the
// configured block size. The caller should skip the block and continue.
var ErrInvalidBlock = errors.New("analysis: block does not match configured size")

// logEnergyFloor clamps filter bank energies before the log so that silent
// blocks produce a large negative value instead of -Inf.
const logEnergyFloor = 1e-10

// Features is the acoustic feature record for a single audio block.
// All scalar fields are finite; MFCC has exactly the configured number of
// coefficients. Records are immutable once returned by Extract.
type Features struct {
	RMSEnergy        float64   // Root mean square amplitude of the block.
	MFCC             []float64 // Mel-frequency cepstral coefficients.
	SpectralCentroid float64   // Energy-weighted mean frequency (Hz).
	ZeroCrossingRate float64   // Fraction of consecutive sample pairs changing sign.
	IsSpeech         bool      // RMS energy above the configured threshold.
	Seq              uint64    // Sequence number of the source block.
}

// Pre-allocated buffers for spectral calculations.
type extractWorkspace struct {
	input    []float64    // Windowed input signal.
	spectrum []complex128 // FFT complex output.
	power    []float64    // Power spectrum (magnitude squared).
	filtered []float64    // Log mel filter bank energies.
	cepstrum []float64    // DCT output.
	window   []float64    // Pre-calculated window coefficients.
	mu       sync.Mutex   // Guards all of the above during Extract.
}

// Extractor computes a Features record per audio block. Configuration is fixed
// at construction; the only mutable state is the scratch workspace.
type Extractor struct {
	blockSize       int
	sampleRate      float64
	numCoefficients int
	energyThreshold float64

	fft       *fourier.FFT
	dct       *fourier.DCT
	melBank   [][]float64 // One weight row per mel filter, indexed by spectrum bin.
	workspace extractWorkspace
}

// NewExtractor creates an Extractor for blocks of blockSize samples at
// sampleRate Hz. It pre-allocates all buffers and pre-computes the window
// and mel filter bank. Invalid parameters reject construction.
func NewExtractor(blockSize int, sampleRate float64, cfg config.LipSyncConfig) (*Extractor, error) {
	if blockSize < 2 || !bitint.IsPowerOfTwo(blockSize) {
		return nil, fmt.Errorf("block size must be a power of 2 and at least 2, got %d", blockSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if cfg.MFCCCoefficients < 1 {
		return nil, fmt.Errorf("coefficient count must be at least 1, got %d", cfg.MFCCCoefficients)
	}
	numFilters := cfg.MelFilterBanks
	if numFilters < 2 || numFilters < cfg.MFCCCoefficients {
		return nil, fmt.Errorf("filter bank count must be >= 2 and >= coefficient count, got %d", numFilters)
	}
	if math.IsNaN(cfg.EnergyThreshold) || cfg.EnergyThreshold < 0 {
		return nil, fmt.Errorf("energy threshold must be a non-negative number, got %f", cfg.EnergyThreshold)
	}

	windowType, err := ParseWindowFunc(cfg.FFTWindow)
	if err != nil {
		return nil, err
	}
	windowCoeffs := make([]float64, blockSize)
	applyWindow(windowCoeffs, windowType)

	// FFT output size for real input is N/2 + 1 bins.
	numBins := blockSize/2 + 1

	applog.Debugf("analysis: initializing extractor (block: %d, rate: %.1f Hz, mfcc: %d, filters: %d)",
		blockSize, sampleRate, cfg.MFCCCoefficients, numFilters)

	return &Extractor{
		blockSize:       blockSize,
		sampleRate:      sampleRate,
		numCoefficients: cfg.MFCCCoefficients,
		energyThreshold: cfg.EnergyThreshold,
		fft:             fourier.NewFFT(blockSize),
		dct:             fourier.NewDCT(numFilters),
		melBank:         melFilterBank(numFilters, numBins, blockSize, sampleRate),
		workspace: extractWorkspace{
			input:    make([]float64, blockSize),
			spectrum: make([]complex128, numBins),
			power:    make([]float64, numBins),
			filtered: make([]float64, numFilters),
			cepstrum: make([]float64, numFilters),
			window:   windowCoeffs,
		},
	}, nil
}

// NumCoefficients returns the configured MFCC coefficient count.
func (e *Extractor) NumCoefficients() int {
	return e.numCoefficients
}

// BlockSize returns the expected number of samples per block.
func (e *Extractor) BlockSize() int {
	return e.blockSize
}

// Extract computes the feature record for one block of mono samples.
// A block whose length does not match the configured size is rejected with
// ErrInvalidBlock; the error is local to that block.
func (e *Extractor) Extract(samples []float32, seq uint64) (Features, error) {
	if len(samples) != e.blockSize {
		return Features{}, fmt.Errorf("%w: got %d samples, want %d", ErrInvalidBlock, len(samples), e.blockSize)
	}

	// Time-domain features need no shared state.
	var sumSquares float64
	crossings := 0
	for i, s := range samples {
		f := float64(s)
		sumSquares += f * f
		if i > 0 && (samples[i-1] >= 0) != (s >= 0) {
			crossings++
		}
	}
	rms := math.Sqrt(sumSquares / float64(e.blockSize))
	zcr := float64(crossings) / float64(e.blockSize-1)

	mfcc := make([]float64, e.numCoefficients)

	ws := &e.workspace
	ws.mu.Lock()

	// Window the input.
	for i, s := range samples {
		ws.input[i] = float64(s) * ws.window[i]
	}

	// Short-time power spectrum.
	e.fft.Coefficients(ws.spectrum, ws.input)
	for i, c := range ws.spectrum {
		mag := cmplx.Abs(c)
		ws.power[i] = mag * mag
	}

	// Spectral centroid over the magnitude spectrum.
	binWidth := e.sampleRate / float64(e.blockSize)
	var weighted, total float64
	for i := range ws.power {
		mag := math.Sqrt(ws.power[i])
		weighted += float64(i) * binWidth * mag
		total += mag
	}
	centroid := 0.0
	if total > 0 {
		centroid = weighted / total
	}

	// Mel filter bank energies, floored before the log so silence stays finite.
	for m, filter := range e.melBank {
		var energy float64
		for k, w := range filter {
			if w != 0 {
				energy += w * ws.power[k]
			}
		}
		ws.filtered[m] = math.Log(math.Max(energy, logEnergyFloor))
	}

	// Decorrelate with the DCT and keep the first coefficients.
	e.dct.Transform(ws.cepstrum, ws.filtered)
	copy(mfcc, ws.cepstrum[:e.numCoefficients])

	ws.mu.Unlock()

	return Features{
		RMSEnergy:        rms,
		MFCC:             mfcc,
		SpectralCentroid: centroid,
		ZeroCrossingRate: zcr,
		IsSpeech:         rms > e.energyThreshold,
		Seq:              seq,
	}, nil
}
