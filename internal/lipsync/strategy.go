// SPDX-License-Identifier: MIT
package lipsync

import (
	"fmt"

	"lipsync/internal/analysis"
	"lipsync/internal/config"
)

// Strategy maps one feature record to a mouth-shape candidate.
// Implementations must be pure and total: no side effects, and a shape is
// returned for every record. The engine may swap strategies at runtime.
type Strategy interface {
	Classify(features analysis.Features) Shape
}

// EnergyStrategy is the cheap, degenerate classifier: closed when silent, a
// single fixed open shape otherwise. Useful as a fallback when spectral data
// is unreliable, and for testing the plumbing around the classifier.
type EnergyStrategy struct {
	open Shape
}

// NewEnergyStrategy returns an EnergyStrategy that opens to the "A" shape.
func NewEnergyStrategy() *EnergyStrategy {
	return &EnergyStrategy{open: ShapeA}
}

// Classify implements Strategy.
func (s *EnergyStrategy) Classify(features analysis.Features) Shape {
	if !features.IsSpeech {
		return ShapeClosed
	}
	return s.open
}

// SpectralStrategy classifies vowels from the low-order MFCC coefficients.
// The rules are evaluated in a fixed priority order, so a record matching
// several rules always resolves the same way: the mfcc[2] rule wins over
// both mfcc[1] rules. Threshold values come from configuration; they are
// tuning points, not acoustic ground truth.
type SpectralStrategy struct {
	highCoeffThreshold float64 // mfcc[2] above this: open "A".
	lowBackThreshold   float64 // mfcc[1] below this: rounded "O".
	lowFrontThreshold  float64 // mfcc[1] above this: wide "E".
}

// NewSpectralStrategy builds a SpectralStrategy from the configured thresholds.
func NewSpectralStrategy(cfg config.LipSyncConfig) *SpectralStrategy {
	return &SpectralStrategy{
		highCoeffThreshold: cfg.HighCoeffThreshold,
		lowBackThreshold:   cfg.LowBackThreshold,
		lowFrontThreshold:  cfg.LowFrontThreshold,
	}
}

// Classify implements Strategy.
func (s *SpectralStrategy) Classify(features analysis.Features) Shape {
	if !features.IsSpeech {
		return ShapeClosed
	}
	switch {
	case len(features.MFCC) > 2 && features.MFCC[2] > s.highCoeffThreshold:
		return ShapeA
	case len(features.MFCC) > 1 && features.MFCC[1] < s.lowBackThreshold:
		return ShapeO
	case len(features.MFCC) > 1 && features.MFCC[1] > s.lowFrontThreshold:
		return ShapeE
	default:
		// Speech with no clear vowel cue still opens the mouth.
		return ShapeA
	}
}

// StrategyForName resolves the configured strategy name to an instance.
func StrategyForName(name string, cfg config.LipSyncConfig) (Strategy, error) {
	switch name {
	case "energy":
		return NewEnergyStrategy(), nil
	case "spectral":
		return NewSpectralStrategy(cfg), nil
	default:
		return nil, fmt.Errorf("unknown classifier strategy %q", name)
	}
}
