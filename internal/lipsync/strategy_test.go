// SPDX-License-Identifier: MIT
package lipsync

import (
	"testing"

	"lipsync/internal/analysis"
	"lipsync/internal/config"
)

func speechRecord(mfcc ...float64) analysis.Features {
	return analysis.Features{
		RMSEnergy: 0.2,
		MFCC:      mfcc,
		IsSpeech:  true,
	}
}

func silentRecord() analysis.Features {
	return analysis.Features{
		RMSEnergy: 0.0,
		MFCC:      make([]float64, 13),
		IsSpeech:  false,
	}
}

func TestEnergyStrategy(t *testing.T) {
	s := NewEnergyStrategy()

	if got := s.Classify(silentRecord()); got != ShapeClosed {
		t.Errorf("silence: got %s, want %s", got, ShapeClosed)
	}
	if got := s.Classify(speechRecord(0, 0, 0)); got != ShapeA {
		t.Errorf("speech: got %s, want %s", got, ShapeA)
	}
}

func TestSpectralStrategyRules(t *testing.T) {
	cfg := config.Defaults().LipSync // high 10, low back -15, low front 15
	s := NewSpectralStrategy(cfg)

	tests := []struct {
		name     string
		features analysis.Features
		expected Shape
	}{
		{"silence", silentRecord(), ShapeClosed},
		{"high second coefficient", speechRecord(0, 0, 15), ShapeA},
		{"low first coefficient", speechRecord(0, -20, 0), ShapeO},
		{"high first coefficient", speechRecord(0, 20, 0), ShapeE},
		{"no rule matches", speechRecord(0, 0, 0), ShapeA},
		// Rule priority: the mfcc[2] rule wins even when the mfcc[1]
		// rules would also match.
		{"priority over back vowel", speechRecord(0, -20, 15), ShapeA},
		{"priority over front vowel", speechRecord(0, 20, 15), ShapeA},
		// Thresholds are exclusive.
		{"at high threshold", speechRecord(0, 0, 10), ShapeA},
		{"at back threshold", speechRecord(0, -15, 0), ShapeA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Classify(tt.features); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestSpectralStrategyPure(t *testing.T) {
	s := NewSpectralStrategy(config.Defaults().LipSync)
	record := speechRecord(1.5, -20, 3)

	first := s.Classify(record)
	for i := 0; i < 10; i++ {
		if got := s.Classify(record); got != first {
			t.Fatalf("classification not deterministic: %s then %s", first, got)
		}
	}
}

func TestSpectralStrategyShortVector(t *testing.T) {
	s := NewSpectralStrategy(config.Defaults().LipSync)

	// Total even for records with fewer coefficients than the rules index.
	if got := s.Classify(speechRecord(0)); got != ShapeA {
		t.Errorf("one-coefficient record: got %s, want %s", got, ShapeA)
	}
	if got := s.Classify(speechRecord()); got != ShapeA {
		t.Errorf("empty record: got %s, want %s", got, ShapeA)
	}
}

func TestStrategyForName(t *testing.T) {
	cfg := config.Defaults().LipSync

	if s, err := StrategyForName("energy", cfg); err != nil {
		t.Errorf("energy: unexpected error %v", err)
	} else if _, ok := s.(*EnergyStrategy); !ok {
		t.Errorf("energy: got %T", s)
	}

	if s, err := StrategyForName("spectral", cfg); err != nil {
		t.Errorf("spectral: unexpected error %v", err)
	} else if _, ok := s.(*SpectralStrategy); !ok {
		t.Errorf("spectral: got %T", s)
	}

	if _, err := StrategyForName("neural", cfg); err == nil {
		t.Error("expected error for unknown strategy name")
	}
}
