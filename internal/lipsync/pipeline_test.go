// SPDX-License-Identifier: MIT
package lipsync

import (
	"testing"

	"lipsync/internal/analysis"
	"lipsync/internal/config"
	"lipsync/pkg/dsptest"
)

// TestScriptedUtterance drives extract -> classify -> smooth over a scripted
// sequence of blocks: three silent, four voiced with a dominant mfcc[2], then
// three silent again. The stabilized output must follow the utterance with at
// most a window's worth of lag on each transition and no flicker in between.
func TestScriptedUtterance(t *testing.T) {
	cfg := config.Defaults()
	cfg.Audio.BlockSize = 1024
	cfg.LipSync.SmoothingWindow = 3

	extractor, err := analysis.NewExtractor(cfg.Audio.BlockSize, cfg.Audio.SampleRate, cfg.LipSync)
	if err != nil {
		t.Fatalf("NewExtractor error: %v", err)
	}
	strategy := NewSpectralStrategy(cfg.LipSync)
	smoother, err := NewSmoother(cfg.LipSync.SmoothingWindow)
	if err != nil {
		t.Fatalf("NewSmoother error: %v", err)
	}

	// Voiced records carry mfcc[2] = 15, above the default threshold of 10,
	// so classification picks the open "A" shape per block. The silent
	// blocks go through the real extractor.
	voiced := analysis.Features{
		RMSEnergy: 0.3,
		MFCC:      []float64{0, 0, 15, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		IsSpeech:  true,
	}

	var got []Shape
	observe := func(f analysis.Features) {
		got = append(got, smoother.Observe(strategy.Classify(f)))
	}

	for seq := uint64(0); seq < 3; seq++ {
		f, err := extractor.Extract(dsptest.Silence(cfg.Audio.BlockSize), seq)
		if err != nil {
			t.Fatalf("Extract error: %v", err)
		}
		observe(f)
	}
	for i := 0; i < 4; i++ {
		observe(voiced)
	}
	for seq := uint64(7); seq < 10; seq++ {
		f, err := extractor.Extract(dsptest.Silence(cfg.Audio.BlockSize), seq)
		if err != nil {
			t.Fatalf("Extract error: %v", err)
		}
		observe(f)
	}

	// With a window of 3, each transition converges one block after the
	// input flips: the first voiced block is still outvoted by trailing
	// silence, the second flips the majority, and symmetrically on the way
	// back down.
	expected := []Shape{
		ShapeClosed, ShapeClosed, ShapeClosed,
		ShapeClosed, ShapeA, ShapeA, ShapeA,
		ShapeA, ShapeClosed, ShapeClosed,
	}
	if len(got) != len(expected) {
		t.Fatalf("output length: got %d, want %d", len(got), len(expected))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("block %d: got %s, want %s (full sequence %v)", i, got[i], expected[i], got)
		}
	}
}
