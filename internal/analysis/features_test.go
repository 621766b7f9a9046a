// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"testing"

	"lipsync/internal/config"
	"lipsync/pkg/dsptest"
)

const (
	testBlockSize  = 1024
	testSampleRate = 44100.0
)

func newTestExtractor(t *testing.T, mutate func(*config.LipSyncConfig)) *Extractor {
	t.Helper()
	cfg := config.Defaults().LipSync
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewExtractor(testBlockSize, testSampleRate, cfg)
	if err != nil {
		t.Fatalf("NewExtractor error: %v", err)
	}
	return e
}

func TestExtractSilence(t *testing.T) {
	e := newTestExtractor(t, nil)

	features, err := e.Extract(dsptest.Silence(testBlockSize), 1)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if features.IsSpeech {
		t.Error("silent block classified as speech")
	}
	if features.RMSEnergy != 0 {
		t.Errorf("silent block RMS: got %f, want 0", features.RMSEnergy)
	}
	if features.ZeroCrossingRate != 0 {
		t.Errorf("silent block ZCR: got %f, want 0", features.ZeroCrossingRate)
	}
	if features.SpectralCentroid != 0 {
		t.Errorf("silent block centroid: got %f, want 0", features.SpectralCentroid)
	}
	// MFCC of silence must be finite (log floor, not -Inf).
	for i, c := range features.MFCC {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			t.Errorf("MFCC[%d] of silence is not finite: %f", i, c)
		}
	}
}

func TestExtractCoefficientCount(t *testing.T) {
	for _, k := range []int{1, 2, 5, 13, 26} {
		e := newTestExtractor(t, func(c *config.LipSyncConfig) {
			c.MFCCCoefficients = k
			c.MelFilterBanks = 26
		})
		features, err := e.Extract(dsptest.VowelLikeWave(testBlockSize, testSampleRate, 220), 0)
		if err != nil {
			t.Fatalf("Extract error for k=%d: %v", k, err)
		}
		if len(features.MFCC) != k {
			t.Errorf("MFCC length: got %d, want %d", len(features.MFCC), k)
		}
	}
}

func TestExtractRejectsMismatchedBlock(t *testing.T) {
	e := newTestExtractor(t, nil)

	_, err := e.Extract(dsptest.Silence(testBlockSize/2), 0)
	if !errors.Is(err, ErrInvalidBlock) {
		t.Errorf("expected ErrInvalidBlock, got %v", err)
	}
	_, err = e.Extract(nil, 0)
	if !errors.Is(err, ErrInvalidBlock) {
		t.Errorf("expected ErrInvalidBlock for nil block, got %v", err)
	}
}

func TestExtractVoicedSignal(t *testing.T) {
	e := newTestExtractor(t, nil)

	block := dsptest.VowelLikeWave(testBlockSize, testSampleRate, 220)
	features, err := e.Extract(block, 7)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if !features.IsSpeech {
		t.Error("loud harmonic block not classified as speech")
	}
	if features.Seq != 7 {
		t.Errorf("sequence number: got %d, want 7", features.Seq)
	}
	if features.RMSEnergy <= 0 || features.RMSEnergy > 1 {
		t.Errorf("RMS out of range: %f", features.RMSEnergy)
	}
	// Energy sits in the 220-660 Hz harmonics, so the centroid should land
	// near that region, far below Nyquist.
	if features.SpectralCentroid < 100 || features.SpectralCentroid > 2000 {
		t.Errorf("centroid implausible for 220 Hz harmonics: %f Hz", features.SpectralCentroid)
	}
	if features.ZeroCrossingRate <= 0 || features.ZeroCrossingRate >= 1 {
		t.Errorf("ZCR out of range: %f", features.ZeroCrossingRate)
	}
}

func TestExtractZeroCrossingRate(t *testing.T) {
	e := newTestExtractor(t, nil)

	// A sine at f crosses zero about 2f times per second.
	const freq = 1000.0
	block := dsptest.SineWave(testBlockSize, testSampleRate, freq, 0.9)
	features, err := e.Extract(block, 0)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	expected := 2 * freq / testSampleRate
	if math.Abs(features.ZeroCrossingRate-expected) > expected*0.15 {
		t.Errorf("ZCR for %0.f Hz sine: got %f, want ~%f", freq, features.ZeroCrossingRate, expected)
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := newTestExtractor(t, nil)

	block := dsptest.VowelLikeWave(testBlockSize, testSampleRate, 150)
	first, err := e.Extract(block, 0)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	second, err := e.Extract(block, 0)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	for i := range first.MFCC {
		if first.MFCC[i] != second.MFCC[i] {
			t.Errorf("MFCC[%d] differs between identical blocks: %f vs %f", i, first.MFCC[i], second.MFCC[i])
		}
	}
	if first.SpectralCentroid != second.SpectralCentroid {
		t.Error("spectral centroid differs between identical blocks")
	}
}

func TestNewExtractorRejectsBadParams(t *testing.T) {
	base := config.Defaults().LipSync

	if _, err := NewExtractor(1000, testSampleRate, base); err == nil {
		t.Error("expected error for non power-of-2 block size")
	}
	// A single-sample block is a power of 2 but has no sample pairs, so the
	// zero-crossing rate would be undefined.
	if _, err := NewExtractor(1, testSampleRate, base); err == nil {
		t.Error("expected error for single-sample block size")
	}
	if _, err := NewExtractor(testBlockSize, 0, base); err == nil {
		t.Error("expected error for zero sample rate")
	}

	cfg := base
	cfg.MFCCCoefficients = 0
	if _, err := NewExtractor(testBlockSize, testSampleRate, cfg); err == nil {
		t.Error("expected error for zero coefficient count")
	}

	cfg = base
	cfg.MelFilterBanks = 1
	if _, err := NewExtractor(testBlockSize, testSampleRate, cfg); err == nil {
		t.Error("expected error for degenerate filter bank")
	}

	cfg = base
	cfg.FFTWindow = "triangle-ish"
	if _, err := NewExtractor(testBlockSize, testSampleRate, cfg); err == nil {
		t.Error("expected error for unknown window name")
	}

	cfg = base
	cfg.EnergyThreshold = math.NaN()
	if _, err := NewExtractor(testBlockSize, testSampleRate, cfg); err == nil {
		t.Error("expected error for NaN energy threshold")
	}
}

func BenchmarkExtract(b *testing.B) {
	cfg := config.Defaults().LipSync
	e, err := NewExtractor(testBlockSize, testSampleRate, cfg)
	if err != nil {
		b.Fatalf("NewExtractor error: %v", err)
	}
	block := dsptest.VowelLikeWave(testBlockSize, testSampleRate, 220)

	b.ReportAllocs()

	for b.Loop() {
		if _, err := e.Extract(block, 0); err != nil {
			b.Fatal(err)
		}
	}
}
