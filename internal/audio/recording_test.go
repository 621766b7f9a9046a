// SPDX-License-Identifier: MIT
package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"lipsync/internal/config"
	"lipsync/pkg/dsptest"
)

// newOfflineCapture builds a Capture without touching PortAudio, so the
// recording path can be exercised directly.
func newOfflineCapture(t *testing.T) *Capture {
	t.Helper()
	cfg := config.Defaults()
	cfg.Audio.BlockSize = 256
	return &Capture{
		cfg:        cfg,
		monoBuffer: make([]float32, cfg.Audio.BlockSize),
	}
}

func TestRecordingRoundTrip(t *testing.T) {
	c := newOfflineCapture(t)
	path := filepath.Join(t.TempDir(), "capture.wav")

	if err := c.StartRecording(path); err != nil {
		t.Fatalf("StartRecording error: %v", err)
	}
	if err := c.StartRecording(path); err == nil {
		t.Error("expected error for double StartRecording")
	}

	block := dsptest.SineWave(256, 44100, 440, 0.5)
	for i := 0; i < 4; i++ {
		c.writeRecording(block)
	}

	if err := c.StopRecording(); err != nil {
		t.Fatalf("StopRecording error: %v", err)
	}
	// Idempotent.
	if err := c.StopRecording(); err != nil {
		t.Errorf("second StopRecording error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recording: %v", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode recording: %v", err)
	}
	if got := len(buf.Data); got != 4*256 {
		t.Errorf("recorded samples: got %d, want %d", got, 4*256)
	}
	if decoder.SampleRate != 44100 {
		t.Errorf("recorded sample rate: got %d, want 44100", decoder.SampleRate)
	}
}

func TestRecordingClipsOutOfRangeSamples(t *testing.T) {
	c := newOfflineCapture(t)
	path := filepath.Join(t.TempDir(), "clip.wav")

	if err := c.StartRecording(path); err != nil {
		t.Fatalf("StartRecording error: %v", err)
	}

	block := make([]float32, 256)
	for i := range block {
		block[i] = 2.0 // beyond full scale
	}
	c.writeRecording(block)

	if err := c.StopRecording(); err != nil {
		t.Fatalf("StopRecording error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recording: %v", err)
	}
	defer f.Close()

	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode recording: %v", err)
	}
	for i, s := range buf.Data {
		if s > 32767 || s < -32768 {
			t.Fatalf("sample %d out of 16-bit range: %d", i, s)
		}
	}
}
