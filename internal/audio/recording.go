// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "lipsync/internal/log"
)

// recordingBitDepth is the WAV sample width. 16 bits is plenty for tuning
// thresholds by ear and keeps files small.
const recordingBitDepth = 16

// maxConsecutiveWriteFailures stops a recording that keeps failing (disk
// full, file deleted) instead of spamming the audio thread with errors.
const maxConsecutiveWriteFailures = 5

// StartRecording begins writing captured blocks to a WAV file.
// Safe to call while the stream is running; the callback picks the flag up
// atomically.
func (c *Capture) StartRecording(filename string) error {
	if c.isRecording.Load() == 1 {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create recording file: %w", err)
	}
	c.wavFile = file
	c.wavEncoder = wav.NewEncoder(file, int(c.cfg.Audio.SampleRate), recordingBitDepth, 1, 1)
	c.sampleBuf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  int(c.cfg.Audio.SampleRate),
		},
		SourceBitDepth: recordingBitDepth,
		Data:           make([]int, c.cfg.Audio.BlockSize),
	}
	c.writeFailures = 0

	c.isRecording.Store(1)
	applog.Infof("capture: recording to %s", filename)
	return nil
}

// StopRecording finalizes the WAV file. A no-op when not recording.
func (c *Capture) StopRecording() error {
	if c.isRecording.Load() == 0 {
		return nil
	}
	c.isRecording.Store(0)

	if c.wavEncoder != nil {
		if err := c.wavEncoder.Close(); err != nil {
			return fmt.Errorf("failed to finalize recording: %w", err)
		}
		c.wavEncoder = nil
	}
	if c.wavFile != nil {
		if err := c.wavFile.Close(); err != nil {
			return err
		}
		c.wavFile = nil
	}
	return nil
}

// writeRecording converts one float32 block to integer PCM and appends it.
// Runs on the audio thread; repeated failures abort the recording and are
// surfaced through the error handler.
func (c *Capture) writeRecording(block []float32) {
	const scale = 1<<(recordingBitDepth-1) - 1

	data := c.sampleBuf.Data[:len(block)]
	for i, s := range block {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * scale)
	}
	c.sampleBuf.Data = data

	if err := c.wavEncoder.Write(c.sampleBuf); err != nil {
		c.writeFailures++
		applog.Errorf("capture: recording write failed (%d/%d): %v", c.writeFailures, maxConsecutiveWriteFailures, err)
		if c.writeFailures >= maxConsecutiveWriteFailures {
			c.isRecording.Store(0)
			c.fail(fmt.Errorf("recording aborted after %d write failures: %w", c.writeFailures, err))
		}
		return
	}
	c.writeFailures = 0
}
