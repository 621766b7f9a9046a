// SPDX-License-Identifier: MIT
/*
Package audio wraps PortAudio capture for the lip-sync pipeline:
- Opens a mono (or downmixed) float32 input stream
- Delivers fixed-size sample blocks with sequence numbers to a handler
- Optionally records the captured input to a WAV file for offline tuning

Thread Safety:
- The PortAudio callback runs on its own thread; handlers are invoked there
- Recording state uses atomics so it can be toggled around a running stream
- Pre-allocated buffers keep the callback free of GC pressure
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"lipsync/internal/config"
	applog "lipsync/internal/log"
)

// BlockHandler receives one captured block per callback, on the audio thread.
// The slice is reused between callbacks; handlers must not retain it.
type BlockHandler func(samples []float32, seq uint64)

// ErrorHandler receives capture failures that occur after Start has returned.
type ErrorHandler func(err error)

// Capture owns the PortAudio input stream and feeds blocks to the handler.
type Capture struct {
	cfg     *config.Config
	device  *portaudio.DeviceInfo
	latency time.Duration
	stream  *portaudio.Stream

	onBlock BlockHandler
	onError ErrorHandler

	monoBuffer []float32     // Downmix target when capturing more than one channel.
	seq        atomic.Uint64 // Monotonic block sequence number.

	// Recording state; the callback checks the flag atomically.
	isRecording   atomic.Int32
	wavFile       *os.File
	wavEncoder    *wav.Encoder
	sampleBuf     *goaudio.IntBuffer
	writeFailures int
}

// NewCapture resolves the configured input device and prepares buffers.
// PortAudio must be initialized before calling this.
func NewCapture(cfg *config.Config, onBlock BlockHandler, onError ErrorHandler) (*Capture, error) {
	device, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	c := &Capture{
		cfg:        cfg,
		device:     device,
		onBlock:    onBlock,
		onError:    onError,
		monoBuffer: make([]float32, cfg.Audio.BlockSize),
	}

	if cfg.Audio.LowLatency {
		c.latency = device.DefaultLowInputLatency
	} else {
		c.latency = device.DefaultHighInputLatency
	}

	return c, nil
}

// Start opens and starts the input stream. The first callback marks the
// beginning of block delivery. A synchronous failure is returned to the
// caller; nothing is left half-open.
func (c *Capture) Start() error {
	if c.stream != nil {
		return fmt.Errorf("capture already started")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: c.cfg.Audio.Channels,
			Device:   c.device,
			Latency:  c.latency,
		},
		FramesPerBuffer: c.cfg.Audio.BlockSize,
		SampleRate:      c.cfg.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	c.stream = stream

	applog.Infof("capture: input stream started (%s, %.0f Hz, block %d)",
		c.device.Name, c.cfg.Audio.SampleRate, c.cfg.Audio.BlockSize)
	return nil
}

// Stop stops and closes the input stream. PortAudio's Stop blocks until the
// callback has finished, so no block is delivered after Stop returns.
func (c *Capture) Stop() error {
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	if err := c.stream.Close(); err != nil {
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	c.stream = nil
	return nil
}

// Close releases the stream and finalizes any active recording.
func (c *Capture) Close() error {
	if err := c.StopRecording(); err != nil {
		return err
	}
	return c.Stop()
}

// processInputStream is the PortAudio callback.
// Performance Critical:
// - Runs on the audio thread; LockOSThread keeps the runtime from migrating it
// - Uses pre-allocated buffers only
// - Extraction and classification happen downstream in the same call
func (c *Capture) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	block := in
	channels := c.cfg.Audio.Channels
	if channels > 1 {
		// Keep the first channel of each frame.
		frames := len(in) / channels
		if frames > len(c.monoBuffer) {
			frames = len(c.monoBuffer)
		}
		for i := 0; i < frames; i++ {
			c.monoBuffer[i] = in[i*channels]
		}
		block = c.monoBuffer[:frames]
	}

	seq := c.seq.Add(1) - 1

	if c.isRecording.Load() == 1 && c.wavEncoder != nil {
		c.writeRecording(block)
	}

	if c.onBlock != nil {
		c.onBlock(block, seq)
	}
}

// fail reports an asynchronous capture failure to the error handler.
func (c *Capture) fail(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}
