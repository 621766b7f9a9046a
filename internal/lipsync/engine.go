// SPDX-License-Identifier: MIT
package lipsync

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"lipsync/internal/analysis"
	"lipsync/internal/config"
	applog "lipsync/internal/log"
)

// State describes the engine lifecycle.
type State int32

const (
	StateIdle     State = iota // Constructed, not started.
	StateLive                  // Audio flowing, classifying normally.
	StateDegraded              // Audio source unavailable, fallback cycle running.
	StateStopped               // Terminal, resources released.
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLive:
		return "live"
	case StateDegraded:
		return "degraded"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Source is the audio capture collaborator. Start begins block delivery to
// the engine's handlers; Stop terminates delivery and must not return while
// a callback is still in flight.
type Source interface {
	Start() error
	Stop() error
}

// defaultFallbackInterval paces the scripted shape cycle while degraded.
const defaultFallbackInterval = 250 * time.Millisecond

// Engine orchestrates the pipeline: it runs extraction, classification and
// smoothing in the audio producer context, and publishes each stabilized
// shape into a single-slot mailbox that the render consumer polls.
//
// The mailbox is deliberately latest-wins: the producer overwrites, the
// consumer reads whatever is current. Poll never blocks, a slow consumer
// never backs up the producer, and stale shapes are simply dropped.
type Engine struct {
	source    Source
	extractor *analysis.Extractor
	smoother  *Smoother

	state atomic.Int32 // State; read on the hot path without locks.

	mu sync.Mutex // Serializes lifecycle transitions (Start/Stop/Restart/degrade).

	strategyMu sync.RWMutex // Guards strategy swaps against in-flight classification.
	strategy   Strategy

	shapeMu sync.Mutex // Guards the single-slot mailbox.
	shape   Shape

	smootherMu sync.Mutex // Guards the smoother between producer and Stop.

	fallbackInterval time.Duration
	fallbackDone     chan struct{}
	fallbackWG       sync.WaitGroup

	// Counters and meters for status displays. lastRMS holds float64 bits.
	blocksIn      atomic.Uint64
	blocksSkipped atomic.Uint64
	lastRMS       atomic.Uint64
}

// NewEngine constructs an engine from validated configuration and an audio
// source. Construction fails on any configuration the pipeline cannot run
// with, before Start is ever reachable.
func NewEngine(cfg *config.Config, source Source) (*Engine, error) {
	if source == nil {
		return nil, errors.New("engine requires an audio source")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	extractor, err := analysis.NewExtractor(cfg.Audio.BlockSize, cfg.Audio.SampleRate, cfg.LipSync)
	if err != nil {
		return nil, fmt.Errorf("feature extractor: %w", err)
	}
	strategy, err := StrategyForName(cfg.LipSync.Strategy, cfg.LipSync)
	if err != nil {
		return nil, err
	}
	smoother, err := NewSmoother(cfg.LipSync.SmoothingWindow)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		source:           source,
		extractor:        extractor,
		strategy:         strategy,
		smoother:         smoother,
		shape:            ShapeClosed,
		fallbackInterval: defaultFallbackInterval,
	}
	e.state.Store(int32(StateIdle))
	return e, nil
}

// State returns the current engine state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Start opens the audio source and begins live classification.
// A synchronous source failure is reported and leaves the engine idle.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.State() {
	case StateIdle:
	case StateStopped:
		return errors.New("engine is stopped")
	default:
		return errors.New("engine already started")
	}

	if err := e.source.Start(); err != nil {
		return fmt.Errorf("failed to start audio source: %w", err)
	}
	e.state.Store(int32(StateLive))
	applog.Infof("engine: live (window %d, fallback %s)", e.smoother.Size(), e.fallbackInterval)
	return nil
}

// Stop terminates the pipeline: it stops the audio source (joining any
// in-flight callback), halts the fallback cycle and clears the smoothing
// window. The mailbox keeps its last value, so Poll stays total. Stop is
// idempotent and safe to call while a producer callback, including the
// error callback, is still in flight.
func (e *Engine) Stop() error {
	e.mu.Lock()

	prev := e.State()
	if prev == StateStopped {
		e.mu.Unlock()
		return nil
	}
	e.state.Store(int32(StateStopped))

	e.stopFallbackLocked()

	// The producer join must happen without holding e.mu: Source.Stop blocks
	// until any in-flight callback returns, and the error callback
	// (HandleSourceError) takes e.mu itself. The state is already Stopped, so
	// a late callback observes that and bails out.
	e.mu.Unlock()

	var err error
	if prev == StateLive || prev == StateDegraded {
		// Source.Stop blocks until callback delivery has quiesced, so no
		// further mailbox writes occur after this returns.
		err = e.source.Stop()
	}

	e.smootherMu.Lock()
	e.smoother.Reset()
	e.smootherMu.Unlock()

	applog.Infof("engine: stopped")
	return err
}

// Restart recovers from the degraded state by reopening the audio source.
// Recovery is deliberately explicit; the engine never flips back to live on
// its own.
func (e *Engine) Restart() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.State() != StateDegraded {
		return fmt.Errorf("restart only valid while degraded, state is %s", e.State())
	}
	if err := e.source.Start(); err != nil {
		return fmt.Errorf("failed to restart audio source: %w", err)
	}

	e.stopFallbackLocked()

	e.smootherMu.Lock()
	e.smoother.Reset()
	e.smootherMu.Unlock()

	e.state.Store(int32(StateLive))
	applog.Infof("engine: restarted, live again")
	return nil
}

// SetStrategy swaps the active classifier. Safe to call concurrently with
// classification; an in-flight block may still see the previous strategy.
func (e *Engine) SetStrategy(s Strategy) {
	if s == nil {
		return
	}
	e.strategyMu.Lock()
	e.strategy = s
	e.strategyMu.Unlock()
}

// Poll returns the latest stabilized shape. It never blocks and always
// returns a value: ShapeClosed before anything has been observed, the
// frozen last value after Stop.
func (e *Engine) Poll() Shape {
	e.shapeMu.Lock()
	shape := e.shape
	e.shapeMu.Unlock()
	return shape
}

// HandleBlock is the producer-side entry point, invoked once per captured
// block from the audio callback context. It must stay fast: extraction and
// classification run on pre-allocated buffers, and only the stabilized shape
// crosses into the mailbox.
func (e *Engine) HandleBlock(samples []float32, seq uint64) {
	if e.State() != StateLive {
		return
	}
	e.blocksIn.Add(1)

	features, err := e.extractor.Extract(samples, seq)
	if err != nil {
		// Malformed block: local failure, skip and continue.
		e.blocksSkipped.Add(1)
		applog.Debugf("engine: skipping block %d: %v", seq, err)
		return
	}
	e.lastRMS.Store(math.Float64bits(features.RMSEnergy))

	e.strategyMu.RLock()
	strategy := e.strategy
	e.strategyMu.RUnlock()
	candidate := strategy.Classify(features)

	e.smootherMu.Lock()
	stabilized := e.smoother.Observe(candidate)
	e.smootherMu.Unlock()

	e.publish(stabilized)
}

// HandleSourceError is the capture error callback. Any source failure while
// live flips the engine into the degraded fallback cycle instead of crashing
// or freezing the render side.
func (e *Engine) HandleSourceError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.State() != StateLive {
		return
	}
	applog.Errorf("engine: audio source failed, degrading: %v", err)
	e.state.Store(int32(StateDegraded))
	e.startFallbackLocked()
}

// Stats returns block counters and the most recent RMS level, for status
// displays.
func (e *Engine) Stats() (blocksIn, blocksSkipped uint64, lastRMS float64) {
	return e.blocksIn.Load(), e.blocksSkipped.Load(), math.Float64frombits(e.lastRMS.Load())
}

func (e *Engine) publish(shape Shape) {
	e.shapeMu.Lock()
	e.shape = shape
	e.shapeMu.Unlock()
}

// startFallbackLocked launches the scripted shape cycle. Caller holds e.mu.
func (e *Engine) startFallbackLocked() {
	done := make(chan struct{})
	e.fallbackDone = done
	e.fallbackWG.Add(1)

	// Publish immediately so polls stop seeing the frozen last live value.
	e.publish(fallbackCycle[0])

	go func() {
		defer e.fallbackWG.Done()
		ticker := time.NewTicker(e.fallbackInterval)
		defer ticker.Stop()

		idx := 1
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				e.publish(fallbackCycle[idx])
				idx = (idx + 1) % len(fallbackCycle)
			}
		}
	}()
}

// stopFallbackLocked halts the fallback goroutine if running and waits for
// it to exit. Caller holds e.mu.
func (e *Engine) stopFallbackLocked() {
	if e.fallbackDone == nil {
		return
	}
	close(e.fallbackDone)
	e.fallbackWG.Wait()
	e.fallbackDone = nil
}
