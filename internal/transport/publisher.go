// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"sync"
	"time"

	applog "lipsync/internal/log"
)

// Publisher is the render-side consumer loop: it polls the engine's mailbox
// on a fixed timer, independent of the audio cadence, and pushes one frame
// per tick to every configured transport. Polling faster than blocks arrive
// simply republishes the current shape; the mailbox makes that free.
type Publisher struct {
	poller     Poller
	transports []Transport
	interval   time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint64
}

// NewPublisher creates a Publisher driving the given transports at interval.
// An invalid interval defaults to ~30 frames per second.
func NewPublisher(interval time.Duration, poller Poller, transports ...Transport) (*Publisher, error) {
	if poller == nil {
		return nil, fmt.Errorf("publisher requires a poller")
	}
	if len(transports) == 0 {
		return nil, fmt.Errorf("publisher requires at least one transport")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("publisher: invalid interval provided, defaulting to %s", interval)
	}

	return &Publisher{
		poller:     poller,
		transports: transports,
		interval:   interval,
	}, nil
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher is an error.
func (p *Publisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ticker != nil {
		return fmt.Errorf("publisher already started")
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	p.wg.Add(1)
	go p.run()

	applog.Infof("publisher: started (interval %s, %d transports)", p.interval, len(p.transports))
	return nil
}

// Stop halts publishing and waits for the goroutine to exit. Idempotent.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.doneChan == nil {
		return
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
	})
	p.wg.Wait()
	p.ticker.Stop()
	p.ticker = nil
	p.doneChan = nil
}

func (p *Publisher) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.doneChan:
			return
		case <-p.ticker.C:
			p.publishFrame()
		}
	}
}

func (p *Publisher) publishFrame() {
	frame := Frame{
		Type:        "shape",
		Shape:       string(p.poller.Poll()),
		State:       p.poller.State().String(),
		Seq:         p.sequenceNum,
		TimestampMs: time.Now().UnixMilli(),
	}
	p.sequenceNum++

	for _, tr := range p.transports {
		if err := tr.Send(frame); err != nil {
			applog.Warnf("publisher: send failed: %v", err)
		}
	}
}
