// SPDX-License-Identifier: MIT
/*
Package transport publishes stabilized mouth shapes to external render
layers. The pipeline itself never blocks on a renderer: the publisher polls
the engine's mailbox at the render cadence and pushes frames out over
whichever transports are configured.
*/
package transport

import "lipsync/internal/lipsync"

// Frame is one published render frame.
type Frame struct {
	Type        string `json:"type"`  // Always "shape".
	Shape       string `json:"shape"` // Current stabilized mouth shape.
	State       string `json:"state"` // Engine state ("live", "degraded", ...).
	Seq         uint64 `json:"seq"`   // Monotonic frame counter.
	TimestampMs int64  `json:"ts"`    // Publish time, Unix milliseconds.
}

// Transport delivers frames to a render collaborator.
// Implementations must be safe for use from the publisher goroutine and must
// drop rather than block when a consumer is slow.
type Transport interface {
	Send(frame Frame) error
	Close() error
}

// Poller is the engine-side surface the publisher consumes: a non-blocking
// read of the latest stabilized shape and the current lifecycle state.
type Poller interface {
	Poll() lipsync.Shape
	State() lipsync.State
}
