// SPDX-License-Identifier: MIT
package lipsync

import "fmt"

// Smoother suppresses single-block flicker by majority vote over a short
// rolling window of classified shapes. It is not safe for concurrent use;
// the engine drives it from the producer context only.
type Smoother struct {
	window []Shape // Ring buffer of the last observations.
	next   int     // Ring cursor: index of the next write.
	count  int     // Observations currently held (<= len(window)).
}

// NewSmoother creates a Smoother voting over the last size shapes.
func NewSmoother(size int) (*Smoother, error) {
	if size < 1 {
		return nil, fmt.Errorf("smoothing window must be at least 1, got %d", size)
	}
	return &Smoother{window: make([]Shape, size)}, nil
}

// Observe pushes a candidate into the window, evicting the oldest entry once
// full, and returns the majority shape. Ties go to the most recently observed
// candidate, favoring responsiveness over inertia. Before the window fills,
// the vote runs over whatever has been observed so far.
func (s *Smoother) Observe(candidate Shape) Shape {
	s.window[s.next] = candidate
	s.next = (s.next + 1) % len(s.window)
	if s.count < len(s.window) {
		s.count++
	}

	// Scan newest to oldest so the first shape hitting the max count is the
	// most recently observed one among any tie. The window is tiny, so the
	// quadratic count stays cheap and allocation-free in the hot path.
	best := candidate
	bestCount := 0
	for i := 0; i < s.count; i++ {
		shape := s.at(i)
		votes := 0
		for j := 0; j < s.count; j++ {
			if s.at(j) == shape {
				votes++
			}
		}
		if votes > bestCount {
			best = shape
			bestCount = votes
		}
	}
	return best
}

// at returns the i-th most recent observation (0 = newest).
func (s *Smoother) at(i int) Shape {
	return s.window[(s.next-1-i+len(s.window))%len(s.window)]
}

// Size returns the window capacity.
func (s *Smoother) Size() int {
	return len(s.window)
}

// Reset clears the history, as if the smoother were newly constructed.
// The next Observe starts voting from scratch.
func (s *Smoother) Reset() {
	s.next = 0
	s.count = 0
}
