// SPDX-License-Identifier: MIT
package lipsync

import "testing"

func feed(t *testing.T, s *Smoother, candidates ...Shape) Shape {
	t.Helper()
	var last Shape
	for _, c := range candidates {
		last = s.Observe(c)
	}
	return last
}

func TestSmootherMajority(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		sequence []Shape
		expected Shape
	}{
		{"two of three", 3, []Shape{ShapeA, ShapeA, ShapeO}, ShapeA},
		{"majority shifts", 3, []Shape{ShapeA, ShapeO, ShapeO}, ShapeO},
		{"tie goes to newest", 2, []Shape{ShapeA, ShapeO}, ShapeO},
		{"tie goes to newest reversed", 2, []Shape{ShapeO, ShapeA}, ShapeA},
		{"three way tie", 3, []Shape{ShapeA, ShapeO, ShapeE}, ShapeE},
		{"single observation", 3, []Shape{ShapeE}, ShapeE},
		{"window of one tracks input", 1, []Shape{ShapeA, ShapeO, ShapeClosed}, ShapeClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSmoother(tt.size)
			if err != nil {
				t.Fatalf("NewSmoother error: %v", err)
			}
			if got := feed(t, s, tt.sequence...); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestSmootherEviction(t *testing.T) {
	s, err := NewSmoother(3)
	if err != nil {
		t.Fatalf("NewSmoother error: %v", err)
	}

	// Old observations fall out of the window as new ones arrive.
	feed(t, s, ShapeA, ShapeA, ShapeA)
	if got := s.Observe(ShapeO); got != ShapeA {
		t.Errorf("after one O: got %s, want %s", got, ShapeA)
	}
	if got := s.Observe(ShapeO); got != ShapeO {
		t.Errorf("after two O: got %s, want %s", got, ShapeO)
	}
}

func TestSmootherEmitsBeforeFull(t *testing.T) {
	s, err := NewSmoother(5)
	if err != nil {
		t.Fatalf("NewSmoother error: %v", err)
	}

	// No warm-up period: the vote runs over the partial window.
	if got := s.Observe(ShapeO); got != ShapeO {
		t.Errorf("first observation: got %s, want %s", got, ShapeO)
	}
	if got := s.Observe(ShapeO); got != ShapeO {
		t.Errorf("second observation: got %s, want %s", got, ShapeO)
	}
}

func TestSmootherReset(t *testing.T) {
	s, err := NewSmoother(3)
	if err != nil {
		t.Fatalf("NewSmoother error: %v", err)
	}

	feed(t, s, ShapeA, ShapeA, ShapeA)
	s.Reset()

	// History is gone: a single new observation wins outright.
	if got := s.Observe(ShapeO); got != ShapeO {
		t.Errorf("after reset: got %s, want %s", got, ShapeO)
	}
}

func TestNewSmootherRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, -1, -5} {
		if _, err := NewSmoother(size); err == nil {
			t.Errorf("expected error for window size %d", size)
		}
	}
}

func TestObserveDoesNotAllocate(t *testing.T) {
	s, err := NewSmoother(5)
	if err != nil {
		t.Fatalf("NewSmoother error: %v", err)
	}

	shapes := []Shape{ShapeClosed, ShapeA, ShapeO, ShapeE}
	i := 0
	allocs := testing.AllocsPerRun(100, func() {
		s.Observe(shapes[i%len(shapes)])
		i++
	})
	if allocs != 0 {
		t.Errorf("Observe allocated %.1f times per call, want 0", allocs)
	}
}
