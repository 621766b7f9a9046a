// SPDX-License-Identifier: MIT
/*
Package lipsync implements the real-time mouth-shape decision pipeline:
classification of acoustic features into discrete shapes, temporal smoothing
of the classified sequence, and the engine that bridges the audio producer
callback to a fixed-rate render consumer.
*/
package lipsync

// Shape is the discrete mouth shape handed to the render layer.
// Equality is the only meaningful operation; there is no ordering.
type Shape string

const (
	ShapeClosed Shape = "closed" // Rest position, silence.
	ShapeA      Shape = "A"      // Open mouth, low vowels ("ah").
	ShapeO      Shape = "O"      // Rounded mouth, back vowels ("oh").
	ShapeE      Shape = "E"      // Wide mouth, front vowels ("eh").
)

// fallbackCycle is the scripted shape sequence played while the engine is
// degraded, so the render layer always has something to animate.
var fallbackCycle = []Shape{ShapeClosed, ShapeA, ShapeO, ShapeE}
