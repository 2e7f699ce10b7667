// Package render turns a signal window into something drawable.
package render

import (
	"wisefido-ecg/internal/buffer"
	"wisefido-ecg/internal/models"
)

// DefaultHeight vertical extent of a normalized window.
const DefaultHeight = 100.0

// Point one plotted sample. Y grows downwards.
type Point struct {
	X float64
	Y float64
}

// Frame one render request: the window and its normalized trace.
type Frame struct {
	Window models.Window
	Points []Point
	Min    float64
	Max    float64
	Height float64
}

// Renderer draws frames. Called from the monitor loop only.
type Renderer interface {
	Render(frame Frame) error
}

// Bounds returns the min and max of samples, (0, 0) when empty.
func Bounds(samples []float64) (lo, hi float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	lo, hi = samples[0], samples[0]
	for _, v := range samples[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Normalize maps samples into [0, height] and flips them so larger values
// sit higher on screen. A flat window maps to mid-height.
func Normalize(samples []float64, lo, hi, height float64) []Point {
	out := make([]Point, len(samples))
	span := hi - lo
	for i, v := range samples {
		y := height / 2
		if span > 0 {
			y = height - (v-lo)/span*height
		}
		out[i] = Point{X: float64(i), Y: y}
	}
	return out
}

// NewFrame normalizes a buffer view against its own bounds.
func NewFrame(view buffer.View, height float64) Frame {
	lo, hi := Bounds(view.Samples)
	return Frame{
		Window: view.Window,
		Points: Normalize(view.Samples, lo, hi, height),
		Min:    lo,
		Max:    hi,
		Height: height,
	}
}

// Discard drops every frame; used when running headless.
type Discard struct{}

// Render implements Renderer.
func (Discard) Render(Frame) error { return nil }
