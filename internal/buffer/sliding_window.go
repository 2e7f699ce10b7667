// Package buffer provides the wrapping display window over a loaded signal.
package buffer

import "wisefido-ecg/internal/models"

// View one window of samples. Samples aliases the signal; callers must not
// modify it.
type View struct {
	Window  models.Window
	Samples []float64
}

// SlidingWindow walks a fixed-width window across a sample sequence and wraps
// to the start when the next window would reach the end.
type SlidingWindow struct {
	samples    []float64
	windowSize int
	current    int
	artifact   any
}

// New fails with a ConfigurationError when the signal is shorter than the window.
func New(samples []float64, windowSize int) (*SlidingWindow, error) {
	if windowSize <= 0 {
		return nil, models.NewConfigurationError("window size must be positive, got %d", windowSize)
	}
	if len(samples) < windowSize {
		return nil, models.NewConfigurationError("signal of %d samples is shorter than window of %d", len(samples), windowSize)
	}
	return &SlidingWindow{samples: samples, windowSize: windowSize}, nil
}

// Advance moves the cursor by step and returns the window at the new position.
// When current+windowSize reaches the end the cursor wraps to 0 first.
func (b *SlidingWindow) Advance(step int) View {
	b.current += step
	if b.current < 0 || b.current+b.windowSize >= len(b.samples) {
		b.current = 0
	}
	return b.Current()
}

// Current returns the window at the cursor without moving it.
func (b *SlidingWindow) Current() View {
	w := models.Window{Offset: b.current, Length: b.windowSize}
	return View{Window: w, Samples: b.samples[w.Offset:w.End()]}
}

// Reset rewinds the cursor and drops the cached render artifact.
func (b *SlidingWindow) Reset() {
	b.current = 0
	b.artifact = nil
}

// Offset returns the cursor position.
func (b *SlidingWindow) Offset() int {
	return b.current
}

// WindowSize returns the configured width.
func (b *SlidingWindow) WindowSize() int {
	return b.windowSize
}

// SetArtifact caches whatever the renderer produced for the current view.
func (b *SlidingWindow) SetArtifact(a any) {
	b.artifact = a
}

// Artifact returns the cached render artifact, nil after Reset.
func (b *SlidingWindow) Artifact() any {
	return b.artifact
}
