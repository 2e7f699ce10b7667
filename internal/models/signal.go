package models

import "math"

// Signal an ECG sample sequence with its sampling rate (Hz).
// Treated as immutable once loaded; a new load replaces it wholesale.
type Signal struct {
	Samples []float64 `json:"samples"`
	FS      float64   `json:"fs"`
}

// Len returns the number of samples.
func (s Signal) Len() int {
	return len(s.Samples)
}

// Duration returns the signal length in seconds.
func (s Signal) Duration() float64 {
	if s.FS <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / s.FS
}

// Validate checks the sampling rate and that samples exist.
func (s Signal) Validate() error {
	if !(s.FS > 0) || math.IsInf(s.FS, 0) {
		return NewConfigurationError("sampling rate must be positive and finite, got %g", s.FS)
	}
	if len(s.Samples) == 0 {
		return NewConfigurationError("signal has no samples")
	}
	return nil
}

// Window an (offset, length) view into a Signal.
type Window struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// End returns the exclusive end index.
func (w Window) End() int {
	return w.Offset + w.Length
}

// Format container format of a recording.
type Format string

const (
	FormatMAT  Format = "mat"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Recording a decoded signal together with where it came from.
type Recording struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Format Format `json:"format"`
	Signal Signal `json:"signal"`
}
