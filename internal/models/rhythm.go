package models

import "math"

// RhythmMetrics aggregate over the RR intervals of one analysis pass.
type RhythmMetrics struct {
	Intervals []float64 `json:"intervals"` // RR intervals (s)
	MeanRR    float64   `json:"mean_rr"`
	StdRR     float64   `json:"std_rr"` // population std
	CV        float64   `json:"cv"`
	HeartRate float64   `json:"heart_rate"` // bpm, unrounded
}

// RoundedHeartRate is the display value.
func (m RhythmMetrics) RoundedHeartRate() int {
	return int(math.Round(m.HeartRate))
}

// Classification rhythm category produced by one analysis pass.
type Classification string

const (
	ClassificationNormal                 Classification = "Normal"
	ClassificationAtrialFibrillation     Classification = "AtrialFibrillation"
	ClassificationVentricularTachycardia Classification = "VentricularTachycardia"
	ClassificationBradycardia            Classification = "Bradycardia"
	ClassificationInsufficientData       Classification = "InsufficientData"
)

// Indicator returns the alarm indicator bound to an abnormal classification.
func (c Classification) Indicator() (Indicator, bool) {
	switch c {
	case ClassificationAtrialFibrillation:
		return IndicatorAF, true
	case ClassificationVentricularTachycardia:
		return IndicatorVT, true
	case ClassificationBradycardia:
		return IndicatorBradycardia, true
	}
	return "", false
}

// AnalysisMode selects which thresholds the classifier applies.
type AnalysisMode string

const (
	// ModeVariability screens for arrhythmia via RR-interval dispersion.
	ModeVariability AnalysisMode = "variability"
	// ModeRate screens for tachycardia / bradycardia via mean heart rate.
	ModeRate AnalysisMode = "rate"
)

// ParseAnalysisMode validates a mode name.
func ParseAnalysisMode(s string) (AnalysisMode, error) {
	switch AnalysisMode(s) {
	case ModeVariability, ModeRate:
		return AnalysisMode(s), nil
	}
	return "", NewConfigurationError("unknown analysis mode %q (want %q or %q)", s, ModeVariability, ModeRate)
}

// Indicator identifies one alarm indicator on the display.
type Indicator string

const (
	IndicatorAF          Indicator = "af"
	IndicatorVT          Indicator = "vt"
	IndicatorBradycardia Indicator = "bradycardia"
)

// Indicators lists every indicator in display order.
var Indicators = []Indicator{IndicatorAF, IndicatorVT, IndicatorBradycardia}
