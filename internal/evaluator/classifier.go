package evaluator

import (
	"wisefido-ecg/internal/analyzer"
	"wisefido-ecg/internal/models"

	"go.uber.org/zap"
)

// Thresholds clinical cut-offs used by the classifier.
type Thresholds struct {
	VariabilityCV  float64 // CV above this is AtrialFibrillation
	TachycardiaBPM float64 // HR above this is VentricularTachycardia
	BradycardiaBPM float64 // HR below this is Bradycardia
}

// DefaultThresholds 0.10 CV, 100 / 60 bpm.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VariabilityCV:  0.10,
		TachycardiaBPM: 100,
		BradycardiaBPM: 60,
	}
}

// Decision outcome of one classification.
type Decision struct {
	Classification models.Classification
	Mode           models.AnalysisMode
	// HeartRate rounded bpm for display, nil when no RR interval exists.
	HeartRate *int
	Metrics   models.RhythmMetrics
}

// Indicator returns the alarm indicator to raise, if any.
func (d Decision) Indicator() (models.Indicator, bool) {
	return d.Classification.Indicator()
}

// Classifier applies Thresholds to analyzer output. Never fails.
type Classifier struct {
	thresholds Thresholds
	logger     *zap.Logger
}

// NewClassifier creates a classifier.
func NewClassifier(th Thresholds, logger *zap.Logger) *Classifier {
	return &Classifier{thresholds: th, logger: logger}
}

// Classify maps one analysis result to exactly one Classification.
func (c *Classifier) Classify(res analyzer.Result, mode models.AnalysisMode) Decision {
	d := Decision{
		Classification: models.ClassificationInsufficientData,
		Mode:           mode,
	}
	if res.Insufficient || len(res.Metrics.Intervals) == 0 {
		c.logger.Info("Not enough beats detected for rhythm analysis",
			zap.Int("peak_count", res.PeakCount),
			zap.String("mode", string(mode)),
		)
		return d
	}

	m := res.Metrics
	hr := m.RoundedHeartRate()
	d.HeartRate = &hr
	d.Metrics = m

	switch mode {
	case models.ModeVariability:
		d.Classification = c.byVariability(m)
	case models.ModeRate:
		d.Classification = c.byRate(m)
	default:
		c.logger.Error("Unknown analysis mode, rhythm not classified", zap.String("mode", string(mode)))
	}

	c.logger.Info("Rhythm classified",
		zap.String("mode", string(mode)),
		zap.String("classification", string(d.Classification)),
		zap.Float64("mean_rr", m.MeanRR),
		zap.Float64("std_rr", m.StdRR),
		zap.Float64("cv", m.CV),
		zap.Float64("heart_rate", m.HeartRate),
	)
	return d
}

// byVariability needs at least two RR intervals for a dispersion estimate.
func (c *Classifier) byVariability(m models.RhythmMetrics) models.Classification {
	if len(m.Intervals) < 2 {
		return models.ClassificationInsufficientData
	}
	if m.CV > c.thresholds.VariabilityCV {
		return models.ClassificationAtrialFibrillation
	}
	return models.ClassificationNormal
}

func (c *Classifier) byRate(m models.RhythmMetrics) models.Classification {
	switch {
	case m.HeartRate > c.thresholds.TachycardiaBPM:
		return models.ClassificationVentricularTachycardia
	case m.HeartRate < c.thresholds.BradycardiaBPM:
		return models.ClassificationBradycardia
	default:
		return models.ClassificationNormal
	}
}
