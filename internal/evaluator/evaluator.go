// Package evaluator runs peak detection, interval analysis and rhythm
// classification over a signal as one synchronous pass.
package evaluator

import (
	"fmt"

	"wisefido-ecg/internal/analyzer"
	"wisefido-ecg/internal/detector"
	"wisefido-ecg/internal/models"

	"go.uber.org/zap"
)

// Evaluator one analysis pipeline, reused across load events.
type Evaluator struct {
	peakOpts   detector.Options
	classifier *Classifier
	logger     *zap.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(peakOpts detector.Options, th Thresholds, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		peakOpts:   peakOpts,
		classifier: NewClassifier(th, logger),
		logger:     logger,
	}
}

// Evaluate detects peaks in samples and classifies the rhythm under mode.
// Precondition violations (fs <= 0, bad options) fail the pass.
func (e *Evaluator) Evaluate(samples []float64, fs float64, mode models.AnalysisMode) (Decision, error) {
	peaks, err := detector.FindPeaks(samples, fs, e.peakOpts)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to detect peaks: %w", err)
	}

	res, err := analyzer.Analyze(peaks, fs)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to analyze intervals: %w", err)
	}

	e.logger.Debug("Peaks detected",
		zap.Int("sample_count", len(samples)),
		zap.Float64("fs", fs),
		zap.Int("peak_count", len(peaks)),
	)

	return e.classifier.Classify(res, mode), nil
}
