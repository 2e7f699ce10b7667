// Package analyzer turns R-peak positions into RR-interval statistics.
package analyzer

import (
	"math"

	"wisefido-ecg/internal/models"
)

// Result of one analysis pass. When Insufficient is set Metrics is zero.
type Result struct {
	Insufficient bool
	PeakCount    int
	Metrics      models.RhythmMetrics
}

// Analyze computes RR intervals from consecutive peaks. Fewer than two peaks
// is a normal, low-information outcome, not an error.
func Analyze(peaks []int, fs float64) (Result, error) {
	if !(fs > 0) || math.IsInf(fs, 0) {
		return Result{}, models.NewConfigurationError("sampling rate must be positive, got %g", fs)
	}
	if len(peaks) < 2 {
		return Result{Insufficient: true, PeakCount: len(peaks)}, nil
	}

	rr := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		d := peaks[i] - peaks[i-1]
		if d <= 0 {
			return Result{}, models.NewConfigurationError("peaks must be strictly increasing: %d then %d", peaks[i-1], peaks[i])
		}
		rr[i-1] = float64(d) / fs
	}

	res, err := FromIntervals(rr)
	if err != nil {
		return Result{}, err
	}
	res.PeakCount = len(peaks)
	return res, nil
}

// FromIntervals computes metrics from RR intervals in seconds.
func FromIntervals(rr []float64) (Result, error) {
	if len(rr) == 0 {
		return Result{Insufficient: true}, nil
	}
	for _, v := range rr {
		if !(v > 0) || math.IsInf(v, 0) {
			return Result{}, models.NewConfigurationError("RR intervals must be positive and finite, got %g", v)
		}
	}

	mean := Mean(rr)
	std := PopulationStd(rr, mean)

	return Result{
		PeakCount: len(rr) + 1,
		Metrics: models.RhythmMetrics{
			Intervals: rr,
			MeanRR:    mean,
			StdRR:     std,
			CV:        std / mean,
			HeartRate: 60 / mean,
		},
	}, nil
}

// Mean of a non-empty slice.
func Mean(data []float64) float64 {
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// PopulationStd divides by n, not n-1.
func PopulationStd(data []float64, mean float64) float64 {
	sumSquares := 0.0
	for _, v := range data {
		diff := v - mean
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(data)))
}
