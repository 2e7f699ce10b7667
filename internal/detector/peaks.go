// Package detector finds R-peaks in a raw ECG sample sequence.
package detector

import (
	"math"
	"sort"

	"wisefido-ecg/internal/models"
)

const (
	DefaultMinDistanceSeconds = 0.4
	DefaultMinProminence      = 1.0
)

// Options tunes peak selection.
type Options struct {
	// MinDistanceSeconds minimum spacing between kept peaks.
	MinDistanceSeconds float64
	// MinProminence minimum height above the higher of the two bounding troughs.
	MinProminence float64
}

// DefaultOptions returns the reference tuning (0.4 s, prominence 1).
func DefaultOptions() Options {
	return Options{
		MinDistanceSeconds: DefaultMinDistanceSeconds,
		MinProminence:      DefaultMinProminence,
	}
}

type candidate struct {
	index  int
	height float64
}

// FindPeaks returns the indices of qualifying local maxima in ascending order.
// An empty result is not an error.
func FindPeaks(samples []float64, fs float64, opts Options) ([]int, error) {
	if !(fs > 0) || math.IsInf(fs, 0) {
		return nil, models.NewConfigurationError("sampling rate must be positive, got %g", fs)
	}
	if !(opts.MinDistanceSeconds >= 0) || !(opts.MinProminence >= 0) {
		return nil, models.NewConfigurationError("peak options must be non-negative: distance=%g prominence=%g",
			opts.MinDistanceSeconds, opts.MinProminence)
	}

	maxima := LocalMaxima(samples)

	kept := make([]candidate, 0, len(maxima))
	for _, p := range maxima {
		if Prominence(samples, p) >= opts.MinProminence {
			kept = append(kept, candidate{index: p, height: samples[p]})
		}
	}

	kept = selectByDistance(kept, minDistanceSamples(opts.MinDistanceSeconds, fs))

	peaks := make([]int, len(kept))
	for i, c := range kept {
		peaks[i] = c.index
	}
	return peaks, nil
}

// minDistanceSamples rounds up so that kept peaks are never closer than
// seconds*fs. The epsilon absorbs products like 0.4*360.
func minDistanceSamples(seconds, fs float64) int {
	return int(math.Ceil(seconds*fs - 1e-9))
}

// LocalMaxima returns samples strictly greater than both neighbours. A flat
// top counts once, at its middle (lower middle for even widths). The first and
// last samples are never maxima.
func LocalMaxima(x []float64) []int {
	var out []int
	n := len(x)
	i := 1
	for i < n-1 {
		if x[i-1] < x[i] {
			ahead := i + 1
			for ahead < n-1 && x[ahead] == x[i] {
				ahead++
			}
			if x[ahead] < x[i] {
				out = append(out, (i+ahead-1)/2)
				i = ahead
				continue
			}
		}
		i++
	}
	return out
}

// Prominence height of x[p] above the higher of the lowest points reached
// walking left and right until a strictly higher sample or the edge.
func Prominence(x []float64, p int) float64 {
	peak := x[p]

	leftMin := peak
	for i := p; i >= 0 && x[i] <= peak; i-- {
		if x[i] < leftMin {
			leftMin = x[i]
		}
	}

	rightMin := peak
	for i := p; i < len(x) && x[i] <= peak; i++ {
		if x[i] < rightMin {
			rightMin = x[i]
		}
	}

	return peak - math.Max(leftMin, rightMin)
}

// selectByDistance keeps the highest candidates first and drops every
// neighbour closer than distance. Equal heights favour the earlier index.
// Input and output are ordered by index.
func selectByDistance(cands []candidate, distance int) []candidate {
	if distance <= 1 || len(cands) < 2 {
		return cands
	}

	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cands[order[a]].height > cands[order[b]].height
	})

	keep := make([]bool, len(cands))
	for i := range keep {
		keep[i] = true
	}

	for _, j := range order {
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && cands[j].index-cands[k].index < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(cands) && cands[k].index-cands[j].index < distance; k++ {
			keep[k] = false
		}
	}

	out := cands[:0]
	for i, c := range cands {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}
