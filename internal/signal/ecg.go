// Package signal synthesizes ECG-like waveforms for demos and tests.
// The morphology is illustrative only, not clinical.
package signal

import "math"

// ECGSim produces a baseline + P/QRS/T gaussian waveform at fs Hz.
type ECGSim struct {
	fs    float64
	hrBPM float64
	noise float64
	gain  float64

	phase   float64
	rr      []float64 // per-beat period multipliers, cycled
	beatIdx int
}

// NewECGSim fs in Hz, hrBPM typically 40-180, noise amplitude ~0.0-0.05.
func NewECGSim(fs, hrBPM, noise float64) *ECGSim {
	return &ECGSim{fs: fs, hrBPM: hrBPM, noise: noise, gain: 1}
}

// WithGain scales the whole waveform (1.0 gives an R wave of about 1 unit).
func (s *ECGSim) WithGain(g float64) *ECGSim {
	s.gain = g
	return s
}

// WithRRPattern stretches successive beats by the given multipliers, cycling.
// {0.8, 1.2} alternates short and long RR intervals.
func (s *ECGSim) WithRRPattern(multipliers ...float64) *ECGSim {
	s.rr = multipliers
	return s
}

// Next returns the next sample and advances time.
func (s *ECGSim) Next() float64 {
	cycleHz := s.hrBPM / 60.0
	if len(s.rr) > 0 {
		cycleHz /= s.rr[s.beatIdx%len(s.rr)]
	}
	s.phase += cycleHz / s.fs
	if s.phase >= 1.0 {
		s.phase -= 1.0
		s.beatIdx++
	}

	t := s.phase

	baseline := 0.05 * math.Sin(2*math.Pi*0.33*t)

	p := 0.08 * gauss(t, 0.18, 0.03)
	q := -0.12 * gauss(t, 0.30, 0.01)
	r := 1.00 * gauss(t, 0.32, 0.008)
	sw := -0.25 * gauss(t, 0.35, 0.012)
	tw := 0.25 * gauss(t, 0.60, 0.06)

	// cheap deterministic noise
	n := s.noise * (2*fract(math.Sin(12345.678*t)*9876.543) - 1)

	return s.gain * (baseline + p + q + r + sw + tw + n)
}

// Generate returns the next n samples.
func (s *ECGSim) Generate(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Next()
	}
	return out
}

// SpikeTrain returns n zero samples with a triangle of the given height on
// every multiple of period, starting at offset.
func SpikeTrain(n, offset, period int, height float64) []float64 {
	out := make([]float64, n)
	for c := offset; c < n; c += period {
		out[c] = height
		if c > 0 {
			out[c-1] = height / 2
		}
		if c+1 < n {
			out[c+1] = height / 2
		}
	}
	return out
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func fract(x float64) float64 { return x - math.Floor(x) }
