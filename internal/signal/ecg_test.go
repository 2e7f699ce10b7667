package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestECGSim_Deterministic(t *testing.T) {
	a := NewECGSim(360, 75, 0.02).Generate(1000)
	b := NewECGSim(360, 75, 0.02).Generate(1000)
	assert.Equal(t, a, b)
}

func TestECGSim_GainScalesRWave(t *testing.T) {
	base := NewECGSim(360, 60, 0).Generate(360)
	scaled := NewECGSim(360, 60, 0).WithGain(3).Generate(360)

	maxOf := func(s []float64) float64 {
		m := s[0]
		for _, v := range s {
			if v > m {
				m = v
			}
		}
		return m
	}
	assert.InDelta(t, 3*maxOf(base), maxOf(scaled), 1e-9)
	assert.Greater(t, maxOf(base), 0.9)
}

func TestSpikeTrain(t *testing.T) {
	s := SpikeTrain(10, 2, 4, 2)
	assert.Equal(t, []float64{0, 1, 2, 1, 0, 1, 2, 1, 0, 0}, s)
}
