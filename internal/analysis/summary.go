package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes one recorded signal.
type Summary struct {
	Name       string
	Mean       float64
	StdDev     float64
	Min, Max   float64
	DominantHz float64
	Amplitude  float64
}

func (s Summary) PeakToPeak() float64 { return s.Max - s.Min }

// Summarize computes a Summary for samples taken every dt seconds. The
// first skip samples are ignored so the initial transient does not
// dominate the statistics.
func Summarize(name string, samples []float64, dt float64, skip int) Summary {
	if skip > 0 && skip < len(samples) {
		samples = samples[skip:]
	}
	s := Summary{Name: name}
	if len(samples) == 0 {
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(samples, nil)
	s.Min = floats.Min(samples)
	s.Max = floats.Max(samples)
	s.DominantHz, s.Amplitude = DominantFrequency(samples, dt)
	return s
}
