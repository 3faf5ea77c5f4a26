package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the one-sided amplitude spectrum of data with its
// mean removed. Element k is the amplitude at k/(len(data)*dt) Hz.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}
	mean := stat.Mean(data, nil)
	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	coeff := fft.FFTReal(centered)
	ps := make([]float64, len(data)/2+1)
	scale := 2 / float64(len(data))
	for i := range ps {
		ps[i] = cmplx.Abs(coeff[i]) * scale
	}
	return ps
}

// DominantFrequency returns the frequency in Hz of the largest non-DC peak
// and its amplitude. dt is the sample period.
func DominantFrequency(data []float64, dt float64) (float64, float64) {
	ps := PowerSpectrum(data)
	if len(ps) < 2 || dt <= 0 {
		return 0, 0
	}
	best := 1
	for k := 2; k < len(ps); k++ {
		if ps[k] > ps[best] {
			best = k
		}
	}
	return float64(best) / (float64(len(data)) * dt), ps[best]
}
