// Package analysis characterizes recorded runs.
//
// The package works on plain sample slices loaded from the run store:
//
//   - [Summarize]: mean, spread and dominant oscillation of one signal
//   - [PowerSpectrum], [DominantFrequency]: FFT of a uniformly sampled signal
//   - [Portrait]: 2D phase portrait (e.g. angle against angular velocity)
//
// # Oscillation Detection
//
// A controller that hunts around its target shows up as a sharp spectral
// peak. With the default gains a settled hover has no peak above the noise:
//
//	hz, amp := analysis.DominantFrequency(ys, dt)
//	if amp > threshold {
//	    // the vehicle oscillates at hz
//	}
package analysis
