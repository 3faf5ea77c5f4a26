// Package tracking keeps the rolling tracking-error window used by controllers
// in place of continuous integral and derivative terms.
package tracking

import "github.com/san-kum/hoversim/internal/dynamo"

const (
	// Depth is the number of samples kept per axis.
	Depth = 3

	// PositionLimit bounds raw x/y errors before normalization, in pixels.
	PositionLimit = 100.0
	// Scale maps raw errors into controller input units.
	Scale = 100.0
)

// Window is one axis of the history, newest sample first.
type Window [Depth]float64

func (w *Window) push(v float64) {
	w[2] = w[1]
	w[1] = w[0]
	w[0] = v
}

func fill(v float64) Window {
	return Window{v, v, v}
}

// History is a fixed-depth error buffer for the x, y and angle axes.
type History struct {
	x, y, angle Window
}

// New returns a history with every slot set to initial.
func New(initial dynamo.ErrorSample) *History {
	h := &History{}
	h.Reset(initial)
	return h
}

// Reset fills all slots of every axis with s.
func (h *History) Reset(s dynamo.ErrorSample) {
	h.x = fill(s.X)
	h.y = fill(s.Y)
	h.angle = fill(s.Angle)
}

// Push discards the oldest sample and inserts s as the newest.
func (h *History) Push(s dynamo.ErrorSample) {
	h.x.push(s.X)
	h.y.push(s.Y)
	h.angle.push(s.Angle)
}

// X returns the raw x-axis window, newest first.
func (h *History) X() Window { return h.x }

// Y returns the raw y-axis window, newest first.
func (h *History) Y() Window { return h.y }

// Angle returns the raw angle window, newest first.
func (h *History) Angle() Window { return h.angle }

// At returns the sample stored in slot i (0 is newest).
func (h *History) At(i int) dynamo.ErrorSample {
	return dynamo.ErrorSample{X: h.x[i], Y: h.y[i], Angle: h.angle[i]}
}

// Newest returns the most recently pushed sample.
func (h *History) Newest() dynamo.ErrorSample {
	return h.At(0)
}

// Normalized builds the controller input vector.
//
// Position errors are clamped to ±PositionLimit before scaling, so they land
// in [-1, 1]. Angle errors are scaled but NOT clamped; trained models expect
// this layout, so changing it requires retraining.
func (h *History) Normalized() dynamo.Input {
	var in dynamo.Input
	for i := 0; i < Depth; i++ {
		in[i] = clamp(h.x[i], -PositionLimit, PositionLimit) / Scale
		in[Depth+i] = clamp(h.y[i], -PositionLimit, PositionLimit) / Scale
		in[2*Depth+i] = h.angle[i] / Scale
	}
	return in
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
