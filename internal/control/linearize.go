package control

import (
	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/inference"
)

// LinearizePID expresses the PID law and mixing as a single linear layer so
// the learned-model path can run without a trained artifact. The thruster
// clamp is carried over as the network's output clamp, which makes the
// result exact, not an approximation.
func LinearizePID(cfg PIDConfig) inference.Spec {
	x := windowCoefficients(cfg.X)
	y := windowCoefficients(cfg.Y)
	a := windowCoefficients(cfg.Angle)

	left := make([]float64, 0, dynamo.InputDim)
	right := make([]float64, 0, dynamo.InputDim)
	left = append(append(append(left, x[:]...), y[:]...), a[:]...)
	right = append(append(append(right, neg(x)...), y[:]...), neg(a)...)

	return inference.Spec{
		Name:   "pid-linear",
		Input:  dynamo.InputDim,
		Output: dynamo.OutputDim,
		Layers: []inference.LayerSpec{{
			Weights:    [][]float64{left, right},
			Bias:       []float64{0, 0},
			Activation: inference.Linear,
		}},
		Clamp: []float64{cfg.Min, cfg.Max},
	}
}

// windowCoefficients expands Gains.Apply into per-sample weights for e0, e1, e2.
func windowCoefficients(g Gains) [3]float64 {
	return [3]float64{g.Kp + g.Ki + g.Kd, g.Ki, g.Ki - g.Kd}
}

func neg(c [3]float64) []float64 {
	return []float64{-c[0], -c[1], -c[2]}
}
