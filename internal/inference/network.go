// Package inference evaluates pretrained feed-forward regression models.
//
// A model artifact is a YAML or JSON document listing dense layers. Each
// layer holds a weight matrix with one row per output neuron, a bias vector
// and an activation name:
//
//	name: hover-mlp
//	input: 9
//	output: 2
//	layers:
//	  - weights: [[...9 values...], ...]
//	    bias: [...]
//	    activation: tanh
//	clamp: [-80, 0]
package inference

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/hoversim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

type Activation string

const (
	Linear  Activation = "linear"
	ReLU    Activation = "relu"
	Tanh    Activation = "tanh"
	Sigmoid Activation = "sigmoid"
)

func (a Activation) apply(v float64) float64 {
	switch a {
	case ReLU:
		return math.Max(0, v)
	case Tanh:
		return math.Tanh(v)
	case Sigmoid:
		return 1 / (1 + math.Exp(-v))
	default:
		return v
	}
}

func (a Activation) valid() bool {
	switch a {
	case "", Linear, ReLU, Tanh, Sigmoid:
		return true
	}
	return false
}

type LayerSpec struct {
	Weights    [][]float64 `yaml:"weights" json:"weights"`
	Bias       []float64   `yaml:"bias" json:"bias"`
	Activation Activation  `yaml:"activation" json:"activation"`
}

// Spec is the serialized form of a network.
type Spec struct {
	Name   string      `yaml:"name" json:"name"`
	Input  int         `yaml:"input" json:"input"`
	Output int         `yaml:"output" json:"output"`
	Layers []LayerSpec `yaml:"layers" json:"layers"`
	// Clamp optionally bounds every output to [Clamp[0], Clamp[1]].
	Clamp []float64 `yaml:"clamp,omitempty" json:"clamp,omitempty"`
}

type layer struct {
	w   *mat.Dense
	b   *mat.VecDense
	act Activation
}

// Network is an immutable, ready-to-evaluate model.
type Network struct {
	name   string
	in     int
	out    int
	layers []layer
	clamp  []float64
}

// Build validates spec and converts it into gonum matrices.
func Build(spec Spec) (*Network, error) {
	if len(spec.Layers) == 0 {
		return nil, &dynamo.ConfigError{Field: "model.layers", Reason: "at least one layer is required"}
	}
	if spec.Input <= 0 || spec.Output <= 0 {
		return nil, &dynamo.ConfigError{Field: "model", Reason: fmt.Sprintf("invalid shape %d -> %d", spec.Input, spec.Output)}
	}
	if len(spec.Clamp) != 0 && (len(spec.Clamp) != 2 || spec.Clamp[0] > spec.Clamp[1]) {
		return nil, &dynamo.ConfigError{Field: "model.clamp", Reason: "must be [min, max]"}
	}

	n := &Network{name: spec.Name, in: spec.Input, out: spec.Output, clamp: spec.Clamp}
	cols := spec.Input
	for i, ls := range spec.Layers {
		field := fmt.Sprintf("model.layers[%d]", i)
		rows := len(ls.Weights)
		if rows == 0 {
			return nil, &dynamo.ConfigError{Field: field, Reason: "empty weight matrix"}
		}
		if len(ls.Bias) != rows {
			return nil, &dynamo.ConfigError{Field: field, Reason: fmt.Sprintf("bias has %d values, want %d", len(ls.Bias), rows)}
		}
		if !ls.Activation.valid() {
			return nil, &dynamo.ConfigError{Field: field, Reason: fmt.Sprintf("unknown activation %q", ls.Activation)}
		}

		flat := make([]float64, 0, rows*cols)
		for r, row := range ls.Weights {
			if len(row) != cols {
				return nil, &dynamo.ConfigError{Field: field, Reason: fmt.Sprintf("row %d has %d weights, want %d", r, len(row), cols)}
			}
			for _, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, &dynamo.ConfigError{Field: field, Reason: "non-finite weight"}
				}
			}
			flat = append(flat, row...)
		}
		bias := make([]float64, rows)
		copy(bias, ls.Bias)

		n.layers = append(n.layers, layer{
			w:   mat.NewDense(rows, cols, flat),
			b:   mat.NewVecDense(rows, bias),
			act: ls.Activation,
		})
		cols = rows
	}
	if cols != spec.Output {
		return nil, &dynamo.ConfigError{Field: "model.output", Reason: fmt.Sprintf("last layer has %d outputs, spec says %d", cols, spec.Output)}
	}
	return n, nil
}

func (n *Network) Name() string   { return n.name }
func (n *Network) InputDim() int  { return n.in }
func (n *Network) OutputDim() int { return n.out }

// Predict runs a forward pass. It is safe for concurrent use.
func (n *Network) Predict(ctx context.Context, in []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(in) != n.in {
		return nil, fmt.Errorf("%w: input has %d values, model expects %d", dynamo.ErrDimensionMismatch, len(in), n.in)
	}

	x := mat.NewVecDense(n.in, append([]float64(nil), in...))
	for _, l := range n.layers {
		rows, _ := l.w.Dims()
		y := mat.NewVecDense(rows, nil)
		y.MulVec(l.w, x)
		y.AddVec(y, l.b)
		for i := 0; i < rows; i++ {
			y.SetVec(i, l.act.apply(y.AtVec(i)))
		}
		x = y
	}

	out := make([]float64, n.out)
	for i := range out {
		v := x.AtVec(i)
		if len(n.clamp) == 2 {
			v = math.Max(n.clamp[0], math.Min(n.clamp[1], v))
		}
		out[i] = v
	}
	return out, nil
}
