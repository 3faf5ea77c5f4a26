package control

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/inference"
)

// DefaultPostScale converts normalized controller output into force units.
const DefaultPostScale = 8000.0

// Predictor is an inference engine with fixed input and output widths.
type Predictor interface {
	Predict(ctx context.Context, in []float64) ([]float64, error)
	InputDim() int
	OutputDim() int
}

type LearnedConfig struct {
	// Model is the path of the YAML or JSON network artifact.
	Model     string  `yaml:"model"`
	PostScale float64 `yaml:"post_scale"`
	// Timeout bounds a single inference call. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`
}

func DefaultLearnedConfig() LearnedConfig {
	return LearnedConfig{
		PostScale: DefaultPostScale,
		Timeout:   50 * time.Millisecond,
	}
}

func (c LearnedConfig) Validate() error {
	if c.Timeout < 0 {
		return &dynamo.ConfigError{Field: "learned.timeout", Reason: "must not be negative"}
	}
	return validatePostScale("learned.post_scale", c.PostScale)
}

// Learned adapts a pretrained regression model to the Controller contract.
// It keeps no state between ticks: on failure it returns an error wrapping
// dynamo.ErrInference and the caller decides what to reuse.
type Learned struct {
	model     Predictor
	postScale float64
	timeout   time.Duration
}

func NewLearned(model Predictor, cfg LearnedConfig) (*Learned, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if model == nil {
		return nil, &dynamo.ConfigError{Field: "learned.model", Reason: "no model loaded"}
	}
	if model.InputDim() != dynamo.InputDim || model.OutputDim() != dynamo.OutputDim {
		return nil, &dynamo.ConfigError{
			Field:  "learned.model",
			Reason: fmt.Sprintf("model shape %d -> %d, want %d -> %d", model.InputDim(), model.OutputDim(), dynamo.InputDim, dynamo.OutputDim),
		}
	}
	return &Learned{model: model, postScale: cfg.PostScale, timeout: cfg.Timeout}, nil
}

// LoadLearned reads the artifact named by cfg.Model and wraps it.
func LoadLearned(cfg LearnedConfig) (*Learned, error) {
	if cfg.Model == "" {
		return nil, &dynamo.ConfigError{Field: "learned.model", Reason: "path is required"}
	}
	net, err := inference.Load(cfg.Model)
	if err != nil {
		return nil, err
	}
	return NewLearned(net, cfg)
}

func (l *Learned) Name() string { return "learned" }

func (l *Learned) PostScale() float64 { return l.postScale }

type prediction struct {
	out []float64
	err error
}

func (l *Learned) Compute(ctx context.Context, in dynamo.Input) (dynamo.Thrust, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	done := make(chan prediction, 1)
	go func() {
		out, err := l.model.Predict(ctx, in.Slice())
		done <- prediction{out: out, err: err}
	}()

	var p prediction
	select {
	case <-ctx.Done():
		return dynamo.Thrust{}, fmt.Errorf("%w: %w", dynamo.ErrInference, ctx.Err())
	case p = <-done:
	}

	if p.err != nil {
		return dynamo.Thrust{}, fmt.Errorf("%w: %w", dynamo.ErrInference, p.err)
	}
	if len(p.out) != dynamo.OutputDim {
		return dynamo.Thrust{}, fmt.Errorf("%w: %w: got %d outputs", dynamo.ErrInference, dynamo.ErrDimensionMismatch, len(p.out))
	}
	t := dynamo.Thrust{Left: p.out[0], Right: p.out[1]}
	if !t.IsValid() {
		return dynamo.Thrust{}, fmt.Errorf("%w: non-finite output %v", dynamo.ErrInference, p.out)
	}
	return t, nil
}

func (l *Learned) Params() map[string]float64 {
	return map[string]float64{
		"post_scale": l.postScale,
		"timeout_ms": float64(l.timeout.Milliseconds()),
	}
}

func validatePostScale(field string, v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return &dynamo.ConfigError{Field: field, Reason: fmt.Sprintf("must be positive and finite, got %g", v)}
	}
	return nil
}
