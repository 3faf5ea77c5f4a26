// Package disturbance generates the randomized wind force acting on the drone.
package disturbance

import (
	"fmt"

	"github.com/san-kum/hoversim/internal/dynamo"
	"go.uber.org/zap"
)

const (
	DefaultMinForce    = 500.0
	DefaultMaxForce    = 1000.0
	DefaultMaxAttempts = 64
)

// Source is the subset of *rand.Rand the generator draws from.
type Source interface {
	Intn(n int) int
	Float64() float64
}

type Config struct {
	MinForce float64
	MaxForce float64
	// Interval is the simulated time between regenerations, in seconds.
	Interval float64
	// MaxAttempts bounds the sign redraws per axis.
	MaxAttempts int
	// Fallback is used per axis when MaxAttempts is exhausted. Components
	// must be non-zero.
	Fallback dynamo.Vec2
	Enabled  bool
}

func DefaultConfig(interval float64) Config {
	return Config{
		MinForce:    DefaultMinForce,
		MaxForce:    DefaultMaxForce,
		Interval:    interval,
		MaxAttempts: DefaultMaxAttempts,
		Fallback:    dynamo.Vec2{DefaultMinForce, DefaultMinForce},
		Enabled:     true,
	}
}

func (c Config) Validate() error {
	if c.MinForce <= 0 {
		return &dynamo.ConfigError{Field: "wind.min_force", Reason: fmt.Sprintf("must be positive, got %g", c.MinForce)}
	}
	if c.MaxForce < c.MinForce {
		return &dynamo.ConfigError{Field: "wind.max_force", Reason: fmt.Sprintf("must be >= min_force, got %g", c.MaxForce)}
	}
	if c.Interval <= 0 {
		return &dynamo.ConfigError{Field: "wind.interval", Reason: "must be positive"}
	}
	if c.MaxAttempts < 1 {
		return &dynamo.ConfigError{Field: "wind.max_attempts", Reason: "must be at least 1"}
	}
	if c.Fallback.X() == 0 || c.Fallback.Y() == 0 {
		return &dynamo.ConfigError{Field: "wind.fallback", Reason: "components must be non-zero"}
	}
	return nil
}

// Generator owns the wind state. It is driven by simulation time, not wall
// clock, so runs with the same seed are reproducible.
type Generator struct {
	cfg    Config
	src    Source
	logger *zap.Logger

	force   dynamo.Vec2
	enabled bool
	elapsed float64
	count   int
}

func New(cfg Config, src Source, logger *zap.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, &dynamo.ConfigError{Field: "wind.source", Reason: "random source is required"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		cfg:     cfg,
		src:     src,
		logger:  logger,
		enabled: cfg.Enabled,
	}, nil
}

// Generate draws a new force with both components non-zero and each
// magnitude in [MinForce, MaxForce].
func (g *Generator) Generate() dynamo.Vec2 {
	fx, errX := g.component()
	if errX != nil {
		fx = g.cfg.Fallback.X()
		g.logger.Warn("wind x sampling exhausted, using fallback", zap.Error(errX), zap.Float64("fx", fx))
	}
	fy, errY := g.component()
	if errY != nil {
		fy = g.cfg.Fallback.Y()
		g.logger.Warn("wind y sampling exhausted, using fallback", zap.Error(errY), zap.Float64("fy", fy))
	}
	return dynamo.Vec2{fx, fy}
}

func (g *Generator) component() (float64, error) {
	for attempt := 0; attempt < g.cfg.MaxAttempts; attempt++ {
		sign := g.src.Intn(3) - 1
		magnitude := g.cfg.MinForce + g.src.Float64()*(g.cfg.MaxForce-g.cfg.MinForce)
		if sign != 0 {
			return float64(sign) * magnitude, nil
		}
	}
	return 0, fmt.Errorf("%w after %d attempts", dynamo.ErrDisturbance, g.cfg.MaxAttempts)
}

// Advance moves the regeneration timer by dt seconds and reports whether a
// new force was drawn.
func (g *Generator) Advance(dt float64) bool {
	g.elapsed += dt
	if g.elapsed+1e-9 < g.cfg.Interval {
		return false
	}
	g.force = g.Generate()
	g.elapsed = 0
	g.count++
	g.logger.Info("wind changed",
		zap.Float64("fx", g.force.X()),
		zap.Float64("fy", g.force.Y()),
		zap.Int("regenerations", g.count),
	)
	return true
}

func (g *Generator) State() dynamo.Wind {
	return dynamo.Wind{Force: g.force, Enabled: g.enabled}
}

func (g *Generator) SetEnabled(on bool) { g.enabled = on }

func (g *Generator) Enabled() bool { return g.enabled }

func (g *Generator) Regenerations() int { return g.count }

func (g *Generator) Interval() float64 { return g.cfg.Interval }

func (g *Generator) MaxForce() float64 { return g.cfg.MaxForce }
