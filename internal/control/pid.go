package control

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/hoversim/internal/dynamo"
)

// Gains for one axis. The integral and derivative terms work on the raw
// three-sample window, so the tick period is folded into Ki and Kd.
type Gains struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

// Apply evaluates kp·e0 + ki·(e0+e1+e2) + kd·(e0−e2), e0 being the newest.
func (g Gains) Apply(e0, e1, e2 float64) float64 {
	return g.Kp*e0 + g.Ki*(e0+e1+e2) + g.Kd*(e0-e2)
}

func (g Gains) finite() bool {
	for _, v := range [3]float64{g.Kp, g.Ki, g.Kd} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type PIDConfig struct {
	X     Gains `yaml:"x"`
	Y     Gains `yaml:"y"`
	Angle Gains `yaml:"angle"`
	// Min and Max bound each thruster command. Thrusters only push one
	// way, hence the one-sided default range [-80, 0].
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
	// PostScale converts a command into force units (N-equivalent).
	PostScale float64 `yaml:"post_scale"`
}

// DefaultPIDConfig returns the hand-tuned gains for the 8 kg, 100 px drone.
func DefaultPIDConfig() PIDConfig {
	return PIDConfig{
		X:         Gains{Kp: -1.5 / 80, Ki: -0.5 / 80, Kd: -65.0 / 80},
		Y:         Gains{Kp: 5.0 / 80, Ki: 20.0 / 80, Kd: 500.0 / 80},
		Angle:     Gains{Kp: -500.0 / 80, Ki: -400.0 / 80, Kd: -5500.0 / 80},
		Min:       -80,
		Max:       0,
		PostScale: DefaultPostScale,
	}
}

func (c PIDConfig) Validate() error {
	axes := map[string]Gains{"pid.x": c.X, "pid.y": c.Y, "pid.angle": c.Angle}
	for field, g := range axes {
		if !g.finite() {
			return &dynamo.ConfigError{Field: field, Reason: "gains must be finite"}
		}
	}
	if !(c.Min < c.Max) {
		return &dynamo.ConfigError{Field: "pid.max", Reason: fmt.Sprintf("clamp range [%g, %g] is empty", c.Min, c.Max)}
	}
	return validatePostScale("pid.post_scale", c.PostScale)
}

// PID is the discrete three-sample PID law with differential mixing.
type PID struct {
	cfg PIDConfig
}

func NewPID(cfg PIDConfig) (*PID, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PID{cfg: cfg}, nil
}

func (p *PID) Name() string { return "pid" }

func (p *PID) PostScale() float64 { return p.cfg.PostScale }

// Compute never fails; the error is part of the Controller contract.
func (p *PID) Compute(_ context.Context, in dynamo.Input) (dynamo.Thrust, error) {
	x := p.cfg.X.Apply(in[0], in[1], in[2])
	y := p.cfg.Y.Apply(in[3], in[4], in[5])
	a := p.cfg.Angle.Apply(in[6], in[7], in[8])
	return Clamp(Mix(x, y, a), p.cfg.Min, p.cfg.Max), nil
}

// Mix combines per-axis outputs into thruster commands: y lifts both
// thrusters equally, x and angle push them in opposite directions.
func Mix(x, y, angle float64) dynamo.Thrust {
	return dynamo.Thrust{
		Left:  y + x + angle,
		Right: y - x - angle,
	}
}

func Clamp(t dynamo.Thrust, lo, hi float64) dynamo.Thrust {
	return dynamo.Thrust{
		Left:  math.Max(lo, math.Min(hi, t.Left)),
		Right: math.Max(lo, math.Min(hi, t.Right)),
	}
}

func (p *PID) Params() map[string]float64 {
	return map[string]float64{
		"kp_x":       p.cfg.X.Kp,
		"ki_x":       p.cfg.X.Ki,
		"kd_x":       p.cfg.X.Kd,
		"kp_y":       p.cfg.Y.Kp,
		"ki_y":       p.cfg.Y.Ki,
		"kd_y":       p.cfg.Y.Kd,
		"kp_angle":   p.cfg.Angle.Kp,
		"ki_angle":   p.cfg.Angle.Ki,
		"kd_angle":   p.cfg.Angle.Kd,
		"min":        p.cfg.Min,
		"max":        p.cfg.Max,
		"post_scale": p.cfg.PostScale,
	}
}

// SetGain updates one gain by its Params name, e.g. "kd_angle".
func (c *PIDConfig) SetGain(name string, value float64) error {
	axes := map[string]*Gains{"x": &c.X, "y": &c.Y, "angle": &c.Angle}
	term, axis, ok := strings.Cut(name, "_")
	g, found := axes[axis]
	if !ok || !found {
		return fmt.Errorf("unknown gain: %s", name)
	}
	switch term {
	case "kp":
		g.Kp = value
	case "ki":
		g.Ki = value
	case "kd":
		g.Kd = value
	default:
		return fmt.Errorf("unknown gain: %s", name)
	}
	return nil
}
