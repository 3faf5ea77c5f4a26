// Package actuation turns thruster commands and wind into forces on the body.
package actuation

import (
	"fmt"
	"math"

	"github.com/san-kum/hoversim/internal/dynamo"
)

type Config struct {
	// LeftOffset and RightOffset are thruster mount points in the body frame.
	LeftOffset  dynamo.Vec2 `yaml:"left_offset"`
	RightOffset dynamo.Vec2 `yaml:"right_offset"`
	// Axis is the body-frame direction of a unit thrust command.
	Axis dynamo.Vec2 `yaml:"axis"`
}

func DefaultConfig() Config {
	return Config{
		LeftOffset:  dynamo.Vec2{-50, 0},
		RightOffset: dynamo.Vec2{50, 0},
		Axis:        dynamo.Vec2{0, 1},
	}
}

func (c Config) Validate() error {
	if c.Axis.Len() == 0 || math.IsNaN(c.Axis.Len()) {
		return &dynamo.ConfigError{Field: "drone.thrust_axis", Reason: "must be a non-zero vector"}
	}
	if c.LeftOffset.ApproxEqual(c.RightOffset) {
		return &dynamo.ConfigError{Field: "drone.thrusters", Reason: fmt.Sprintf("left and right offsets coincide at %v", c.LeftOffset)}
	}
	return nil
}

// Allocator applies a scaled Thrust as two body-frame forces and the wind
// as a world-frame force at the centre of mass.
type Allocator struct {
	cfg Config
}

func New(cfg Config) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Allocator{cfg: cfg}, nil
}

func (a *Allocator) Apply(body dynamo.Body, thrust dynamo.Thrust, wind dynamo.Wind) {
	body.ApplyForceAtLocalPoint(a.cfg.Axis.Mul(thrust.Left), a.cfg.LeftOffset)
	body.ApplyForceAtLocalPoint(a.cfg.Axis.Mul(thrust.Right), a.cfg.RightOffset)
	if wind.Enabled {
		body.ApplyForceAtWorldPoint(wind.Force, body.Position())
	}
}

func (a *Allocator) Config() Config { return a.cfg }
