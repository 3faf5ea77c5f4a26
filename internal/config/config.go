package config

import (
	"fmt"
	"os"

	"github.com/san-kum/hoversim/internal/actuation"
	"github.com/san-kum/hoversim/internal/control"
	"github.com/san-kum/hoversim/internal/disturbance"
	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/logging"
	"github.com/san-kum/hoversim/internal/physics"
	"github.com/san-kum/hoversim/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	ControllerPID     = "pid"
	ControllerLearned = "learned"

	// Wind regeneration periods used when wind.interval is zero.
	DefaultPIDWindInterval     = 5.0
	DefaultLearnedWindInterval = 2.0

	DefaultDuration = 30.0
)

type Config struct {
	Controller string `yaml:"controller"`
	// Duration of a headless run in simulated seconds.
	Duration float64 `yaml:"duration"`
	// Seed for the wind generator.
	Seed int64 `yaml:"seed"`

	Sim     sim.Config            `yaml:"sim"`
	World   physics.Config        `yaml:"world"`
	Drone   DroneConfig           `yaml:"drone"`
	Wind    WindConfig            `yaml:"wind"`
	PID     control.PIDConfig     `yaml:"pid"`
	Learned control.LearnedConfig `yaml:"learned"`
	Log     logging.Config        `yaml:"log"`
}

type DroneConfig struct {
	// Mass in kg.
	Mass float64 `yaml:"mass"`
	// Width and Height of the body box, in px.
	Width    float64          `yaml:"width"`
	Height   float64          `yaml:"height"`
	Start    dynamo.Vec2      `yaml:"start"`
	Material physics.Material `yaml:"material"`
	Thrust   actuation.Config `yaml:"thrust"`
}

func (d DroneConfig) Moment() float64 {
	return physics.MomentForBox(d.Mass, d.Width, d.Height)
}

type WindConfig struct {
	Enabled bool `yaml:"enabled"`
	// Interval between regenerations in simulated seconds. Zero picks the
	// controller's default.
	Interval    float64     `yaml:"interval"`
	MinForce    float64     `yaml:"min_force"`
	MaxForce    float64     `yaml:"max_force"`
	MaxAttempts int         `yaml:"max_attempts"`
	Fallback    dynamo.Vec2 `yaml:"fallback"`
}

func DefaultConfig() *Config {
	return &Config{
		Controller: ControllerPID,
		Duration:   DefaultDuration,
		Seed:       1,
		Sim:        sim.DefaultConfig(),
		World:      physics.DefaultConfig(),
		Drone: DroneConfig{
			Mass:     8,
			Width:    100,
			Height:   20,
			Start:    dynamo.Vec2{400, 300},
			Material: physics.Material{Elasticity: 0.5, Friction: 0.5},
			Thrust:   actuation.DefaultConfig(),
		},
		Wind: WindConfig{
			Enabled:     true,
			MinForce:    disturbance.DefaultMinForce,
			MaxForce:    disturbance.DefaultMaxForce,
			MaxAttempts: disturbance.DefaultMaxAttempts,
			Fallback:    dynamo.Vec2{disturbance.DefaultMinForce, disturbance.DefaultMinForce},
		},
		PID:     control.DefaultPIDConfig(),
		Learned: control.DefaultLearnedConfig(),
		Log:     logging.DefaultConfig(),
	}
}

// Load reads path over the defaults, so a file only needs the fields it
// changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &dynamo.ConfigError{Field: path, Reason: err.Error()}
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// WindInterval resolves the regeneration period for the configured controller.
func (c *Config) WindInterval() float64 {
	if c.Wind.Interval > 0 {
		return c.Wind.Interval
	}
	if c.Controller == ControllerLearned {
		return DefaultLearnedWindInterval
	}
	return DefaultPIDWindInterval
}

func (c *Config) Disturbance() disturbance.Config {
	return disturbance.Config{
		MinForce:    c.Wind.MinForce,
		MaxForce:    c.Wind.MaxForce,
		Interval:    c.WindInterval(),
		MaxAttempts: c.Wind.MaxAttempts,
		Fallback:    c.Wind.Fallback,
		Enabled:     c.Wind.Enabled,
	}
}

// Validate checks every section. Sections for the controller that is not
// selected are still checked so a saved file stays loadable either way.
func (c *Config) Validate() error {
	switch c.Controller {
	case ControllerPID:
	case ControllerLearned:
		if c.Learned.Model == "" {
			return &dynamo.ConfigError{Field: "learned.model", Reason: "required for the learned controller"}
		}
	default:
		return &dynamo.ConfigError{Field: "controller", Reason: fmt.Sprintf("unknown controller %q", c.Controller)}
	}
	if c.Duration < 0 {
		return &dynamo.ConfigError{Field: "duration", Reason: "must not be negative"}
	}
	if c.Drone.Mass <= 0 || c.Drone.Width <= 0 || c.Drone.Height <= 0 {
		return &dynamo.ConfigError{Field: "drone", Reason: "mass and size must be positive"}
	}
	if c.Wind.Interval < 0 {
		return &dynamo.ConfigError{Field: "wind.interval", Reason: "must not be negative"}
	}
	if err := c.Log.Validate(); err != nil {
		return &dynamo.ConfigError{Field: "log", Reason: err.Error()}
	}

	checks := []func() error{
		c.Sim.Validate,
		c.World.Validate,
		c.Drone.Thrust.Validate,
		c.Disturbance().Validate,
		c.PID.Validate,
		c.Learned.Validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
