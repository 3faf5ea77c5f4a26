package sim

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/hoversim/internal/dynamo"
)

// Command is an operator request. Commands are queued by Submit and applied
// at the start of the next tick.
type Command int

const (
	MoveLeft Command = iota + 1
	MoveRight
	MoveUp
	MoveDown
	// ToggleReverse flips a flag that is reported in frames but does not
	// change the control law.
	ToggleReverse
	ToggleWind
	Stop
)

var commandNames = map[Command]string{
	MoveLeft:      "move_left",
	MoveRight:     "move_right",
	MoveUp:        "move_up",
	MoveDown:      "move_down",
	ToggleReverse: "toggle_reverse",
	ToggleWind:    "toggle_wind",
	Stop:          "stop",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// ParseCommand accepts the snake_case command names, case-insensitively.
func ParseCommand(name string) (Command, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range commandNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("sim: unknown command %q", name)
}

// Commands lists every command in declaration order.
func Commands() []Command {
	return []Command{MoveLeft, MoveRight, MoveUp, MoveDown, ToggleReverse, ToggleWind, Stop}
}

// Disturbance is the wind source consumed by the loop.
type Disturbance interface {
	Advance(dt float64) bool
	State() dynamo.Wind
	SetEnabled(on bool)
	Enabled() bool
}

// Actuator turns scaled thrust and wind into forces on the body.
type Actuator interface {
	Apply(body dynamo.Body, thrust dynamo.Thrust, wind dynamo.Wind)
}

// Metric accumulates a scalar over the frames of a run.
type Metric interface {
	Name() string
	Observe(f dynamo.Frame)
	Value() float64
	Reset()
}

type Config struct {
	// TickRate is the fixed control and physics rate in Hz.
	TickRate float64 `yaml:"tick_rate"`
	// Target is the initial setpoint.
	Target dynamo.Target `yaml:"target"`
	// TargetStep is how far one move command shifts the target, in px.
	TargetStep float64 `yaml:"target_step"`
}

func DefaultConfig() Config {
	return Config{
		TickRate:   60,
		Target:     dynamo.Target{Position: dynamo.Vec2{400, 300}},
		TargetStep: 150,
	}
}

func (c Config) Validate() error {
	if !(c.TickRate > 0) || math.IsInf(c.TickRate, 0) {
		return &dynamo.ConfigError{Field: "sim.tick_rate", Reason: fmt.Sprintf("must be positive, got %g", c.TickRate)}
	}
	if !(c.TargetStep > 0) {
		return &dynamo.ConfigError{Field: "sim.target_step", Reason: fmt.Sprintf("must be positive, got %g", c.TargetStep)}
	}
	for _, v := range [3]float64{c.Target.Position.X(), c.Target.Position.Y(), c.Target.Angle} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &dynamo.ConfigError{Field: "sim.target", Reason: "must be finite"}
		}
	}
	return nil
}

// RunOptions bound a call to Loop.Run.
type RunOptions struct {
	// Duration is the simulated time to run, in seconds. Zero runs until a
	// Stop command or context cancellation.
	Duration float64
	// Realtime paces ticks against the wall clock.
	Realtime bool
	// Record keeps every frame in the result.
	Record bool
}

type Result struct {
	Controller string
	Seed       int64
	Ticks      int
	Time       float64
	Fallbacks  int
	Stopped    bool
	Frames     []dynamo.Frame
	Metrics    map[string]float64
}
