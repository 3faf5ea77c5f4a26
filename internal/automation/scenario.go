// Package automation scripts headless runs: timed operator commands and
// PID gain sweeps.
package automation

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/sim"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Scenario is a list of operator commands fired at simulation times.
//
//	name: box
//	duration: 20s
//	steps:
//	  - at: 2s
//	    command: move_right
//	  - at: 6s
//	    command: move_up
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Duration    time.Duration  `yaml:"duration"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single timed command.
type ScenarioStep struct {
	At      time.Duration `yaml:"at"`
	Command string        `yaml:"command"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, &dynamo.ConfigError{Field: "scenario", Reason: err.Error()}
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (s *Scenario) Validate() error {
	if s.Duration < 0 {
		return &dynamo.ConfigError{Field: "scenario.duration", Reason: "must not be negative"}
	}
	for i, step := range s.Steps {
		if step.At < 0 {
			return &dynamo.ConfigError{Field: fmt.Sprintf("scenario.steps[%d].at", i), Reason: "must not be negative"}
		}
		if _, err := sim.ParseCommand(step.Command); err != nil {
			return &dynamo.ConfigError{Field: fmt.Sprintf("scenario.steps[%d].command", i), Reason: err.Error()}
		}
	}
	return nil
}

// Submitter accepts operator commands; *sim.Loop satisfies it.
type Submitter interface {
	Submit(c sim.Command)
}

type timedCommand struct {
	at  float64
	cmd sim.Command
}

// Driver fires scenario commands as simulated time passes. Register it as
// an observer on the loop it submits to. A command due at time t is
// submitted after the frame that reaches t and applies on the next tick.
type Driver struct {
	sub     Submitter
	logger  *zap.Logger
	pending []timedCommand
	fired   int
}

func NewDriver(s *Scenario, sub Submitter, logger *zap.Logger) (*Driver, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Driver{sub: sub, logger: logger.With(zap.String("scenario", s.Name))}
	for _, step := range s.Steps {
		cmd, _ := sim.ParseCommand(step.Command)
		d.pending = append(d.pending, timedCommand{at: step.At.Seconds(), cmd: cmd})
	}
	sort.SliceStable(d.pending, func(i, j int) bool { return d.pending[i].at < d.pending[j].at })

	// Commands at time zero apply on the very first tick.
	d.fire(0)
	return d, nil
}

func (d *Driver) OnTick(f dynamo.Frame) {
	d.fire(f.Time)
}

func (d *Driver) fire(now float64) {
	for len(d.pending) > 0 && d.pending[0].at <= now+1e-9 {
		next := d.pending[0]
		d.pending = d.pending[1:]
		d.sub.Submit(next.cmd)
		d.fired++
		d.logger.Info("scenario command", zap.Stringer("command", next.cmd), zap.Float64("time", now))
	}
}

func (d *Driver) Fired() int     { return d.fired }
func (d *Driver) Remaining() int { return len(d.pending) }
