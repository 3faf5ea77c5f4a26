package sim_test

import (
	"context"
	"math/rand"

	. "github.com/onsi/gomega"

	"github.com/san-kum/hoversim/internal/actuation"
	"github.com/san-kum/hoversim/internal/control"
	"github.com/san-kum/hoversim/internal/disturbance"
	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/physics"
	"github.com/san-kum/hoversim/internal/sim"
)

type rig struct {
	loop  *sim.Loop
	space *physics.Space
	body  *physics.Body
	wind  *disturbance.Generator
}

func newRig(ctrl dynamo.Controller, gravity float64, windOn bool, seed int64) (*rig, error) {
	wcfg := physics.DefaultConfig()
	wcfg.Gravity = dynamo.Vec2{0, gravity}
	space, err := physics.NewSpace(wcfg)
	if err != nil {
		return nil, err
	}
	body := space.NewBox(8, 100, 20, dynamo.Vec2{400, 300}, physics.Material{Elasticity: 0.5, Friction: 0.5})

	dcfg := disturbance.DefaultConfig(5)
	dcfg.Enabled = windOn
	wind, err := disturbance.New(dcfg, rand.New(rand.NewSource(seed)), nil)
	if err != nil {
		return nil, err
	}
	alloc, err := actuation.New(actuation.DefaultConfig())
	if err != nil {
		return nil, err
	}

	loop, err := sim.New(sim.DefaultConfig(), sim.Components{
		World:      space,
		Body:       body,
		Controller: ctrl,
		Wind:       wind,
		Actuator:   alloc,
	})
	if err != nil {
		return nil, err
	}
	return &rig{loop: loop, space: space, body: body, wind: wind}, nil
}

func mustRig(ctrl dynamo.Controller, gravity float64, windOn bool) *rig {
	r, err := newRig(ctrl, gravity, windOn, 1)
	Expect(err).NotTo(HaveOccurred())
	return r
}

func mustPID() *control.PID {
	pid, err := control.NewPID(control.DefaultPIDConfig())
	Expect(err).NotTo(HaveOccurred())
	return pid
}

// scriptedController returns canned outputs, fails on chosen calls and
// records every input it sees.
type scriptedController struct {
	outputs []dynamo.Thrust
	errs    map[int]error
	inputs  []dynamo.Input
}

func (s *scriptedController) Name() string               { return "scripted" }
func (s *scriptedController) PostScale() float64         { return 1 }
func (s *scriptedController) Params() map[string]float64 { return nil }

func (s *scriptedController) Compute(_ context.Context, in dynamo.Input) (dynamo.Thrust, error) {
	call := len(s.inputs)
	s.inputs = append(s.inputs, in)
	if err, ok := s.errs[call]; ok {
		return dynamo.Thrust{Left: 999, Right: 999}, err
	}
	if call < len(s.outputs) {
		return s.outputs[call], nil
	}
	return dynamo.Thrust{}, nil
}

type countingMetric struct{ n int }

func (c *countingMetric) Name() string         { return "frames" }
func (c *countingMetric) Observe(dynamo.Frame) { c.n++ }
func (c *countingMetric) Value() float64       { return float64(c.n) }
func (c *countingMetric) Reset()               { c.n = 0 }

type brokenWorld struct{ err error }

func (b *brokenWorld) CreateBody(float64, float64, dynamo.Vec2) dynamo.Body { return nil }
func (b *brokenWorld) Step(float64) error                                   { return b.err }
