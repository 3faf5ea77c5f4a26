package automation

import (
	"context"
	"math/rand"
	"testing"

	"github.com/san-kum/hoversim/internal/actuation"
	"github.com/san-kum/hoversim/internal/control"
	"github.com/san-kum/hoversim/internal/disturbance"
	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/metrics"
	"github.com/san-kum/hoversim/internal/physics"
	"github.com/san-kum/hoversim/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLoop(ctrl *control.PID) (*sim.Loop, error) {
	space, err := physics.NewSpace(physics.DefaultConfig())
	if err != nil {
		return nil, err
	}
	body := space.NewBox(8, 100, 20, dynamo.Vec2{400, 300}, physics.Material{Elasticity: 0.5, Friction: 0.5})
	wind, err := disturbance.New(disturbance.DefaultConfig(5), rand.New(rand.NewSource(1)), nil)
	if err != nil {
		return nil, err
	}
	alloc, err := actuation.New(actuation.DefaultConfig())
	if err != nil {
		return nil, err
	}
	loop, err := sim.New(sim.DefaultConfig(), sim.Components{
		World: space, Body: body, Controller: ctrl, Wind: wind, Actuator: alloc,
	})
	if err != nil {
		return nil, err
	}
	loop.AddMetric(metrics.NewPositionRMS())
	return loop, nil
}

func TestRunSweep(t *testing.T) {
	sweep := &GainSweep{
		Base:     control.DefaultPIDConfig(),
		Param:    "kp_y",
		Min:      0,
		Max:      0.1,
		NumSteps: 3,
		Duration: 1,
	}
	results, err := RunSweep(context.Background(), sweep, buildLoop, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, want := range []float64{0, 0.05, 0.1} {
		assert.InDelta(t, want, results[i].ParamValue, 1e-12)
		assert.NoError(t, results[i].Err)
		assert.Equal(t, 60, results[i].Ticks)
		assert.Contains(t, results[i].Metrics, "position_rms")
	}
}

func TestRunSweepErrors(t *testing.T) {
	base := control.DefaultPIDConfig()

	_, err := RunSweep(context.Background(), &GainSweep{Base: base, Param: "kp_y", NumSteps: 0, Duration: 1}, buildLoop, nil)
	assert.Error(t, err)

	_, err = RunSweep(context.Background(), &GainSweep{Base: base, Param: "kp_y", NumSteps: 1}, buildLoop, nil)
	assert.Error(t, err)

	_, err = RunSweep(context.Background(), &GainSweep{Base: base, Param: "gain", NumSteps: 2, Duration: 1}, buildLoop, nil)
	assert.Error(t, err)
}
