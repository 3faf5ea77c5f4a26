package automation

import (
	"context"
	"fmt"

	"github.com/san-kum/hoversim/internal/control"
	"github.com/san-kum/hoversim/internal/sim"
	"go.uber.org/zap"
)

// GainSweep runs the PID controller across a range of one gain.
type GainSweep struct {
	Base     control.PIDConfig
	Param    string
	Min      float64
	Max      float64
	NumSteps int
	Duration float64
}

// SweepResult holds results from one sweep point
type SweepResult struct {
	ParamValue float64
	Ticks      int
	Stopped    bool
	Err        error
	Metrics    map[string]float64
}

// LoopBuilder assembles a fresh loop around the given controller.
type LoopBuilder func(ctrl *control.PID) (*sim.Loop, error)

// RunSweep executes a gain sweep. A point whose run fails, for example
// because the body diverged, is recorded with its error and the sweep goes on.
func RunSweep(ctx context.Context, sweep *GainSweep, build LoopBuilder, logger *zap.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}
	if sweep.Duration <= 0 {
		return nil, fmt.Errorf("sweep duration must be positive, got %g", sweep.Duration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.Min + float64(i)*paramStep

		cfg := sweep.Base
		if err := cfg.SetGain(sweep.Param, paramVal); err != nil {
			return nil, err
		}
		pid, err := control.NewPID(cfg)
		if err != nil {
			return nil, err
		}
		loop, err := build(pid)
		if err != nil {
			return nil, err
		}

		res, runErr := loop.Run(ctx, sim.RunOptions{Duration: sweep.Duration})
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		point := SweepResult{ParamValue: paramVal, Err: runErr}
		if res != nil {
			point.Ticks = res.Ticks
			point.Stopped = res.Stopped
			point.Metrics = res.Metrics
		}
		results = append(results, point)

		logger.Info("sweep point",
			zap.Int("step", i+1),
			zap.Int("of", sweep.NumSteps),
			zap.String("param", sweep.Param),
			zap.Float64("value", paramVal),
			zap.Error(runErr),
		)
	}

	return results, nil
}
