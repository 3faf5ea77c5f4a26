package main

import (
	"fmt"
	"math/rand"

	"github.com/san-kum/hoversim/internal/actuation"
	"github.com/san-kum/hoversim/internal/config"
	"github.com/san-kum/hoversim/internal/control"
	"github.com/san-kum/hoversim/internal/disturbance"
	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/metrics"
	"github.com/san-kum/hoversim/internal/physics"
	"github.com/san-kum/hoversim/internal/sim"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// resolveConfig layers the config file, the preset and explicitly set flags,
// in that order, over the defaults.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("controller") {
		cfg.Controller = controllerName
	}
	if preset != "" {
		if err := config.ApplyPreset(cfg, preset); err != nil {
			return nil, err
		}
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("model") {
		cfg.Learned.Model = modelPath
	}
	if flags.Changed("no-wind") {
		cfg.Wind.Enabled = !noWind
	}
	if flags.Changed("trace") {
		cfg.Log.Trace = tracePath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildController(cfg *config.Config) (dynamo.Controller, error) {
	switch cfg.Controller {
	case config.ControllerPID:
		return control.NewPID(cfg.PID)
	case config.ControllerLearned:
		return control.LoadLearned(cfg.Learned)
	default:
		return nil, &dynamo.ConfigError{Field: "controller", Reason: fmt.Sprintf("unknown controller %q", cfg.Controller)}
	}
}

// buildLoop wires a fresh world, drone, wind generator and allocator around
// ctrl. The default metrics are attached.
func buildLoop(cfg *config.Config, ctrl dynamo.Controller, seed int64, logger *zap.Logger) (*sim.Loop, error) {
	space, err := physics.NewSpace(cfg.World)
	if err != nil {
		return nil, err
	}
	d := cfg.Drone
	body := space.NewBox(d.Mass, d.Width, d.Height, d.Start, d.Material)

	wind, err := disturbance.New(cfg.Disturbance(), rand.New(rand.NewSource(seed)), logger)
	if err != nil {
		return nil, err
	}
	alloc, err := actuation.New(d.Thrust)
	if err != nil {
		return nil, err
	}

	loop, err := sim.New(cfg.Sim, sim.Components{
		World:      space,
		Body:       body,
		Controller: ctrl,
		Wind:       wind,
		Actuator:   alloc,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	for _, m := range metrics.Default(d.Mass, d.Moment()) {
		loop.AddMetric(m)
	}
	return loop, nil
}
