package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/tracking"
	"go.uber.org/zap"
)

// Components are the collaborators a Loop drives. All but Logger are required.
type Components struct {
	World      dynamo.World
	Body       dynamo.Body
	Controller dynamo.Controller
	Wind       Disturbance
	Actuator   Actuator
	Logger     *zap.Logger
}

// Loop is the fixed-rate control loop. Only Submit is safe to call from
// other goroutines; everything else belongs to the goroutine that ticks.
type Loop struct {
	cfg  Config
	dt   float64
	comp Components
	log  *zap.Logger

	mu    sync.Mutex
	queue []Command

	history   *tracking.History
	target    dynamo.Target
	reverse   bool
	last      dynamo.Thrust
	tick      int
	time      float64
	fallbacks int
	stopped   bool

	metrics   []Metric
	observers []dynamo.Observer
}

func New(cfg Config, comp Components) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case comp.World == nil:
		return nil, &dynamo.ConfigError{Field: "sim.world", Reason: "physics world is required"}
	case comp.Body == nil:
		return nil, &dynamo.ConfigError{Field: "sim.body", Reason: "body is required"}
	case comp.Controller == nil:
		return nil, &dynamo.ConfigError{Field: "sim.controller", Reason: "controller is required"}
	case comp.Wind == nil:
		return nil, &dynamo.ConfigError{Field: "sim.wind", Reason: "disturbance source is required"}
	case comp.Actuator == nil:
		return nil, &dynamo.ConfigError{Field: "sim.actuator", Reason: "actuator is required"}
	}
	logger := comp.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Loop{
		cfg:    cfg,
		dt:     1 / cfg.TickRate,
		comp:   comp,
		log:    logger.With(zap.String("controller", comp.Controller.Name())),
		target: cfg.Target,
	}
	l.history = tracking.New(dynamo.ErrorBetween(l.target, dynamo.Snapshot(comp.Body)))
	return l, nil
}

func (l *Loop) AddMetric(m Metric)            { l.metrics = append(l.metrics, m) }
func (l *Loop) AddObserver(o dynamo.Observer) { l.observers = append(l.observers, o) }
func (l *Loop) Dt() float64                   { return l.dt }
func (l *Loop) Target() dynamo.Target         { return l.target }
func (l *Loop) Reverse() bool                 { return l.reverse }
func (l *Loop) Stopped() bool                 { return l.stopped }
func (l *Loop) Controller() dynamo.Controller { return l.comp.Controller }
func (l *Loop) Pose() dynamo.Pose             { return dynamo.Snapshot(l.comp.Body) }
func (l *Loop) Wind() dynamo.Wind             { return l.comp.Wind.State() }
func (l *Loop) History() *tracking.History    { return l.history }

// Submit queues a command for the next tick boundary.
func (l *Loop) Submit(c Command) {
	l.mu.Lock()
	l.queue = append(l.queue, c)
	l.mu.Unlock()
}

func (l *Loop) drain() {
	l.mu.Lock()
	pending := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, c := range pending {
		l.apply(c)
	}
}

func (l *Loop) apply(c Command) {
	step := l.cfg.TargetStep
	switch c {
	case MoveLeft:
		l.target.Position = l.target.Position.Sub(dynamo.Vec2{step, 0})
	case MoveRight:
		l.target.Position = l.target.Position.Add(dynamo.Vec2{step, 0})
	case MoveUp:
		l.target.Position = l.target.Position.Sub(dynamo.Vec2{0, step})
	case MoveDown:
		l.target.Position = l.target.Position.Add(dynamo.Vec2{0, step})
	case ToggleReverse:
		l.reverse = !l.reverse
	case ToggleWind:
		l.comp.Wind.SetEnabled(!l.comp.Wind.Enabled())
	case Stop:
		l.stopped = true
	default:
		l.log.Warn("ignoring unknown command", zap.Stringer("command", c))
		return
	}
	l.log.Info("command applied",
		zap.Stringer("command", c),
		zap.Float64("target_x", l.target.Position.X()),
		zap.Float64("target_y", l.target.Position.Y()),
		zap.Bool("reverse", l.reverse),
		zap.Bool("wind", l.comp.Wind.Enabled()),
	)
}

// Tick runs one control cycle: apply queued commands, read the pose, update
// the error history, compute and scale thrust, apply thrust and wind, step
// the world once and notify observers. After a Stop command it returns
// dynamo.ErrStopped without touching the world.
func (l *Loop) Tick(ctx context.Context) (dynamo.Frame, error) {
	if l.stopped {
		return dynamo.Frame{}, dynamo.ErrStopped
	}
	l.drain()
	if l.stopped {
		l.log.Info("stop requested", zap.Int("tick", l.tick), zap.Float64("time", l.time))
		return dynamo.Frame{}, dynamo.ErrStopped
	}

	sample := dynamo.ErrorBetween(l.target, dynamo.Snapshot(l.comp.Body))
	l.history.Push(sample)
	in := l.history.Normalized()

	command, fallback, err := l.compute(ctx, in)
	if err != nil {
		return dynamo.Frame{}, l.tickError("control", err)
	}
	applied := command.Scale(l.comp.Controller.PostScale())

	l.comp.Wind.Advance(l.dt)
	wind := l.comp.Wind.State()
	l.comp.Actuator.Apply(l.comp.Body, applied, wind)

	if err := l.comp.World.Step(l.dt); err != nil {
		if !errors.Is(err, dynamo.ErrPhysics) {
			err = fmt.Errorf("%w: %w", dynamo.ErrPhysics, err)
		}
		return dynamo.Frame{}, l.tickError("physics", err)
	}
	l.tick++
	l.time += l.dt

	f := dynamo.Frame{
		Tick:     l.tick,
		Time:     l.time,
		Pose:     dynamo.Snapshot(l.comp.Body),
		Target:   l.target,
		Error:    sample,
		Input:    in,
		Command:  command,
		Applied:  applied,
		Wind:     wind,
		Reverse:  l.reverse,
		Fallback: fallback,
	}
	if ce := l.log.Check(zap.DebugLevel, "tick"); ce != nil {
		ce.Write(
			zap.Int("tick", f.Tick),
			zap.Float64("left", command.Left),
			zap.Float64("right", command.Right),
			zap.Float64("err_x", sample.X),
			zap.Float64("err_y", sample.Y),
			zap.Float64("err_angle", sample.Angle),
		)
	}

	for _, m := range l.metrics {
		m.Observe(f)
	}
	for _, o := range l.observers {
		o.OnTick(f)
	}
	return f, nil
}

// compute asks the controller for thrust. Inference failures are absorbed by
// reusing the previous command; any other error is fatal.
func (l *Loop) compute(ctx context.Context, in dynamo.Input) (dynamo.Thrust, bool, error) {
	command, err := l.comp.Controller.Compute(ctx, in)
	if err == nil {
		l.last = command
		return command, false, nil
	}
	if !errors.Is(err, dynamo.ErrInference) {
		return dynamo.Thrust{}, false, err
	}
	l.fallbacks++
	l.log.Warn("controller failed, reusing previous output",
		zap.Error(err),
		zap.Int("tick", l.tick+1),
		zap.Int("fallbacks", l.fallbacks),
	)
	return l.last, true, nil
}

func (l *Loop) tickError(stage string, err error) error {
	return &dynamo.TickError{Tick: l.tick + 1, Time: l.time, Stage: stage, Wrapped: err}
}

// Run ticks until the duration elapses, a Stop command is applied or ctx is
// done. The partial result is returned alongside any error.
func (l *Loop) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if opts.Duration < 0 {
		return nil, &dynamo.ConfigError{Field: "run.duration", Reason: fmt.Sprintf("must not be negative, got %g", opts.Duration)}
	}
	steps := int(opts.Duration*l.cfg.TickRate + 0.5)

	result := &Result{
		Controller: l.comp.Controller.Name(),
		Metrics:    make(map[string]float64),
	}
	if opts.Record && steps > 0 {
		result.Frames = make([]dynamo.Frame, 0, steps)
	}
	for _, m := range l.metrics {
		m.Reset()
	}

	var pace <-chan time.Time
	if opts.Realtime {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / l.cfg.TickRate))
		defer ticker.Stop()
		pace = ticker.C
	}

	l.log.Info("run started",
		zap.Float64("duration", opts.Duration),
		zap.Float64("dt", l.dt),
		zap.Bool("realtime", opts.Realtime),
	)

	var runErr error
	for i := 0; steps == 0 || i < steps; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if pace != nil {
			select {
			case <-ctx.Done():
				runErr = ctx.Err()
			case <-pace:
			}
			if runErr != nil {
				break
			}
		}

		f, err := l.Tick(ctx)
		if errors.Is(err, dynamo.ErrStopped) {
			result.Stopped = true
			break
		}
		if err != nil {
			runErr = err
			break
		}
		if opts.Record {
			result.Frames = append(result.Frames, f)
		}
	}

	result.Ticks = l.tick
	result.Time = l.time
	result.Fallbacks = l.fallbacks
	for _, m := range l.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if runErr != nil {
		l.log.Error("run aborted", zap.Error(runErr), zap.Int("ticks", l.tick))
		return result, runErr
	}
	l.log.Info("run finished",
		zap.Int("ticks", l.tick),
		zap.Float64("time", l.time),
		zap.Int("fallbacks", l.fallbacks),
		zap.Bool("stopped", result.Stopped),
	)
	return result, nil
}
