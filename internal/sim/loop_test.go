package sim_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/hoversim/internal/actuation"
	"github.com/san-kum/hoversim/internal/control"
	"github.com/san-kum/hoversim/internal/disturbance"
	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/inference"
	"github.com/san-kum/hoversim/internal/physics"
	"github.com/san-kum/hoversim/internal/sim"
)

var _ = Describe("Loop", func() {
	ctx := context.Background()

	Describe("holding a zero-error pose without gravity or wind", func() {
		check := func(ctrl dynamo.Controller) {
			r := mustRig(ctrl, 0, false)
			res, err := r.loop.Run(ctx, sim.RunOptions{Duration: 10, Record: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Ticks).To(Equal(600))

			for _, f := range res.Frames {
				Expect(f.Command).To(Equal(dynamo.Thrust{}))
				Expect(f.Applied).To(Equal(dynamo.Thrust{}))
			}
			Expect(r.body.Position()).To(Equal(dynamo.Vec2{400, 300}))
			Expect(r.body.Angle()).To(BeZero())
		}

		It("outputs zero thrust with the PID controller", func() {
			check(mustPID())
		})

		It("outputs zero thrust with a learned model", func() {
			net, err := inference.Build(control.LinearizePID(control.DefaultPIDConfig()))
			Expect(err).NotTo(HaveOccurred())
			learned, err := control.NewLearned(net, control.DefaultLearnedConfig())
			Expect(err).NotTo(HaveOccurred())
			check(learned)
		})
	})

	Describe("closed loop under gravity", func() {
		It("settles below the target without drifting or tilting", func() {
			r := mustRig(mustPID(), 981, false)
			_, err := r.loop.Run(ctx, sim.RunOptions{Duration: 10})
			Expect(err).NotTo(HaveOccurred())

			// The window law has no true integral, so it hovers with a
			// steady offset where thrust balances weight.
			Expect(r.body.Position().X()).To(BeNumerically("~", 400, 0.01))
			Expect(r.body.Position().Y()).To(BeNumerically("~", 360.37, 0.5))
			Expect(r.body.Angle()).To(BeNumerically("~", 0, 1e-6))
		})

		It("follows the target after a move command", func() {
			r := mustRig(mustPID(), 981, false)
			r.loop.Submit(sim.MoveRight)
			_, err := r.loop.Run(ctx, sim.RunOptions{Duration: 20})
			Expect(err).NotTo(HaveOccurred())

			Expect(r.loop.Target().Position).To(Equal(dynamo.Vec2{550, 300}))
			Expect(r.body.Position().X()).To(BeNumerically("~", 550, 1))
		})

		It("stays inside the world with wind enabled", func() {
			r := mustRig(mustPID(), 981, true)
			res, err := r.loop.Run(ctx, sim.RunOptions{Duration: 30, Record: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.wind.Regenerations()).To(Equal(6))

			for _, f := range res.Frames {
				Expect(f.Pose.Position.X()).To(BeNumerically(">", 0))
				Expect(f.Pose.Position.X()).To(BeNumerically("<", 800))
				Expect(f.Pose.Position.Y()).To(BeNumerically(">", 0))
				Expect(f.Pose.Position.Y()).To(BeNumerically("<", 600))
			}
		})
	})

	Describe("Tick", func() {
		It("pushes the current error before asking the controller", func() {
			ctrl := &scriptedController{}
			r := mustRig(ctrl, 0, false)
			r.body.SetPosition(dynamo.Vec2{350, 400})

			_, err := r.loop.Tick(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.inputs).To(HaveLen(1))
			// x error 50 px, y error -100 px, both histories seeded from (400, 300).
			Expect(ctrl.inputs[0]).To(Equal(dynamo.Input{0.5, 0, 0, -1, 0, 0, 0, 0, 0}))
		})

		It("applies commands at the next tick boundary", func() {
			r := mustRig(&scriptedController{}, 0, true)
			r.loop.Submit(sim.MoveUp)
			r.loop.Submit(sim.MoveLeft)
			r.loop.Submit(sim.ToggleWind)
			r.loop.Submit(sim.ToggleReverse)
			Expect(r.loop.Target().Position).To(Equal(dynamo.Vec2{400, 300}))

			f, err := r.loop.Tick(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Target.Position).To(Equal(dynamo.Vec2{250, 150}))
			Expect(f.Error.X).To(Equal(-150.0))
			Expect(f.Wind.Enabled).To(BeFalse())
			Expect(f.Reverse).To(BeTrue())
		})

		It("reuses the previous output when inference fails", func() {
			ctrl := &scriptedController{
				outputs: []dynamo.Thrust{{Left: -1, Right: -2}, {Left: -3, Right: -4}},
				errs:    map[int]error{2: fmt.Errorf("%w: timeout", dynamo.ErrInference)},
			}
			r := mustRig(ctrl, 0, false)
			res, err := r.loop.Run(ctx, sim.RunOptions{Duration: 4.0 / 60, Record: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Frames).To(HaveLen(4))

			Expect(res.Frames[2].Fallback).To(BeTrue())
			Expect(res.Frames[2].Command).To(Equal(dynamo.Thrust{Left: -3, Right: -4}))
			Expect(res.Frames[3].Fallback).To(BeFalse())
			Expect(res.Fallbacks).To(Equal(1))
		})

		It("treats other controller errors as fatal", func() {
			boom := errors.New("boom")
			r := mustRig(&scriptedController{errs: map[int]error{0: boom}}, 0, false)

			_, err := r.loop.Tick(ctx)
			var tickErr *dynamo.TickError
			Expect(errors.As(err, &tickErr)).To(BeTrue())
			Expect(tickErr.Stage).To(Equal("control"))
			Expect(tickErr.Tick).To(Equal(1))
			Expect(errors.Is(err, boom)).To(BeTrue())
		})

		It("wraps physics failures in ErrPhysics", func() {
			space, err := physics.NewSpace(physics.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			body := space.NewBox(8, 100, 20, dynamo.Vec2{400, 300}, physics.Material{})
			wind, err := disturbance.New(disturbance.DefaultConfig(5), &fixedSource{}, nil)
			Expect(err).NotTo(HaveOccurred())
			alloc, err := actuation.New(actuation.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			loop, err := sim.New(sim.DefaultConfig(), sim.Components{
				World:      &brokenWorld{err: errors.New("solver diverged")},
				Body:       body,
				Controller: mustPID(),
				Wind:       wind,
				Actuator:   alloc,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = loop.Tick(ctx)
			Expect(errors.Is(err, dynamo.ErrPhysics)).To(BeTrue())
			var tickErr *dynamo.TickError
			Expect(errors.As(err, &tickErr)).To(BeTrue())
			Expect(tickErr.Stage).To(Equal("physics"))
		})
	})

	Describe("Run", func() {
		It("honours stop requests between ticks", func() {
			r := mustRig(mustPID(), 981, false)
			r.loop.AddObserver(dynamo.ObserverFunc(func(f dynamo.Frame) {
				if f.Tick == 30 {
					r.loop.Submit(sim.Stop)
				}
			}))
			res, err := r.loop.Run(ctx, sim.RunOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Stopped).To(BeTrue())
			Expect(res.Ticks).To(Equal(30))
			Expect(r.space.Steps()).To(Equal(30))

			_, err = r.loop.Tick(ctx)
			Expect(errors.Is(err, dynamo.ErrStopped)).To(BeTrue())
		})

		It("returns the partial result when the context is cancelled", func() {
			r := mustRig(mustPID(), 981, false)
			cctx, cancel := context.WithCancel(ctx)
			defer cancel()
			r.loop.AddObserver(dynamo.ObserverFunc(func(f dynamo.Frame) {
				if f.Tick == 10 {
					cancel()
				}
			}))
			res, err := r.loop.Run(cctx, sim.RunOptions{})
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(res.Ticks).To(Equal(10))
		})

		It("feeds every frame to metrics", func() {
			r := mustRig(mustPID(), 981, false)
			m := &countingMetric{}
			r.loop.AddMetric(m)
			res, err := r.loop.Run(ctx, sim.RunOptions{Duration: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Metrics).To(HaveKeyWithValue("frames", 60.0))
			Expect(res.Controller).To(Equal("pid"))
			Expect(res.Time).To(BeNumerically("~", 1, 1e-9))
		})

		It("rejects a negative duration", func() {
			r := mustRig(mustPID(), 981, false)
			_, err := r.loop.Run(ctx, sim.RunOptions{Duration: -1})
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
		})
	})
})

var _ = Describe("New", func() {
	It("requires every component", func() {
		_, err := sim.New(sim.DefaultConfig(), sim.Components{})
		Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
	})

	DescribeTable("validates the configuration",
		func(mutate func(*sim.Config)) {
			cfg := sim.DefaultConfig()
			mutate(&cfg)
			Expect(errors.Is(cfg.Validate(), dynamo.ErrConfiguration)).To(BeTrue())
		},
		Entry("zero tick rate", func(c *sim.Config) { c.TickRate = 0 }),
		Entry("negative step", func(c *sim.Config) { c.TargetStep = -150 }),
		Entry("infinite target", func(c *sim.Config) { c.Target.Angle = 1 / zero() }),
	)
})

var _ = DescribeTable("ParseCommand",
	func(name string, want sim.Command, ok bool) {
		got, err := sim.ParseCommand(name)
		if !ok {
			Expect(err).To(HaveOccurred())
			return
		}
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(want))
		Expect(got.String()).To(Equal(name))
	},
	Entry(nil, "move_left", sim.MoveLeft, true),
	Entry(nil, "move_down", sim.MoveDown, true),
	Entry(nil, "toggle_wind", sim.ToggleWind, true),
	Entry(nil, "stop", sim.Stop, true),
	Entry(nil, "jump", sim.Command(0), false),
)

var _ = Describe("Ensemble", func() {
	It("runs each seed independently", func() {
		build := func(seed int64) (*sim.Loop, error) {
			r, err := newRig(mustPID(), 981, true, seed)
			if err != nil {
				return nil, err
			}
			return r.loop, nil
		}
		results, err := sim.NewEnsemble(build, 3, 100).Run(context.Background(), sim.RunOptions{Duration: 6})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for i, res := range results {
			Expect(res.Seed).To(Equal(int64(100 + i)))
			Expect(res.Ticks).To(Equal(360))
		}
	})

	It("needs a bounded duration", func() {
		_, err := sim.NewEnsemble(nil, 1, 0).Run(context.Background(), sim.RunOptions{})
		Expect(err).To(HaveOccurred())
	})
})

type fixedSource struct{}

func (fixedSource) Intn(int) int     { return 2 }
func (fixedSource) Float64() float64 { return 0 }

func zero() float64 { return 0 }
