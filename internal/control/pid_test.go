package control_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/hoversim/internal/control"
	"github.com/san-kum/hoversim/internal/dynamo"
)

var _ = Describe("PID", func() {
	ctx := context.Background()

	Describe("Gains.Apply", func() {
		It("matches the worked example when the derivative cancels", func() {
			g := control.Gains{Kp: -1.5 / 80, Ki: -0.5 / 80, Kd: 0}
			Expect(g.Apply(50, 50, 50)).To(BeNumerically("~", -1.875, 1e-12))
		})

		It("uses e0-e2 as the derivative term", func() {
			g := control.Gains{Kd: 2}
			Expect(g.Apply(5, 100, 1)).To(BeNumerically("~", 8, 1e-12))
		})
	})

	Describe("Mix", func() {
		It("drives both thrusters equally from y alone", func() {
			t := control.Mix(0, -3.5, 0)
			Expect(t.Left).To(Equal(-3.5))
			Expect(t.Right).To(Equal(-3.5))
		})

		It("drives thrusters oppositely from x and angle", func() {
			t := control.Mix(1, 0, 2)
			Expect(t.Left).To(Equal(3.0))
			Expect(t.Right).To(Equal(-3.0))
		})
	})

	DescribeTable("Clamp",
		func(in, want float64) {
			t := control.Clamp(dynamo.Thrust{Left: in, Right: in}, -80, 0)
			Expect(t.Left).To(Equal(want))
			Expect(t.Right).To(Equal(want))
		},
		Entry("below range", -120.0, -80.0),
		Entry("exactly min", -80.0, -80.0),
		Entry("inside", -12.5, -12.5),
		Entry("above range", 3.0, 0.0),
	)

	Describe("Compute", func() {
		var pid *control.PID

		BeforeEach(func() {
			var err error
			pid, err = control.NewPID(control.DefaultPIDConfig())
			Expect(err).NotTo(HaveOccurred())
		})

		It("outputs zero thrust for zero error", func() {
			t, err := pid.Compute(ctx, dynamo.Input{})
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(dynamo.Thrust{}))
		})

		It("is a pure function of the input", func() {
			in := dynamo.Input{0.2, 0.1, 0.0, -0.5, -0.4, -0.3, 0.01, 0.0, -0.01}
			a, _ := pid.Compute(ctx, in)
			b, _ := pid.Compute(ctx, in)
			Expect(a).To(Equal(b))
		})

		It("commands lift when the drone sits below the target", func() {
			// Screen coordinates: below the target means a negative y error.
			in := dynamo.Input{0, 0, 0, -0.5, -0.5, -0.5, 0, 0, 0}
			t, err := pid.Compute(ctx, in)
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Left).To(BeNumerically("<", 0))
			Expect(t.Left).To(Equal(t.Right))
		})

		It("keeps both outputs within the clamp", func() {
			in := dynamo.Input{1, -1, 1, -1, 1, -1, 5, -5, 5}
			t, _ := pid.Compute(ctx, in)
			for _, v := range []float64{t.Left, t.Right} {
				Expect(v).To(BeNumerically(">=", -80))
				Expect(v).To(BeNumerically("<=", 0))
			}
		})
	})

	DescribeTable("rejects invalid configuration",
		func(mutate func(*control.PIDConfig)) {
			cfg := control.DefaultPIDConfig()
			mutate(&cfg)
			_, err := control.NewPID(cfg)
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
		},
		Entry("NaN gain", func(c *control.PIDConfig) { c.Y.Kd = math.NaN() }),
		Entry("infinite gain", func(c *control.PIDConfig) { c.Angle.Kp = math.Inf(-1) }),
		Entry("empty clamp range", func(c *control.PIDConfig) { c.Min, c.Max = 0, 0 }),
		Entry("zero post scale", func(c *control.PIDConfig) { c.PostScale = 0 }),
	)
})

var _ = Describe("PIDConfig.SetGain", func() {
	It("addresses gains by their parameter names", func() {
		cfg := control.DefaultPIDConfig()
		Expect(cfg.SetGain("kd_angle", -1)).To(Succeed())
		Expect(cfg.SetGain("ki_x", 2)).To(Succeed())
		Expect(cfg.Angle.Kd).To(Equal(-1.0))
		Expect(cfg.X.Ki).To(Equal(2.0))

		pid, err := control.NewPID(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(pid.Params()).To(HaveKeyWithValue("kd_angle", -1.0))
	})

	It("rejects unknown names", func() {
		cfg := control.DefaultPIDConfig()
		Expect(cfg.SetGain("kx_y", 1)).NotTo(Succeed())
		Expect(cfg.SetGain("kp_z", 1)).NotTo(Succeed())
		Expect(cfg.SetGain("kp", 1)).NotTo(Succeed())
	})
})
