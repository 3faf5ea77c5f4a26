package disturbance_test

import (
	"errors"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/hoversim/internal/disturbance"
	"github.com/san-kum/hoversim/internal/dynamo"
)

// zeroSign always draws the middle sign, forcing every attempt to be rejected.
type zeroSign struct{ draws int }

func (z *zeroSign) Intn(n int) int   { z.draws++; return 1 }
func (z *zeroSign) Float64() float64 { return 0.5 }

var _ = Describe("Generator", func() {
	var cfg disturbance.Config

	BeforeEach(func() {
		cfg = disturbance.DefaultConfig(2.0)
	})

	Describe("Generate", func() {
		It("never yields a zero component and stays within the force range", func() {
			g, err := disturbance.New(cfg, rand.New(rand.NewSource(7)), nil)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 10000; i++ {
				f := g.Generate()
				for _, c := range []float64{f.X(), f.Y()} {
					Expect(c).NotTo(BeZero())
					Expect(math.Abs(c)).To(BeNumerically(">=", cfg.MinForce))
					Expect(math.Abs(c)).To(BeNumerically("<=", cfg.MaxForce))
				}
			}
		})

		It("produces both signs on each axis", func() {
			g, err := disturbance.New(cfg, rand.New(rand.NewSource(11)), nil)
			Expect(err).NotTo(HaveOccurred())

			var negX, posX, negY, posY bool
			for i := 0; i < 200; i++ {
				f := g.Generate()
				negX = negX || f.X() < 0
				posX = posX || f.X() > 0
				negY = negY || f.Y() < 0
				posY = posY || f.Y() > 0
			}
			Expect([]bool{negX, posX, negY, posY}).To(HaveEach(BeTrue()))
		})

		It("falls back after the retry budget is exhausted", func() {
			cfg.MaxAttempts = 5
			cfg.Fallback = dynamo.Vec2{600, -700}
			src := &zeroSign{}
			g, err := disturbance.New(cfg, src, nil)
			Expect(err).NotTo(HaveOccurred())

			f := g.Generate()
			Expect(f).To(Equal(dynamo.Vec2{600, -700}))
			Expect(src.draws).To(Equal(10))
		})
	})

	Describe("Advance", func() {
		It("holds the force between regenerations", func() {
			g, err := disturbance.New(cfg, rand.New(rand.NewSource(3)), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.State().Force).To(Equal(dynamo.Vec2{}))

			dt := 1.0 / 60
			changed := 0
			var last dynamo.Vec2
			for i := 0; i < 119; i++ {
				if g.Advance(dt) {
					changed++
				}
			}
			Expect(changed).To(BeZero())

			Expect(g.Advance(dt)).To(BeTrue())
			last = g.State().Force
			Expect(last.X()).NotTo(BeZero())
			Expect(last.Y()).NotTo(BeZero())

			for i := 0; i < 60; i++ {
				g.Advance(dt)
				Expect(g.State().Force).To(Equal(last))
			}
			Expect(g.Regenerations()).To(Equal(1))
		})

		It("regenerates once per interval", func() {
			g, err := disturbance.New(cfg, rand.New(rand.NewSource(5)), nil)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 60*10; i++ {
				g.Advance(1.0 / 60)
			}
			Expect(g.Regenerations()).To(Equal(5))
		})

		It("keeps the timer running while disabled", func() {
			g, err := disturbance.New(cfg, rand.New(rand.NewSource(5)), nil)
			Expect(err).NotTo(HaveOccurred())
			g.SetEnabled(false)
			Expect(g.Advance(2.0)).To(BeTrue())
			Expect(g.State().Enabled).To(BeFalse())
			Expect(g.State().Force.X()).NotTo(BeZero())
		})
	})

	DescribeTable("rejects invalid configuration",
		func(mutate func(*disturbance.Config)) {
			mutate(&cfg)
			_, err := disturbance.New(cfg, rand.New(rand.NewSource(1)), nil)
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
		},
		Entry("non-positive min force", func(c *disturbance.Config) { c.MinForce = 0 }),
		Entry("max below min", func(c *disturbance.Config) { c.MaxForce = 100 }),
		Entry("zero interval", func(c *disturbance.Config) { c.Interval = 0 }),
		Entry("no attempts", func(c *disturbance.Config) { c.MaxAttempts = 0 }),
		Entry("zero fallback component", func(c *disturbance.Config) { c.Fallback = dynamo.Vec2{500, 0} }),
	)
})
