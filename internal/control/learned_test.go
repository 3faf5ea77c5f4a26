package control_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/hoversim/internal/control"
	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/inference"
)

type fakeModel struct {
	in, out int
	result  []float64
	err     error
	delay   time.Duration
	seen    []float64
}

func (f *fakeModel) InputDim() int  { return f.in }
func (f *fakeModel) OutputDim() int { return f.out }

func (f *fakeModel) Predict(ctx context.Context, in []float64) ([]float64, error) {
	f.seen = in
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

var _ = Describe("Learned", func() {
	ctx := context.Background()
	var cfg control.LearnedConfig

	BeforeEach(func() {
		cfg = control.DefaultLearnedConfig()
	})

	It("passes the input through and reports the post scale", func() {
		m := &fakeModel{in: 9, out: 2, result: []float64{-0.1, -0.2}}
		l, err := control.NewLearned(m, cfg)
		Expect(err).NotTo(HaveOccurred())

		in := dynamo.Input{1, 2, 3, 4, 5, 6, 7, 8, 9}
		t, err := l.Compute(ctx, in)
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(Equal(dynamo.Thrust{Left: -0.1, Right: -0.2}))
		Expect(m.seen).To(Equal(in.Slice()))
		Expect(l.PostScale()).To(Equal(8000.0))
	})

	It("rejects models with the wrong shape", func() {
		_, err := control.NewLearned(&fakeModel{in: 6, out: 2}, cfg)
		Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())

		_, err = control.NewLearned(&fakeModel{in: 9, out: 1}, cfg)
		Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
	})

	It("rejects a bad post scale", func() {
		cfg.PostScale = -1
		_, err := control.NewLearned(&fakeModel{in: 9, out: 2}, cfg)
		Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
	})

	It("fails at startup when the artifact is missing", func() {
		cfg.Model = "/nonexistent/model.yaml"
		_, err := control.LoadLearned(cfg)
		Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
	})

	DescribeTable("wraps per-tick failures in ErrInference",
		func(m *fakeModel) {
			l, err := control.NewLearned(m, cfg)
			Expect(err).NotTo(HaveOccurred())
			_, err = l.Compute(ctx, dynamo.Input{})
			Expect(errors.Is(err, dynamo.ErrInference)).To(BeTrue())
		},
		Entry("engine error", &fakeModel{in: 9, out: 2, err: errors.New("device lost")}),
		Entry("short output", &fakeModel{in: 9, out: 2, result: []float64{1}}),
		Entry("NaN output", &fakeModel{in: 9, out: 2, result: []float64{math.NaN(), 0}}),
	)

	It("gives up after the timeout", func() {
		cfg.Timeout = 5 * time.Millisecond
		m := &fakeModel{in: 9, out: 2, result: []float64{0, 0}, delay: time.Second}
		l, err := control.NewLearned(m, cfg)
		Expect(err).NotTo(HaveOccurred())

		start := time.Now()
		_, err = l.Compute(ctx, dynamo.Input{})
		Expect(errors.Is(err, dynamo.ErrInference)).To(BeTrue())
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		Expect(time.Since(start)).To(BeNumerically("<", 500*time.Millisecond))
	})
})

var _ = Describe("LinearizePID", func() {
	It("reproduces the PID controller exactly", func() {
		pcfg := control.DefaultPIDConfig()
		pid, err := control.NewPID(pcfg)
		Expect(err).NotTo(HaveOccurred())

		net, err := inference.Build(control.LinearizePID(pcfg))
		Expect(err).NotTo(HaveOccurred())
		learned, err := control.NewLearned(net, control.LearnedConfig{PostScale: pcfg.PostScale})
		Expect(err).NotTo(HaveOccurred())

		rng := rand.New(rand.NewSource(9))
		for i := 0; i < 500; i++ {
			var in dynamo.Input
			for j := range in {
				in[j] = rng.Float64()*2 - 1
			}
			want, _ := pid.Compute(context.Background(), in)
			got, err := learned.Compute(context.Background(), in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Left).To(BeNumerically("~", want.Left, 1e-9))
			Expect(got.Right).To(BeNumerically("~", want.Right, 1e-9))
		}
	})
})
