package metrics

import (
	"math"

	"github.com/san-kum/hoversim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PositionRMS is the root-mean-square distance between the drone and the
// target, in px.
type PositionRMS struct {
	name string
	sq   []float64
}

func NewPositionRMS() *PositionRMS {
	return &PositionRMS{name: "position_rms"}
}

func (p *PositionRMS) Name() string { return p.name }

func (p *PositionRMS) Observe(f dynamo.Frame) {
	p.sq = append(p.sq, f.Error.X*f.Error.X+f.Error.Y*f.Error.Y)
}

func (p *PositionRMS) Value() float64 {
	if len(p.sq) == 0 {
		return 0
	}
	return math.Sqrt(stat.Mean(p.sq, nil))
}

func (p *PositionRMS) Reset() { p.sq = p.sq[:0] }

// AngleRMS is the root-mean-square attitude error, in radians.
type AngleRMS struct {
	name string
	sq   []float64
}

func NewAngleRMS() *AngleRMS {
	return &AngleRMS{name: "angle_rms"}
}

func (a *AngleRMS) Name() string { return a.name }

func (a *AngleRMS) Observe(f dynamo.Frame) {
	a.sq = append(a.sq, f.Error.Angle*f.Error.Angle)
}

func (a *AngleRMS) Value() float64 {
	if len(a.sq) == 0 {
		return 0
	}
	return math.Sqrt(stat.Mean(a.sq, nil))
}

func (a *AngleRMS) Reset() { a.sq = a.sq[:0] }

// MaxDeviation is the largest distance from the target seen during the run.
type MaxDeviation struct {
	name string
	dist []float64
}

func NewMaxDeviation() *MaxDeviation {
	return &MaxDeviation{name: "max_deviation"}
}

func (m *MaxDeviation) Name() string { return m.name }

func (m *MaxDeviation) Observe(f dynamo.Frame) {
	m.dist = append(m.dist, math.Hypot(f.Error.X, f.Error.Y))
}

func (m *MaxDeviation) Value() float64 {
	if len(m.dist) == 0 {
		return 0
	}
	return floats.Max(m.dist)
}

func (m *MaxDeviation) Reset() { m.dist = m.dist[:0] }
