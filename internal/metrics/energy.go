package metrics

import (
	"github.com/san-kum/hoversim/internal/dynamo"
	"gonum.org/v1/gonum/stat"
)

// Energy is the mean kinetic energy of the drone, translational plus
// rotational. A hovering drone keeps it near zero.
type Energy struct {
	name   string
	mass   float64
	moment float64
	values []float64
}

func NewEnergy(mass, moment float64) *Energy {
	return &Energy{
		name:   "kinetic_energy",
		mass:   mass,
		moment: moment,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(f dynamo.Frame) {
	v := f.Pose.Velocity
	w := f.Pose.AngularVelocity
	e.values = append(e.values, 0.5*e.mass*v.Dot(v)+0.5*e.moment*w*w)
}

func (e *Energy) Value() float64 {
	if len(e.values) == 0 {
		return 0
	}
	return stat.Mean(e.values, nil)
}

func (e *Energy) Reset() { e.values = e.values[:0] }
