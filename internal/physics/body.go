package physics

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/san-kum/hoversim/internal/dynamo"
)

// Material controls contact response. Values of two touching shapes are
// multiplied together.
type Material struct {
	Elasticity float64 `yaml:"elasticity"`
	Friction   float64 `yaml:"friction"`
}

func (m Material) apply(shape *cp.Shape) {
	shape.SetElasticity(m.Elasticity)
	shape.SetFriction(m.Friction)
}

// MomentForBox is the moment of inertia of a solid w×h box about its centre.
func MomentForBox(mass, w, h float64) float64 {
	return cp.MomentForBox(mass, w, h)
}

// Body is a dynamic rigid body. Forces applied between steps accumulate and
// are cleared by Space.Step.
type Body struct {
	body *cp.Body

	shaped       bool
	halfW, halfH float64
}

var _ dynamo.Body = (*Body)(nil)

func (b *Body) Position() dynamo.Vec2    { return vec2(b.body.Position()) }
func (b *Body) Angle() float64           { return b.body.Angle() }
func (b *Body) Velocity() dynamo.Vec2    { return vec2(b.body.Velocity()) }
func (b *Body) AngularVelocity() float64 { return b.body.AngularVelocity() }
func (b *Body) Mass() float64            { return b.body.Mass() }
func (b *Body) Moment() float64          { return b.body.Moment() }

func (b *Body) SetPosition(p dynamo.Vec2) { b.body.SetPosition(vector(p)) }
func (b *Body) SetAngle(a float64)        { b.body.SetAngle(a) }
func (b *Body) SetVelocity(v dynamo.Vec2) { b.body.SetVelocityVector(vector(v)) }

// Force returns the force accumulated since the last step.
func (b *Body) Force() dynamo.Vec2 { return vec2(b.body.Force()) }

// Torque returns the torque accumulated since the last step.
func (b *Body) Torque() float64 { return b.body.Torque() }

// ApplyForceAtLocalPoint applies force, expressed in the body frame, at a
// point given relative to the centre of mass in the body frame.
func (b *Body) ApplyForceAtLocalPoint(force, point dynamo.Vec2) {
	b.body.ApplyForceAtLocalPoint(vector(force), vector(point))
}

// ApplyForceAtWorldPoint applies a world-frame force at a world-space point.
func (b *Body) ApplyForceAtWorldPoint(force, point dynamo.Vec2) {
	b.body.ApplyForceAtWorldPoint(vector(force), vector(point))
}

// LocalToWorld maps a body-frame point to world space.
func (b *Body) LocalToWorld(p dynamo.Vec2) dynamo.Vec2 {
	return vec2(b.body.LocalToWorld(vector(p)))
}

// Corners returns the world-space corners of the attached box, or nil.
func (b *Body) Corners() []dynamo.Vec2 {
	if !b.shaped {
		return nil
	}
	hw, hh := b.halfW, b.halfH
	return []dynamo.Vec2{
		b.LocalToWorld(dynamo.Vec2{-hw, -hh}),
		b.LocalToWorld(dynamo.Vec2{hw, -hh}),
		b.LocalToWorld(dynamo.Vec2{hw, hh}),
		b.LocalToWorld(dynamo.Vec2{-hw, hh}),
	}
}

func (b *Body) finite() bool {
	p, v := b.body.Position(), b.body.Velocity()
	for _, x := range [6]float64{p.X, p.Y, v.X, v.Y, b.body.Angle(), b.body.AngularVelocity()} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func vector(v dynamo.Vec2) cp.Vector { return cp.Vector{X: v.X(), Y: v.Y()} }

func vec2(v cp.Vector) dynamo.Vec2 { return dynamo.Vec2{v.X, v.Y} }
