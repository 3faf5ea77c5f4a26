// Package physics adapts the chipmunk rigid-body engine (github.com/jakecoffman/cp)
// to the hover simulation.
//
// A [Space] holds dynamic [Body] values and static [Segment] walls. Bodies may
// carry a box shape that collides with the walls.
//
//   - [Space]: gravity, solver iterations, finite-state checks around each step
//   - [Body]: mass, moment, force/torque accumulators, optional box shape
//   - [Segment]: thick static line with its own material
//
// # Coordinates
//
// Screen coordinates with y pointing down. Gravity defaults to (0, 981), so a
// thrust force with a negative y component lifts the body.
//
//	space, _ := physics.NewSpace(physics.DefaultConfig())
//	drone := space.NewBox(8, 100, 20, dynamo.Vec2{400, 300}, physics.Material{Elasticity: 0.5, Friction: 0.5})
//	drone.ApplyForceAtLocalPoint(dynamo.Vec2{0, -40000}, dynamo.Vec2{-50, 0})
//	err := space.Step(1.0 / 60)
package physics
