// Package dynamo provides the shared vocabulary of the hover simulation.
//
// The package defines the value types passed around every tick and the
// interfaces that separate the control core from its collaborators:
//
//   - [Pose], [Target], [ErrorSample]: what the loop reads and compares
//   - [Input], [Thrust]: controller input and output
//   - [Wind]: the disturbance currently in effect
//   - [Controller]: PID or learned-model thrust law
//   - [World], [Body]: the physics engine
//   - [Observer]: renderers, loggers and metrics fed one [Frame] per tick
//
// # Coordinates
//
// World coordinates follow the screen: x grows right, y grows down, and
// gravity is positive y. Thrusters push along the body's local y axis, so a
// negative thrust command lifts the vehicle.
//
// # Thread Safety
//
// Values are plain data. A [World] and its [Body] are owned by a single
// simulation loop and must not be shared across goroutines.
package dynamo
