// Package control provides the thrust controllers for the hover drone.
//
// Controllers implement [dynamo.Controller] and map the normalized error
// history to a left/right thruster command:
//
//   - [PID]: discrete three-sample PID law with differential mixing
//   - [Learned]: adapter around a pretrained regression model
//
// # Usage
//
//	pid, err := control.NewPID(control.DefaultPIDConfig())
//	thrust, _ := pid.Compute(ctx, history.Normalized())
//	force := thrust.Scale(pid.PostScale())
//
// Both controllers are immutable; the output depends only on the input.
package control
