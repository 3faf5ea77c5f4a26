// Package sim runs the fixed-rate hover control loop.
//
// A [Loop] owns the target, the error history and the previous thruster
// command. Each call to [Loop.Tick] applies queued operator commands, reads
// the pose once, updates the history, computes and scales thrust, applies
// thrust and wind, steps the world exactly once and hands a [dynamo.Frame]
// to metrics and observers.
//
//	loop, err := sim.New(sim.DefaultConfig(), sim.Components{...})
//	loop.AddObserver(trace)
//	res, err := loop.Run(ctx, sim.RunOptions{Duration: 30})
//
// Commands may be submitted from any goroutine; they take effect at the next
// tick boundary, so a Stop never interrupts a tick halfway.
package sim
