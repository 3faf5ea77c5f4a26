// Package viz provides the interactive terminal view of a hover run.
//
// The package implements a TUI using the Bubble Tea framework:
//
//   - [Model]: drives a [sim.Loop] one tick per frame and turns keys into commands
//   - [Canvas]: Braille-based pixel canvas in world coordinates
//   - Theme selection with 3 built-in color schemes
//
// # Key Bindings
//
//	A/D   - Move target left/right
//	W/S   - Move target up/down
//	R     - Toggle reverse
//	T     - Toggle wind
//	Space - Pause/Resume
//	C     - Cycle color themes
//	Q     - Stop the loop and quit
//	?     - Show help overlay
//
// The wind indicator in the top-right corner points in the direction the
// force acts, its length proportional to the force magnitude.
package viz
