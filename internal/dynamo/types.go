package dynamo

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec2 is a planar vector in world units (pixels, y pointing down).
type Vec2 = mgl64.Vec2

const (
	// InputDim is the length of the normalized error vector fed to controllers.
	InputDim = 9
	// OutputDim is the number of thruster commands a controller produces.
	OutputDim = 2
)

// Pose is the immutable per-tick snapshot of the rigid body.
type Pose struct {
	Position        Vec2
	Angle           float64
	Velocity        Vec2
	AngularVelocity float64
}

// Target is the operator-controlled setpoint.
type Target struct {
	Position Vec2
	Angle    float64
}

// ErrorSample holds target minus current for each tracked axis.
type ErrorSample struct {
	X, Y, Angle float64
}

// ErrorBetween returns the tracking error of pose p against target t.
func ErrorBetween(t Target, p Pose) ErrorSample {
	return ErrorSample{
		X:     t.Position.X() - p.Position.X(),
		Y:     t.Position.Y() - p.Position.Y(),
		Angle: t.Angle - p.Angle,
	}
}

// Input is the normalized error history [x0,x1,x2,y0,y1,y2,a0,a1,a2].
type Input [InputDim]float64

func (in Input) Slice() []float64 {
	s := make([]float64, InputDim)
	copy(s, in[:])
	return s
}

// Thrust is a pair of signed thruster force magnitudes.
type Thrust struct {
	Left  float64
	Right float64
}

func (t Thrust) Scale(factor float64) Thrust {
	return Thrust{Left: t.Left * factor, Right: t.Right * factor}
}

func (t Thrust) IsValid() bool {
	for _, v := range [2]float64{t.Left, t.Right} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Wind is the current disturbance force. Force is held constant between
// regenerations; Enabled gates whether it is applied to the body.
type Wind struct {
	Force   Vec2
	Enabled bool
}

// Controller maps a normalized error history to thruster commands.
// Implementations are immutable after construction.
type Controller interface {
	Name() string
	Compute(ctx context.Context, in Input) (Thrust, error)
	// PostScale converts the controller's native output range to force units.
	PostScale() float64
	Params() map[string]float64
}

// Body is the single dynamic body owned by the physics engine.
type Body interface {
	Position() Vec2
	Angle() float64
	Velocity() Vec2
	AngularVelocity() float64
	ApplyForceAtLocalPoint(force, point Vec2)
	ApplyForceAtWorldPoint(force, point Vec2)
}

// World is the physics engine consumed by the simulation loop.
type World interface {
	CreateBody(mass, moment float64, position Vec2) Body
	Step(dt float64) error
}

// Snapshot reads the current pose of b.
func Snapshot(b Body) Pose {
	return Pose{
		Position:        b.Position(),
		Angle:           b.Angle(),
		Velocity:        b.Velocity(),
		AngularVelocity: b.AngularVelocity(),
	}
}

// Frame is everything observers see after a completed tick.
type Frame struct {
	Tick    int
	Time    float64
	Pose    Pose
	Target  Target
	Error   ErrorSample
	Input   Input
	Command Thrust // controller output before post-scale
	Applied Thrust // force actually applied to the thrusters
	Wind    Wind
	Reverse bool
	// Fallback is set when the controller failed and the previous output was reused.
	Fallback bool
}

// Observer receives every completed tick. Implementations must not block.
type Observer interface {
	OnTick(f Frame)
}

type ObserverFunc func(f Frame)

func (fn ObserverFunc) OnTick(f Frame) { fn(f) }

func (f Frame) String() string {
	return fmt.Sprintf("tick %d (t=%.3f) pos=(%.1f, %.1f) angle=%.3f L=%.2f R=%.2f",
		f.Tick, f.Time, f.Pose.Position.X(), f.Pose.Position.Y(), f.Pose.Angle, f.Command.Left, f.Command.Right)
}
