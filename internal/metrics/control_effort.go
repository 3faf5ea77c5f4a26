package metrics

import (
	"math"

	"github.com/san-kum/hoversim/internal/dynamo"
)

// ControlEffort is the mean of |left|+|right| over the controller's
// unscaled commands.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(f dynamo.Frame) {
	c.sum += math.Abs(f.Command.Left) + math.Abs(f.Command.Right)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Fallbacks counts ticks where the previous command was reused.
type Fallbacks struct {
	count int
}

func NewFallbacks() *Fallbacks { return &Fallbacks{} }

func (f *Fallbacks) Name() string { return "fallbacks" }

func (f *Fallbacks) Observe(fr dynamo.Frame) {
	if fr.Fallback {
		f.count++
	}
}

func (f *Fallbacks) Value() float64 { return float64(f.count) }

func (f *Fallbacks) Reset() { f.count = 0 }
