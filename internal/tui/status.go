// Package tui prints a throttled one-line status for headless runs.
package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/san-kum/hoversim/internal/dynamo"
)

const (
	clearLine  = "\r\033[K"
	hideCursor = "\033[?25l"
	showCursor = "\033[?25h"
)

// StatusLine is an observer that rewrites a single terminal line at most
// frameRate times per wall-clock second.
type StatusLine struct {
	w         io.Writer
	interval  time.Duration
	now       func() time.Time
	lastFrame time.Time
	lines     int
}

func NewStatusLine(w io.Writer, frameRate int) *StatusLine {
	if frameRate < 1 {
		frameRate = 1
	}
	return &StatusLine{
		w:        w,
		interval: time.Second / time.Duration(frameRate),
		now:      time.Now,
	}
}

func (s *StatusLine) OnTick(f dynamo.Frame) {
	now := s.now()
	if !s.lastFrame.IsZero() && now.Sub(s.lastFrame) < s.interval {
		return
	}
	s.lastFrame = now
	s.lines++
	fmt.Fprint(s.w, clearLine+Format(f))
}

// Lines reports how many status updates were written.
func (s *StatusLine) Lines() int { return s.lines }

func (s *StatusLine) Start() { fmt.Fprint(s.w, hideCursor) }
func (s *StatusLine) Stop()  { fmt.Fprint(s.w, showCursor+"\n") }

func Format(f dynamo.Frame) string {
	wind := "off"
	if f.Wind.Enabled {
		wind = fmt.Sprintf("(%5.0f,%5.0f)", f.Wind.Force.X(), f.Wind.Force.Y())
	}
	line := fmt.Sprintf("t=%7.2fs  pos=(%6.1f,%6.1f)  err=(%6.1f,%6.1f)  angle=%6.3f  L=%6.2f R=%6.2f  wind=%s",
		f.Time,
		f.Pose.Position.X(), f.Pose.Position.Y(),
		f.Error.X, f.Error.Y,
		f.Pose.Angle,
		f.Command.Left, f.Command.Right,
		wind,
	)
	if f.Fallback {
		line += "  [fallback]"
	}
	return line
}
