package viz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/sim"
)

const (
	errorHistoryCapacity = 300
	// windBox is the side of the wind indicator square in world units; the
	// arrow reaches its edge at MaxWind.
	windBox = 160.0
)

type Options struct {
	Cols, Rows    int
	WorldWidth    float64
	WorldHeight   float64
	DroneWidth    float64
	DroneHeight   float64
	MaxWind       float64
	ThrustLimit   float64
	Theme         string
	StartInPaused bool
}

func DefaultOptions() Options {
	return Options{
		Cols:        80,
		Rows:        30,
		WorldWidth:  800,
		WorldHeight: 600,
		DroneWidth:  100,
		DroneHeight: 20,
		MaxWind:     1000,
		ThrustLimit: 80,
		Theme:       ThemeCyberpunk.Name,
	}
}

type tickMsg time.Time

// Model is the interactive view of one simulation loop. Keyboard input is
// turned into loop commands; every timer tick advances the loop once.
type Model struct {
	ctx    context.Context
	loop   *sim.Loop
	opts   Options
	theme  Theme
	styles styles
	canvas *Canvas

	frame     dynamo.Frame
	errors    []float64
	paused    bool
	showHelp  bool
	lastInput string
	err       error
}

func NewModel(ctx context.Context, loop *sim.Loop, opts Options) Model {
	theme := GetTheme(opts.Theme)
	return Model{
		ctx:    ctx,
		loop:   loop,
		opts:   opts,
		theme:  theme,
		styles: newStyles(theme),
		canvas: NewCanvas(opts.Cols, opts.Rows, opts.WorldWidth, opts.WorldHeight),
		frame: dynamo.Frame{
			Pose:    loop.Pose(),
			Target:  loop.Target(),
			Wind:    loop.Wind(),
			Reverse: loop.Reverse(),
		},
		errors: make([]float64, 0, errorHistoryCapacity),
		paused: opts.StartInPaused,
	}
}

// Err reports the fatal tick error that ended the session, if any.
func (m Model) Err() error { return m.err }

func (m Model) Frame() dynamo.Frame { return m.frame }

func (m Model) tick() tea.Cmd {
	period := time.Duration(m.loop.Dt() * float64(time.Second))
	return tea.Tick(period, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

var keyCommands = map[string]sim.Command{
	"a":     sim.MoveLeft,
	"left":  sim.MoveLeft,
	"d":     sim.MoveRight,
	"right": sim.MoveRight,
	"w":     sim.MoveUp,
	"up":    sim.MoveUp,
	"s":     sim.MoveDown,
	"down":  sim.MoveDown,
	"r":     sim.ToggleReverse,
	"t":     sim.ToggleWind,
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "esc":
			// the loop reports ErrStopped on its next tick
			m.loop.Submit(sim.Stop)
			m.paused = false
			m.lastInput = sim.Stop.String()
		case "ctrl+c":
			m.loop.Submit(sim.Stop)
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "?":
			m.showHelp = !m.showHelp
		case "c":
			m.theme = m.theme.next()
			m.styles = newStyles(m.theme)
		default:
			if cmd, ok := keyCommands[key]; ok {
				m.loop.Submit(cmd)
				m.lastInput = cmd.String()
			}
		}
	case tickMsg:
		if m.paused {
			return m, m.tick()
		}
		f, err := m.loop.Tick(m.ctx)
		switch {
		case errors.Is(err, dynamo.ErrStopped):
			return m, tea.Quit
		case err != nil:
			m.err = err
			return m, tea.Quit
		}
		m.observe(f)
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) observe(f dynamo.Frame) {
	m.frame = f
	if len(m.errors) == errorHistoryCapacity {
		copy(m.errors, m.errors[1:])
		m.errors = m.errors[:errorHistoryCapacity-1]
	}
	m.errors = append(m.errors, math.Hypot(f.Error.X, f.Error.Y))
}

// draw renders the world into the canvas: border, target, drone and the
// wind indicator in the top-right corner.
func (m *Model) draw() {
	c := m.canvas
	c.Clear()
	w, h := m.opts.WorldWidth, m.opts.WorldHeight
	c.Polygon([]dynamo.Vec2{{0, 0}, {w, 0}, {w, h}, {0, h}})

	c.Cross(m.frame.Target.Position, 12)
	c.Box(m.frame.Pose.Position, m.frame.Pose.Angle, m.opts.DroneWidth, m.opts.DroneHeight)

	origin := dynamo.Vec2{w - windBox/2 - 10, windBox/2 + 10}
	half := windBox / 2
	c.Polygon([]dynamo.Vec2{
		origin.Add(dynamo.Vec2{-half, -half}),
		origin.Add(dynamo.Vec2{half, -half}),
		origin.Add(dynamo.Vec2{half, half}),
		origin.Add(dynamo.Vec2{-half, half}),
	})
	if wind := m.frame.Wind; wind.Enabled && m.opts.MaxWind > 0 {
		c.Arrow(origin, wind.Force.Mul(half/m.opts.MaxWind))
	}
}

func (m Model) View() string {
	m.draw()
	st := m.styles
	canvasView := st.canvas.Render(m.canvas.String())

	f := m.frame
	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.loop.Controller().Name())+" HOVER") + "\n")
	status := st.on.Render("RUNNING")
	if m.paused {
		status = st.off.Render("PAUSED")
	}
	s.WriteString(status + "\n\n")

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs  #%d", f.Time, f.Tick))
	row("Position", fmt.Sprintf("(%.1f, %.1f)", f.Pose.Position.X(), f.Pose.Position.Y()))
	row("Angle", fmt.Sprintf("%.1f°", f.Pose.Angle*180/math.Pi))
	row("Target", fmt.Sprintf("(%.0f, %.0f)", f.Target.Position.X(), f.Target.Position.Y()))
	row("Error", fmt.Sprintf("%.1f, %.1f", f.Error.X, f.Error.Y))
	s.WriteString(st.label.Render("Left") + st.thrustBar(f.Command.Left, m.opts.ThrustLimit, 16) + st.value.Render(fmt.Sprintf(" %6.2f", f.Command.Left)) + "\n")
	s.WriteString(st.label.Render("Right") + st.thrustBar(f.Command.Right, m.opts.ThrustLimit, 16) + st.value.Render(fmt.Sprintf(" %6.2f", f.Command.Right)) + "\n")
	s.WriteString(st.label.Render("Wind") + st.flag(f.Wind.Enabled, "ON", "OFF") +
		st.value.Render(fmt.Sprintf(" (%.0f, %.0f)", f.Wind.Force.X(), f.Wind.Force.Y())) + "\n")
	s.WriteString(st.label.Render("Reverse") + st.flag(f.Reverse, "ON", "OFF") + "\n")
	if f.Fallback {
		s.WriteString(st.alert.Render("controller fallback") + "\n")
	}
	if m.lastInput != "" {
		row("Input", m.lastInput)
	}

	if len(m.errors) > 1 {
		chart := asciigraph.Plot(m.errors, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("position error (px)"))
		s.WriteString("\n" + st.graph.Render(chart) + "\n")
	}
	s.WriteString(st.help.Render("WASD:Move R:Reverse T:Wind\nSP:Pause C:Theme ?:Help Q:Quit"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  A/←  D/→   - Move target sideways   ║
║  W/↑  S/↓   - Move target vertically ║
║  R          - Toggle reverse         ║
║  T          - Toggle wind            ║
║  Space      - Pause/Resume           ║
║  C          - Cycle themes           ║
║  Q          - Stop and quit          ║
║  ?          - Toggle this help       ║
╚══════════════════════════════════════╝`

// Run drives loop interactively until the operator quits, the loop fails or
// ctx is done.
func Run(ctx context.Context, loop *sim.Loop, opts Options) error {
	p := tea.NewProgram(NewModel(ctx, loop, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
