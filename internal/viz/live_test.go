package viz

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/hoversim/internal/actuation"
	"github.com/san-kum/hoversim/internal/control"
	"github.com/san-kum/hoversim/internal/disturbance"
	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/physics"
	"github.com/san-kum/hoversim/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoop(t *testing.T) *sim.Loop {
	t.Helper()
	wcfg := physics.DefaultConfig()
	wcfg.Gravity = dynamo.Vec2{0, 0}
	space, err := physics.NewSpace(wcfg)
	require.NoError(t, err)
	body := space.NewBox(8, 100, 20, dynamo.Vec2{400, 300}, physics.Material{Elasticity: 0.5, Friction: 0.5})

	dcfg := disturbance.DefaultConfig(5)
	dcfg.Enabled = false
	wind, err := disturbance.New(dcfg, rand.New(rand.NewSource(1)), nil)
	require.NoError(t, err)
	alloc, err := actuation.New(actuation.DefaultConfig())
	require.NoError(t, err)
	pid, err := control.NewPID(control.DefaultPIDConfig())
	require.NoError(t, err)

	loop, err := sim.New(sim.DefaultConfig(), sim.Components{
		World:      space,
		Body:       body,
		Controller: pid,
		Wind:       wind,
		Actuator:   alloc,
	})
	require.NoError(t, err)
	return loop
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestModel_TickAdvancesLoop(t *testing.T) {
	m := NewModel(context.Background(), newLoop(t), DefaultOptions())

	for i := 0; i < 3; i++ {
		var cmd tea.Cmd
		m, cmd = update(t, m, tickMsg{})
		assert.NotNil(t, cmd)
	}
	assert.Equal(t, 3, m.Frame().Tick)
	assert.Len(t, m.errors, 3)
	assert.NoError(t, m.Err())
}

func TestModel_KeysBecomeCommands(t *testing.T) {
	loop := newLoop(t)
	m := NewModel(context.Background(), loop, DefaultOptions())

	m, _ = update(t, m, key("d"))
	m, _ = update(t, m, key("w"))
	m, _ = update(t, m, key("r"))
	m, _ = update(t, m, key("t"))
	assert.Equal(t, sim.ToggleWind.String(), m.lastInput)

	m, _ = update(t, m, tickMsg{})
	f := m.Frame()
	assert.InDelta(t, 550, f.Target.Position.X(), 1e-9)
	assert.InDelta(t, 150, f.Target.Position.Y(), 1e-9)
	assert.True(t, f.Reverse)
	assert.True(t, f.Wind.Enabled)
}

func TestModel_PauseHoldsLoop(t *testing.T) {
	m := NewModel(context.Background(), newLoop(t), DefaultOptions())

	m, _ = update(t, m, key(" "))
	require.True(t, m.paused)
	m, cmd := update(t, m, tickMsg{})
	assert.NotNil(t, cmd)
	assert.Equal(t, 0, m.Frame().Tick)
}

func TestModel_QuitStopsLoop(t *testing.T) {
	loop := newLoop(t)
	m := NewModel(context.Background(), loop, DefaultOptions())
	m.paused = true

	m, _ = update(t, m, key("q"))
	assert.False(t, m.paused)
	_, cmd := update(t, m, tickMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, loop.Stopped())
}

func TestModel_CtrlCQuitsImmediately(t *testing.T) {
	m := NewModel(context.Background(), newLoop(t), DefaultOptions())
	_, cmd := update(t, m, key("ctrl+c"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_CycleTheme(t *testing.T) {
	m := NewModel(context.Background(), newLoop(t), DefaultOptions())
	m, _ = update(t, m, key("c"))
	assert.Equal(t, ThemeRetroGreen.Name, m.theme.Name)
}

func TestModel_View(t *testing.T) {
	m := NewModel(context.Background(), newLoop(t), DefaultOptions())
	m, _ = update(t, m, tickMsg{})
	m, _ = update(t, m, tickMsg{})

	view := m.View()
	assert.Contains(t, view, "PID HOVER")
	assert.Contains(t, view, "position error")
	assert.NotContains(t, view, "KEYBOARD SHORTCUTS")

	m, _ = update(t, m, key("?"))
	assert.Contains(t, m.View(), "KEYBOARD SHORTCUTS")
}

func TestGetTheme(t *testing.T) {
	assert.Equal(t, ThemeMinimal, GetTheme("minimal"))
	assert.Equal(t, Themes[0], GetTheme("nope"))
	assert.Equal(t, Themes[0], ThemeMinimal.next())
	assert.Equal(t, []string{"cyberpunk", "retro", "minimal"}, ThemeNames())
}

func TestThrustBar(t *testing.T) {
	st := newStyles(ThemeMinimal)
	bar := st.thrustBar(-40, 80, 10)
	assert.Equal(t, 5, strings.Count(bar, "█"))
	assert.Equal(t, 5, strings.Count(bar, "░"))
	assert.Equal(t, 10, strings.Count(st.thrustBar(-200, 80, 10), "█"))
}
