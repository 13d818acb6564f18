package tui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/padbot/internal/config"
	"github.com/san-kum/padbot/internal/experiment"
	"github.com/san-kum/padbot/internal/motion"
	"github.com/san-kum/padbot/internal/sim"
)

func newTestTeleop(t *testing.T) *Teleop {
	t.Helper()
	exp, err := experiment.New(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewTeleop(exp)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m *Teleop, msg tea.Msg) *Teleop {
	next, _ := m.Update(msg)
	return next.(*Teleop)
}

func TestTeleopKeyStartsDrive(t *testing.T) {
	m := newTestTeleop(t)

	m = send(m, key("w"))
	m = send(m, tickMsg{})

	if m.Sequencer().State() != motion.Running {
		t.Fatalf("expected running after w, got %v", m.Sequencer().State())
	}
	if m.Sequencer().Active().Kind != motion.LinearDrive {
		t.Errorf("expected a drive, got %v", m.Sequencer().Active().Kind)
	}

	m = send(m, tickMsg{})
	if m.last.Output.Left <= 0 {
		t.Errorf("expected forward power on the next tick, got %+v", m.last.Output)
	}
	if len(m.left) != 2 {
		t.Errorf("expected 2 history samples, got %d", len(m.left))
	}
}

func TestTeleopResetWinsWithinATick(t *testing.T) {
	m := newTestTeleop(t)

	m = send(m, key("w"))
	m = send(m, tickMsg{})
	m = send(m, key(" "))
	m = send(m, key("a"))
	m = send(m, tickMsg{})

	if m.Sequencer().State() != motion.Idle {
		t.Errorf("expected reset to cancel the drive, got %v", m.Sequencer().State())
	}
	if m.pending != motion.None {
		t.Errorf("request should be consumed by the tick, got %v", m.pending)
	}
}

func TestTeleopPause(t *testing.T) {
	m := newTestTeleop(t)

	m = send(m, key("p"))
	m = send(m, tickMsg{})
	if m.stepper.Tick() != 0 {
		t.Errorf("paused teleop advanced to tick %d", m.stepper.Tick())
	}

	m = send(m, key("p"))
	m = send(m, tickMsg{})
	if m.stepper.Tick() != 1 {
		t.Errorf("expected 1 tick after resume, got %d", m.stepper.Tick())
	}
}

func TestTeleopSpeed(t *testing.T) {
	m := newTestTeleop(t)

	m = send(m, key("+"))
	if m.speed != 2 {
		t.Errorf("expected speed 2, got %f", m.speed)
	}
	for i := 0; i < 10; i++ {
		m = send(m, key("-"))
	}
	if m.speed != 0.25 {
		t.Errorf("expected speed floor 0.25, got %f", m.speed)
	}
	m = send(m, key("0"))
	if m.speed != 1 {
		t.Errorf("expected speed reset, got %f", m.speed)
	}
}

func TestTeleopQuit(t *testing.T) {
	m := newTestTeleop(t)
	if _, cmd := m.Update(key("q")); cmd == nil {
		t.Error("expected quit command")
	}
}

func TestTeleopView(t *testing.T) {
	m := newTestTeleop(t)
	m = send(m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = send(m, key("a"))
	for i := 0; i < 5; i++ {
		m = send(m, tickMsg{})
	}

	view := m.View()
	for _, want := range []string{"padbot", "wheel power", "accepted"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestTrackerMovesAlongHeading(t *testing.T) {
	tr := newTracker(10)
	tr.update(0, 0, 90)
	tr.update(4, 4, 90)

	if tr.pose.x > 1e-9 || tr.pose.y < 3.999 {
		t.Errorf("expected to move along +y, got %+v", tr.pose)
	}

	c := newCanvas(20, 10)
	tr.draw(c, 1.0)
	if !strings.ContainsRune(strings.Join(c.rows(), ""), 'O') {
		t.Error("robot not drawn")
	}
}

func TestLiveRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewLiveRenderer(&buf, "square", 1000)

	r.OnStep(sim.Sample{Time: 0.5, Seq: motion.Running, Readings: sim.Readings{Left: 1, Right: 1}})

	out := buf.String()
	if !strings.Contains(out, "square") || !strings.Contains(out, "running") {
		t.Errorf("unexpected frame: %q", out)
	}
}
