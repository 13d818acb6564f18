package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/padbot/internal/experiment"
	"github.com/san-kum/padbot/internal/motion"
	"github.com/san-kum/padbot/internal/sim"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)
)

const historyLen = 120

// keyDirections maps keys to operator requests. Arrow keys and WASD both
// work; space and x reset.
var keyDirections = map[string]motion.Direction{
	"w": motion.Forward, "up": motion.Forward,
	"s": motion.Backward, "down": motion.Backward,
	"a": motion.TurnLeft, "left": motion.TurnLeft,
	"d": motion.TurnRight, "right": motion.TurnRight,
	" ": motion.Reset, "x": motion.Reset,
}

// Teleop drives the simulated robot from the keyboard, one sequencer tick
// per frame.
type Teleop struct {
	sim     *sim.Simulator
	stepper *sim.Stepper
	dt      float64

	pending motion.Direction
	last    sim.Sample
	paused  bool
	speed   float64
	err     error

	tracker *tracker
	left    []float64
	right   []float64
	log     []string

	width  int
	height int
}

func NewTeleop(exp *experiment.Experiment, opts ...motion.Option) (*Teleop, error) {
	s, err := exp.Build(opts...)
	if err != nil {
		return nil, err
	}
	st, err := s.NewStepper(exp.InitState(), exp.Dt())
	if err != nil {
		return nil, err
	}
	return &Teleop{
		sim:     s,
		stepper: st,
		dt:      exp.Dt(),
		speed:   1.0,
		tracker: newTracker(600),
		left:    make([]float64, 0, historyLen),
		right:   make([]float64, 0, historyLen),
		width:   80,
		height:  30,
	}, nil
}

type tickMsg time.Time

func (m *Teleop) tick() tea.Cmd {
	d := time.Duration(m.dt / m.speed * float64(time.Second))
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Teleop) Init() tea.Cmd { return m.tick() }

func (m *Teleop) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if !m.paused && m.err == nil {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Teleop) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if d, ok := keyDirections[key]; ok {
		// one request per tick; a reset is never overwritten
		if m.pending != motion.Reset {
			m.pending = d
		}
		return m, nil
	}

	switch key {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "p":
		m.paused = !m.paused
	case "+", "=":
		m.speed = math.Min(m.speed*2, 8)
	case "-", "_":
		m.speed = math.Max(m.speed/2, 0.25)
	case "0":
		m.speed = 1.0
	}
	return m, nil
}

func (m *Teleop) step() {
	req := m.pending
	m.pending = motion.None

	s, err := m.stepper.Step(req)
	if err != nil {
		m.err = err
		return
	}
	m.last = s

	m.tracker.update(s.Readings.Left, s.Readings.Right, s.Readings.Heading)
	m.left = appendCapped(m.left, s.Output.Left)
	m.right = appendCapped(m.right, s.Output.Right)

	for _, e := range s.Events {
		m.log = append(m.log, formatEvent(e))
	}
	if len(m.log) > 5 {
		m.log = m.log[len(m.log)-5:]
	}
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyLen {
		xs = xs[1:]
	}
	return xs
}

func formatEvent(e motion.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%5d %s", e.Tick, e.Type)
	if e.Kind != 0 {
		fmt.Fprintf(&b, " %s→%.1f", e.Kind, e.Target)
	}
	if e.Request != motion.None {
		fmt.Fprintf(&b, " (%s)", e.Request)
	}
	if e.Reason != motion.ReasonNone {
		fmt.Fprintf(&b, " %s", e.Reason)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, " %s", e.Detail)
	}
	return b.String()
}

func (m *Teleop) View() string {
	cw := m.width - 8
	ch := m.height - 22
	if cw < 40 {
		cw = 40
	}
	if ch < 10 {
		ch = 10
	}
	c := newCanvas(cw, ch)
	m.tracker.draw(c, 1.0)

	var b strings.Builder

	statusIcon, statusText := dim.Render("○"), dim.Render("idle")
	if m.last.Seq == motion.Running && m.last.Active != nil {
		statusIcon = green.Render("●")
		statusText = green.Render(fmt.Sprintf("%s → %.1f", m.last.Active.Kind, m.last.Active.Target))
	}
	if m.paused {
		statusText += "  " + yellow.Render("paused")
	}
	b.WriteString(fmt.Sprintf("\n %s %s  %s  %s\n",
		statusIcon, cyan.Render("padbot"), statusText,
		dim.Render(fmt.Sprintf("t=%.2fs  x%.2g", m.stepper.Time(), m.speed))))

	b.WriteString(panel.Render(strings.Join(c.rows(), "\n")) + "\n")

	r := m.last.Readings
	b.WriteString(fmt.Sprintf(" %s%s  %s%s  %s%s  %s%s\n",
		dim.Render("L="), white.Render(fmt.Sprintf("%.2f", r.Left)),
		dim.Render("R="), white.Render(fmt.Sprintf("%.2f", r.Right)),
		dim.Render("H="), white.Render(fmt.Sprintf("%.1f°", r.Heading)),
		dim.Render("out="), white.Render(fmt.Sprintf("(%.2f, %.2f)", m.last.Output.Left, m.last.Output.Right))))

	if len(m.left) > 1 {
		graph := asciigraph.PlotMany([][]float64{m.left, m.right},
			asciigraph.Height(5),
			asciigraph.Width(cw-10),
			asciigraph.LowerBound(-1),
			asciigraph.UpperBound(1),
			asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
			asciigraph.Caption("wheel power (left, right)"))
		b.WriteString(graph + "\n")
	}

	for _, line := range m.log {
		b.WriteString(" " + dimmer.Render(line) + "\n")
	}
	if m.err != nil {
		b.WriteString(" " + red.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + dim.Render(" w/s drive  a/d turn  space reset  p pause  ±speed  q quit") + "\n")
	return b.String()
}

// Sequencer exposes the running sequencer so callers can tune it live.
func (m *Teleop) Sequencer() *motion.Sequencer { return m.sim.Sequencer() }

func RunTeleop(exp *experiment.Experiment, opts ...motion.Option) error {
	m, err := NewTeleop(exp, opts...)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
