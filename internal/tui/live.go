package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/san-kum/padbot/internal/sim"
)

const (
	width       = 70
	height      = 20
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer draws a top-down view of a scripted run as it executes.
type LiveRenderer struct {
	out       io.Writer
	scenario  string
	frameRate int
	lastFrame time.Time
	canvas    *canvas
	tracker   *tracker
}

func NewLiveRenderer(out io.Writer, scenario string, frameRate int) *LiveRenderer {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &LiveRenderer{
		out:       out,
		scenario:  scenario,
		frameRate: frameRate,
		canvas:    newCanvas(width, height),
		tracker:   newTracker(400),
	}
}

func (r *LiveRenderer) OnStep(s sim.Sample) {
	r.tracker.update(s.Readings.Left, s.Readings.Right, s.Readings.Heading)

	if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()

	r.canvas.clear()
	r.tracker.draw(r.canvas, 1.0)
	r.render(s)
}

func (r *LiveRenderer) render(s sim.Sample) {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  t=%.2fs  %s\n", r.scenario, s.Time, s.Seq))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	for _, row := range r.canvas.rows() {
		b.WriteString("  ")
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	b.WriteString(fmt.Sprintf("  L=%.2fin R=%.2fin H=%.1f°  out=(%.2f, %.2f)\n",
		s.Readings.Left, s.Readings.Right, s.Readings.Heading, s.Output.Left, s.Output.Right))

	fmt.Fprint(r.out, b.String())
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }
