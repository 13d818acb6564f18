package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/padbot/internal/drivetrain"
	"github.com/san-kum/padbot/internal/sim"
	"github.com/san-kum/padbot/internal/storage"
)

type Point struct{ X, Y float64 }

// PathSVG draws the floor path as a polyline with a start dot and an end
// marker. Both axes share one scale so turns keep their angles.
func PathSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	pad := span * 0.1
	span += 2 * pad
	scale := math.Min(float64(width), float64(height)) / span
	cx, cy := (minX+maxX)/2, (minY+maxY)/2

	toPx := func(p Point) (float64, float64) {
		x := float64(width)/2 + (p.X-cx)*scale
		y := float64(height)/2 - (p.Y-cy)*scale
		return x, y
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, p := range points {
		x, y := toPx(p)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString("\"/>\n")

	sx, sy := toPx(points[0])
	ex, ey := toPx(points[len(points)-1])
	sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="4" fill="#00ff00"/>
<circle cx="%.1f" cy="%.1f" r="4" fill="#ff4444"/>
</svg>`, sx, sy, ex, ey))
	return sb.String()
}

// TracePath reconstructs the floor path of a stored run from its
// encoder and heading columns.
func TracePath(t *storage.Trace) []Point {
	states := make([]sim.State, len(t.States))
	for i, x := range t.States {
		states[i] = x
	}
	xs, ys := drivetrain.Pose(states)
	out := make([]Point, len(xs))
	for i := range xs {
		out[i] = Point{xs[i], ys[i]}
	}
	return out
}

// RunSVG writes the path of a stored run to w.
func RunSVG(w io.Writer, st *storage.Store, runID string, width, height int) error {
	t, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	svg := PathSVG(TracePath(t), width, height, "#00ccff")
	if svg == "" {
		return fmt.Errorf("export: run %s has too few samples", runID)
	}
	_, err = io.WriteString(w, svg)
	return err
}
