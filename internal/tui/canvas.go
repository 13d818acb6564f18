package tui

import "math"

type canvas struct {
	cells [][]rune
	w, h  int
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, cells: make([][]rune, h)}
	for i := range c.cells {
		c.cells[i] = make([]rune, w)
	}
	c.clear()
	return c
}

func (c *canvas) clear() {
	for y := range c.cells {
		for x := range c.cells[y] {
			c.cells[y][x] = ' '
		}
	}
}

func (c *canvas) set(x, y int, r rune) {
	if x >= 0 && x < c.w && y >= 0 && y < c.h {
		c.cells[y][x] = r
	}
}

func (c *canvas) line(x1, y1, x2, y2 int, r rune) {
	dx := intAbs(x2 - x1)
	dy := intAbs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		c.set(x1, y1, r)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (c *canvas) rows() []string {
	out := make([]string, len(c.cells))
	for i, row := range c.cells {
		out[i] = string(row)
	}
	return out
}

func intAbs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

type point struct{ x, y float64 }

// tracker integrates encoder and gyro readings into a floor pose.
type tracker struct {
	pose    point
	heading float64
	prevL   float64
	prevR   float64
	started bool
	trail   []point
	limit   int
}

func newTracker(limit int) *tracker {
	return &tracker{limit: limit, trail: make([]point, 0, limit)}
}

func (t *tracker) update(left, right, heading float64) {
	if t.started {
		ds := ((left - t.prevL) + (right - t.prevR)) / 2
		h := heading * math.Pi / 180
		t.pose.x += ds * math.Cos(h)
		t.pose.y += ds * math.Sin(h)
	}
	t.prevL, t.prevR, t.heading = left, right, heading
	t.started = true

	t.trail = append(t.trail, t.pose)
	if len(t.trail) > t.limit {
		t.trail = t.trail[1:]
	}
}

// draw plots the trail and the robot centred on the canvas. scale is
// character cells per inch horizontally; rows count double since terminal
// cells are about twice as tall as wide.
func (t *tracker) draw(c *canvas, scale float64) {
	cx, cy := c.w/2, c.h/2
	toCell := func(p point) (int, int) {
		return cx + int(math.Round(p.x*scale)), cy - int(math.Round(p.y*scale/2))
	}

	for _, p := range t.trail {
		x, y := toCell(p)
		c.set(x, y, '.')
	}

	x, y := toCell(t.pose)
	h := t.heading * math.Pi / 180
	nose := point{t.pose.x + 3*math.Cos(h), t.pose.y + 3*math.Sin(h)}
	nx, ny := toCell(nose)
	c.line(x, y, nx, ny, '-')
	c.set(nx, ny, '>')
	c.set(x, y, 'O')
}
