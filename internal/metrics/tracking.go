package metrics

import (
	"math"

	"github.com/san-kum/padbot/internal/control"
	"github.com/san-kum/padbot/internal/motion"
	"github.com/san-kum/padbot/internal/sim"
)

// HeadingError is |heading - target| in degrees at the last tick, against
// the target of the most recent rotate. Zero if nothing rotated.
type HeadingError struct {
	target  float64
	heading float64
	seen    bool
}

func NewHeadingError() *HeadingError { return &HeadingError{} }

func (h *HeadingError) Name() string { return "heading_error" }

func (h *HeadingError) Observe(s sim.Sample) {
	if s.Active != nil && s.Active.Kind == motion.Rotate {
		h.target = s.Active.Target
		h.seen = true
	}
	h.heading = s.Readings.Heading
}

func (h *HeadingError) Value() float64 {
	if !h.seen {
		return 0
	}
	return math.Abs(control.AngleModulus(h.heading - h.target))
}

func (h *HeadingError) Reset() { *h = HeadingError{} }

// DistanceError is |left - target| in inches at the last tick, against the
// left wheel target of the most recent drive. Zero if nothing drove.
type DistanceError struct {
	target float64
	left   float64
	seen   bool
}

func NewDistanceError() *DistanceError { return &DistanceError{} }

func (d *DistanceError) Name() string { return "distance_error" }

func (d *DistanceError) Observe(s sim.Sample) {
	if s.Active != nil && s.Active.Kind == motion.LinearDrive {
		d.target = s.Active.Target
		d.seen = true
	}
	d.left = s.Readings.Left
}

func (d *DistanceError) Value() float64 {
	if !d.seen {
		return 0
	}
	return math.Abs(d.left - d.target)
}

func (d *DistanceError) Reset() { *d = DistanceError{} }

// Travel is the total distance rolled by both wheels, inches.
type Travel struct {
	prev    sim.Readings
	started bool
	total   float64
}

func NewTravel() *Travel { return &Travel{} }

func (t *Travel) Name() string { return "travel" }

func (t *Travel) Observe(s sim.Sample) {
	if t.started {
		t.total += math.Abs(s.Readings.Left-t.prev.Left) + math.Abs(s.Readings.Right-t.prev.Right)
	}
	t.prev = s.Readings
	t.started = true
}

func (t *Travel) Value() float64 { return t.total }
func (t *Travel) Reset()         { *t = Travel{} }

// Default returns the metrics recorded for every run.
func Default(ceiling float64) []sim.Metric {
	return []sim.Metric{
		NewControlEffort(),
		NewSaturation(ceiling),
		NewCompleted(),
		NewDropped(),
		NewSettleTicks(),
		NewHeadingError(),
		NewDistanceError(),
		NewTravel(),
	}
}
