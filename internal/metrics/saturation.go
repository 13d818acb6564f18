package metrics

import (
	"math"

	"github.com/san-kum/padbot/internal/sim"
)

// Saturation is the fraction of running ticks where either wheel was driven
// at or above threshold.
type Saturation struct {
	name      string
	threshold float64
	saturated int
	samples   int
}

func NewSaturation(threshold float64) *Saturation {
	return &Saturation{
		name:      "saturation",
		threshold: threshold,
	}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(x sim.Sample) {
	if x.Active == nil {
		return
	}
	s.samples++
	if math.Abs(x.Output.Left) >= s.threshold || math.Abs(x.Output.Right) >= s.threshold {
		s.saturated++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}
