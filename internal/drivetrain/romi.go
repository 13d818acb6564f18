// Package drivetrain simulates a two-wheeled differential drive with
// quadrature encoders and a yaw gyro.
package drivetrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/padbot/internal/sim"
)

const (
	// WheelDiameter of the stock Romi wheel, inches.
	WheelDiameter = 2.75591
	// PulsesPerRev counted by the Romi encoders per wheel revolution.
	PulsesPerRev = 1440

	DefaultTopSpeed   = 24.0
	DefaultTau        = 0.1
	DefaultTrackWidth = 5.55
)

// DistancePerPulse is how far a wheel travels per encoder count, inches.
var DistancePerPulse = math.Pi * WheelDiameter / PulsesPerRev

var ErrUnknownParam = errors.New("drivetrain: unknown parameter")

// State layout.
const (
	LeftDist = iota
	RightDist
	Heading
	LeftVel
	RightVel
)

// Romi maps wheel powers in [-1, 1] to wheel speeds through a first-order
// motor lag. Heading is in degrees, counter-clockwise positive.
type Romi struct {
	TopSpeed   float64 // in/s at full power
	Tau        float64 // s
	TrackWidth float64 // in
	Quantize   bool
}

func NewRomi() *Romi {
	return &Romi{
		TopSpeed:   DefaultTopSpeed,
		Tau:        DefaultTau,
		TrackWidth: DefaultTrackWidth,
		Quantize:   true,
	}
}

func (r *Romi) StateDim() int   { return 5 }
func (r *Romi) ControlDim() int { return 2 }

func (r *Romi) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	vl, vr := x[LeftVel], x[RightVel]

	pl, pr := 0.0, 0.0
	if len(u) >= 2 {
		pl, pr = u[0], u[1]
	}
	pl = math.Max(-1, math.Min(1, pl))
	pr = math.Max(-1, math.Min(1, pr))

	tau := r.Tau
	if tau <= 0 {
		tau = DefaultTau
	}

	yawRate := 0.0
	if r.TrackWidth > 0 {
		yawRate = (vr - vl) / r.TrackWidth * 180 / math.Pi
	}

	return sim.State{
		vl,
		vr,
		yawRate,
		(pl*r.TopSpeed - vl) / tau,
		(pr*r.TopSpeed - vr) / tau,
	}
}

// Sensors returns encoder distances and gyro heading. With Quantize set the
// distances are whole encoder counts.
func (r *Romi) Sensors(x sim.State) sim.Readings {
	left, right := x[LeftDist], x[RightDist]
	if r.Quantize {
		left = quantize(left)
		right = quantize(right)
	}
	return sim.Readings{Left: left, Right: right, Heading: x[Heading]}
}

func quantize(d float64) float64 {
	return math.Trunc(d/DistancePerPulse) * DistancePerPulse
}

// Pose integrates the wheel distances into a planar pose for plotting. It
// assumes the heading column is accurate and straight segments between
// samples.
func Pose(states []sim.State) (xs, ys []float64) {
	xs = make([]float64, len(states))
	ys = make([]float64, len(states))
	for i := 1; i < len(states); i++ {
		prev, cur := states[i-1], states[i]
		ds := ((cur[LeftDist] - prev[LeftDist]) + (cur[RightDist] - prev[RightDist])) / 2
		h := (cur[Heading] + prev[Heading]) / 2 * math.Pi / 180
		xs[i] = xs[i-1] + ds*math.Cos(h)
		ys[i] = ys[i-1] + ds*math.Sin(h)
	}
	return xs, ys
}

func (r *Romi) GetParams() map[string]float64 {
	q := 0.0
	if r.Quantize {
		q = 1
	}
	return map[string]float64{
		"top_speed":   r.TopSpeed,
		"tau":         r.Tau,
		"track_width": r.TrackWidth,
		"quantize":    q,
	}
}

func (r *Romi) SetParam(name string, value float64) error {
	switch name {
	case "top_speed":
		r.TopSpeed = value
	case "tau":
		r.Tau = value
	case "track_width":
		r.TrackWidth = value
	case "quantize":
		r.Quantize = value != 0
	default:
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return nil
}
