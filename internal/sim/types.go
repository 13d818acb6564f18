package sim

import (
	"math"

	"github.com/san-kum/padbot/internal/motion"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Control holds the wheel powers applied for one tick: left, right.
type Control []float64

type Dynamics interface {
	Derivative(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Plant is a drivetrain the sequencer can close the loop around.
type Plant interface {
	Dynamics
	// Sensors returns what the encoders and gyro report for a state.
	Sensors(x State) Readings
}

type Readings struct {
	Left    float64
	Right   float64
	Heading float64
}

type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t float64, dt float64) State
}

// Script supplies at most one operator request per tick. state is the
// sequencer state before the tick runs.
type Script interface {
	Request(tick int, state motion.State) motion.Direction
}

// Sample is everything that happened in one tick.
type Sample struct {
	Tick     int
	Time     float64
	State    State
	Readings Readings
	Request  motion.Direction
	Output   motion.Wheels
	Seq      motion.State
	Active   *motion.Command
	Events   []motion.Event
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

type Config struct {
	Dt       float64
	Duration float64
}

func DefaultConfig() Config {
	return Config{
		Dt:       0.02,
		Duration: 10.0,
	}
}

type Result struct {
	States   []State
	Wheels   []motion.Wheels
	Seq      []motion.State
	Requests []motion.Direction
	Times    []float64
	Events   []motion.Event
	Metrics  map[string]float64
	Ticks    int
}
