package motion

import (
	"math"

	"github.com/san-kum/padbot/internal/control"
)

type Kind int

const (
	LinearDrive Kind = iota + 1
	Rotate
)

func (k Kind) String() string {
	switch k {
	case LinearDrive:
		return "drive"
	case Rotate:
		return "rotate"
	}
	return "none"
}

// Wheels is a left/right motor power pair in [-1, 1].
type Wheels struct {
	Left  float64
	Right float64
}

type Reason int

const (
	ReasonNone Reason = iota
	ReasonReached
	ReasonSlowed
	ReasonTimeout
)

func (r Reason) String() string {
	switch r {
	case ReasonReached:
		return "reached"
	case ReasonSlowed:
		return "slowed"
	case ReasonTimeout:
		return "timeout"
	}
	return ""
}

// Status is the outcome of one Advance.
type Status struct {
	Complete bool
	Output   Wheels
	Reason   Reason
}

// Input is what the driver supplies each tick.
type Input struct {
	Left    float64 // left wheel distance
	Right   float64 // right wheel distance
	Heading float64 // degrees, counter-clockwise positive, any range
	Dt      float64 // seconds since the previous tick
	Request Direction
}

// Command is one discrete motion. Kind selects which fields are live: a
// LinearDrive uses the two wheel laws, a Rotate uses the heading controller.
type Command struct {
	Kind   Kind
	Delta  float64
	Target float64

	cfg     *Config
	left    control.Law
	right   control.Law
	heading *control.PID
	ticks   int
	last    Status
}

func newLinearDrive(cfg *Config, delta float64, in Input, left, right control.Law) *Command {
	left.Reset()
	right.Reset()
	left.SetSetpoint(in.Left + delta)
	right.SetSetpoint(in.Right + delta)

	return &Command{
		Kind:   LinearDrive,
		Delta:  delta,
		Target: in.Left + delta,
		cfg:    cfg,
		left:   left,
		right:  right,
	}
}

func newRotate(cfg *Config, delta float64, in Input, heading *control.PID) *Command {
	target := control.InputModulus(in.Heading+delta, cfg.Turn.MinInput, cfg.Turn.MaxInput)
	heading.Reset()
	heading.SetSetpoint(target)

	return &Command{
		Kind:    Rotate,
		Delta:   delta,
		Target:  target,
		cfg:     cfg,
		heading: heading,
	}
}

// Advance runs one control tick of the command.
func (c *Command) Advance(in Input) Status {
	c.ticks++

	var st Status
	switch c.Kind {
	case LinearDrive:
		st = c.advanceDrive(in)
	case Rotate:
		st = c.advanceRotate(in)
	default:
		st = Status{Complete: true}
	}

	if !st.Complete && c.cfg.MaxTicks > 0 && c.ticks > c.cfg.MaxTicks {
		st = Status{Complete: true, Reason: ReasonTimeout}
	}
	c.last = st
	return st
}

func (c *Command) advanceDrive(in Input) Status {
	ceiling := c.cfg.Drive.Speed
	l := control.Clamp(c.left.Calculate(in.Left, in.Dt), ceiling)
	r := control.Clamp(c.right.Calculate(in.Right, in.Dt), ceiling)

	switch c.cfg.Drive.Completion {
	case CompleteOnSpeed:
		threshold := c.cfg.Drive.CompletionSpeed
		if math.Abs(l) < threshold || math.Abs(r) < threshold {
			return Status{Complete: true, Reason: ReasonSlowed}
		}
	default:
		if c.left.AtSetpoint() && c.right.AtSetpoint() {
			return Status{Complete: true, Reason: ReasonReached}
		}
	}

	return Status{Output: Wheels{Left: l, Right: r}}
}

func (c *Command) advanceRotate(in Input) Status {
	correction := c.heading.Calculate(in.Heading, in.Dt)
	if c.heading.AtSetpoint() {
		return Status{Complete: true, Reason: ReasonReached}
	}

	// positive correction raises the heading: right wheel forward, left back
	correction = control.Clamp(correction, c.cfg.Turn.Speed)
	return Status{Output: Wheels{Left: -correction / 2, Right: correction / 2}}
}

// Retarget shifts a rotate's target heading by delta while it runs, keeping
// the controller's accumulated state. The Sequencer never does this; it is
// for drivers that nudge a heading hold incrementally.
func (c *Command) Retarget(delta float64) {
	if c.Kind != Rotate {
		return
	}
	c.Delta += delta
	c.Target = control.InputModulus(c.Target+delta, c.cfg.Turn.MinInput, c.cfg.Turn.MaxInput)
	c.heading.SetSetpoint(c.Target)
}

// Ticks is the number of times Advance has run.
func (c *Command) Ticks() int { return c.ticks }

// Last returns the status of the most recent Advance.
func (c *Command) Last() Status { return c.last }

// Error is the current offset from target: the left wheel for a drive, the
// heading for a rotate.
func (c *Command) Error() float64 {
	if c.Kind == Rotate {
		return c.heading.Error()
	}
	return c.left.Error()
}
