package control

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownParam is returned by SetParam for names a law does not expose.
var ErrUnknownParam = errors.New("control: unknown parameter")

// Law is a single-axis feedback law driven once per tick.
type Law interface {
	SetSetpoint(target float64)
	Setpoint() float64
	Calculate(measurement, dt float64) float64
	AtSetpoint() bool
	Error() float64
	Reset()
}

type PID struct {
	Kp float64
	Ki float64
	Kd float64

	// Tolerance is the error magnitude at or below which AtSetpoint holds.
	Tolerance float64

	// IntegratorLimit bounds Ki*integral to [-IntegratorLimit, IntegratorLimit].
	// Zero disables the bound.
	IntegratorLimit float64

	setpoint   float64
	continuous bool
	minInput   float64
	maxInput   float64

	integral float64
	prevErr  float64
	err      float64
	deriv    float64
	first    bool
	measured bool
}

// Terms holds the individual contributions of the last Calculate call.
type Terms struct {
	P     float64
	I     float64
	D     float64
	Error float64
}

func NewPID(kp, ki, kd float64) *PID {
	return &PID{
		Kp:    kp,
		Ki:    ki,
		Kd:    kd,
		first: true,
	}
}

func (p *PID) SetSetpoint(target float64) { p.setpoint = target }
func (p *PID) Setpoint() float64          { return p.setpoint }
func (p *PID) SetTolerance(tol float64)   { p.Tolerance = tol }

// EnableContinuousInput makes the error wrap around the range [lo, hi), so
// that a heading of 170 and a setpoint of -170 are 20 apart instead of 340.
func (p *PID) EnableContinuousInput(lo, hi float64) {
	p.continuous = true
	p.minInput = lo
	p.maxInput = hi
}

func (p *PID) DisableContinuousInput() { p.continuous = false }

func (p *PID) IsContinuousInputEnabled() bool { return p.continuous }

// InputRange returns the continuous input range, if enabled.
func (p *PID) InputRange() (lo, hi float64, ok bool) {
	return p.minInput, p.maxInput, p.continuous
}

// Reset clears integral and derivative state. The setpoint is kept.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.err = 0
	p.deriv = 0
	p.first = true
	p.measured = false
}

// Calculate advances the controller by dt seconds and returns the correction.
// The first sample after a reset carries no derivative term, and a
// non-positive dt leaves the integral and derivative untouched.
func (p *PID) Calculate(measurement, dt float64) float64 {
	err := p.offset(measurement, p.setpoint)

	var derivative float64
	if dt > 0 {
		p.integral += err * dt
		p.limitIntegral()
		if !p.first {
			derivative = p.wrap(err-p.prevErr) / dt
		}
	}

	p.prevErr = err
	p.err = err
	p.deriv = derivative
	p.first = false
	p.measured = true

	return -(p.Kp*err + p.Ki*p.integral + p.Kd*derivative)
}

// Error is the offset of the last measurement from the setpoint.
func (p *PID) Error() float64 { return p.err }

// AtSetpoint reports whether the last computed error is within tolerance.
// It is false until Calculate has run since the last reset.
func (p *PID) AtSetpoint() bool {
	return p.measured && math.Abs(p.err) <= p.Tolerance
}

// Integral returns the accumulated integral of the error.
func (p *PID) Integral() float64 { return p.integral }

// Terms returns the contributions of the last sample for monitoring. The
// signs match the returned correction.
func (p *PID) Terms() Terms {
	return Terms{
		P:     -p.Kp * p.err,
		I:     -p.Ki * p.integral,
		D:     -p.Kd * p.deriv,
		Error: p.err,
	}
}

func (p *PID) limitIntegral() {
	if p.IntegratorLimit <= 0 || p.Ki == 0 {
		return
	}
	bound := p.IntegratorLimit / math.Abs(p.Ki)
	p.integral = Clamp(p.integral, bound)
}

func (p *PID) offset(measurement, setpoint float64) float64 {
	return p.wrap(measurement - setpoint)
}

// wrap folds a difference into (-half, +half] when continuous input is on.
func (p *PID) wrap(diff float64) float64 {
	if !p.continuous {
		return diff
	}
	full := p.maxInput - p.minInput
	if full <= 0 {
		return diff
	}
	half := full / 2
	e := math.Mod(diff+half, full)
	if e < 0 {
		e += full
	}
	e -= half
	if e == -half {
		e = half
	}
	return e
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"kp":               p.Kp,
		"ki":               p.Ki,
		"kd":               p.Kd,
		"tolerance":        p.Tolerance,
		"integrator_limit": p.IntegratorLimit,
		"setpoint":         p.setpoint,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	case "tolerance":
		p.Tolerance = value
	case "integrator_limit":
		p.IntegratorLimit = value
	case "setpoint":
		p.setpoint = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return nil
}
