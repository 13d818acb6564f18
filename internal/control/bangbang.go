package control

import "math"

// BangBang drives at a fixed power toward the setpoint until the error falls
// inside Tolerance. Reverse power is separate because overshoot correction
// usually wants to be gentler than the approach.
type BangBang struct {
	Tolerance    float64
	ForwardPower float64
	ReversePower float64

	setpoint float64
	err      float64
	measured bool
}

func NewBangBang(tolerance, forward, reverse float64) *BangBang {
	return &BangBang{
		Tolerance:    tolerance,
		ForwardPower: forward,
		ReversePower: reverse,
	}
}

func (b *BangBang) SetSetpoint(target float64) { b.setpoint = target }
func (b *BangBang) Setpoint() float64          { return b.setpoint }
func (b *BangBang) Error() float64             { return b.err }

func (b *BangBang) Reset() {
	b.err = 0
	b.measured = false
}

func (b *BangBang) Calculate(measurement, dt float64) float64 {
	b.err = measurement - b.setpoint
	b.measured = true

	if math.Abs(b.err) <= b.Tolerance {
		return 0
	}
	if b.err < 0 {
		return b.ForwardPower
	}
	return -b.ReversePower
}

func (b *BangBang) AtSetpoint() bool {
	return b.measured && math.Abs(b.err) <= b.Tolerance
}
