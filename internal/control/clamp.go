package control

import "math"

// Clamp bounds value to [-limit, +limit]. A negative limit is taken by magnitude.
func Clamp(value, limit float64) float64 {
	limit = math.Abs(limit)
	if value > limit {
		return limit
	}
	if value < -limit {
		return -limit
	}
	return value
}

// InputModulus wraps x into [lo, hi). An empty range returns x unchanged.
func InputModulus(x, lo, hi float64) float64 {
	full := hi - lo
	if full <= 0 {
		return x
	}
	a := math.Mod(x-lo, full)
	if a < 0 {
		a += full
	}
	return a + lo
}

// AngleModulus wraps an angle in degrees into [-180, 180).
func AngleModulus(deg float64) float64 {
	return InputModulus(deg, -180, 180)
}
