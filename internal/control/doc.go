// Package control provides the feedback laws used by the motion engine.
//
//   - [PID]: proportional-integral-derivative controller with tolerance,
//     continuous (wraparound) input and an optional integrator limit
//   - [BangBang]: fixed-power on/off law with a tolerance band
//   - [Clamp] and [AngleModulus]: output and heading normalization helpers
//
// Both laws satisfy [Law], so a motion command can swap one for the other.
//
// # Usage
//
//	pid := control.NewPID(0.15, 0.03, 0.05) // Kp, Ki, Kd
//	pid.SetTolerance(0.5)
//	pid.SetSetpoint(12)
//	power := control.Clamp(pid.Calculate(distance, dt), 0.7)
//
// The correction returned by Calculate is positive when the measurement is
// below the setpoint. Error reports the opposite quantity, the offset of the
// measurement from the setpoint.
package control
