// Package motion sequences discrete drive and turn commands for a
// two-wheeled robot.
//
// A [Sequencer] is ticked once per control period with the current wheel
// distances, heading and at most one [Direction] request. While idle it
// accepts a request and builds a [Command]: a LinearDrive that moves both
// wheels by the configured increment, or a Rotate that turns the heading by
// the configured increment. While a command runs, further requests are
// dropped. When the command completes or a Reset arrives, the controllers
// are re-baselined against the current readings and the wheels are stopped
// in that same tick.
//
//	seq := motion.NewSequencer(motion.DefaultConfig())
//	for range ticker.C {
//	    w := seq.Tick(motion.Input{Left: l, Right: r, Heading: h, Dt: 0.02, Request: req})
//	    drive.Set(w.Left, w.Right)
//	}
//
// Nothing in this package returns an error from Tick. Ignored requests and
// unusable settings are reported as events to an optional [Observer].
package motion
