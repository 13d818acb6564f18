package motion_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/padbot/internal/control"
	"github.com/san-kum/padbot/internal/motion"
)

const dt = 0.02

var _ = Describe("Sequencer", func() {
	var (
		cfg *motion.Config
		rec *motion.Recorder
		seq *motion.Sequencer
	)

	BeforeEach(func() {
		cfg = motion.DefaultConfig()
		rec = &motion.Recorder{}
		seq = motion.NewSequencer(cfg, motion.WithObserver(rec))
	})

	tick := func(left, right, heading float64, req motion.Direction) motion.Wheels {
		return seq.Tick(motion.Input{Left: left, Right: right, Heading: heading, Dt: dt, Request: req})
	}

	Describe("while idle", func() {
		It("stops the drivetrain when nothing is requested", func() {
			for i := 0; i < 5; i++ {
				Expect(tick(0, 0, 0, motion.None)).To(Equal(motion.Wheels{}))
			}
			Expect(seq.State()).To(Equal(motion.Idle))
			Expect(seq.Ticks()).To(Equal(uint64(5)))
		})

		It("accepts a drive request using the current readings as baseline", func() {
			out := tick(3, 4, 0, motion.Forward)

			Expect(out).To(Equal(motion.Wheels{}))
			Expect(seq.State()).To(Equal(motion.Running))
			Expect(seq.Active().Kind).To(Equal(motion.LinearDrive))

			left, right := seq.WheelControllers()
			Expect(left.Setpoint()).To(Equal(15.0))
			Expect(right.Setpoint()).To(Equal(16.0))
			Expect(rec.Count(motion.EventAccepted)).To(Equal(1))
		})

		It("applies a negative delta for backward", func() {
			tick(10, 10, 0, motion.Backward)
			Expect(seq.Active().Delta).To(Equal(-12.0))
			Expect(seq.Active().Target).To(Equal(-2.0))
		})

		It("turns left by adding the increment and right by subtracting it", func() {
			tick(0, 0, 30, motion.TurnLeft)
			Expect(seq.Active().Target).To(Equal(120.0))

			tick(0, 0, 30, motion.Reset)
			tick(0, 0, 30, motion.TurnRight)
			Expect(seq.Active().Target).To(Equal(-60.0))
		})
	})

	Describe("exclusivity", func() {
		It("drops a turn request issued while a drive is running", func() {
			tick(0, 0, 0, motion.Forward)
			out := tick(0, 0, 0, motion.TurnLeft)

			Expect(seq.State()).To(Equal(motion.Running))
			Expect(seq.Active().Kind).To(Equal(motion.LinearDrive))
			Expect(out.Left).To(BeNumerically(">", 0))
			Expect(rec.Count(motion.EventDropped)).To(Equal(1))
			Expect(rec.Events[len(rec.Events)-1].Request).To(Equal(motion.TurnLeft))
		})

		It("does not queue dropped requests", func() {
			tick(0, 0, 0, motion.Forward)
			tick(0, 0, 0, motion.Backward)
			tick(11.9, 11.9, 0, motion.None)

			Expect(seq.State()).To(Equal(motion.Idle))
			Expect(tick(11.9, 11.9, 0, motion.None)).To(Equal(motion.Wheels{}))
			Expect(seq.State()).To(Equal(motion.Idle))
		})
	})

	Describe("reset", func() {
		It("cancels the running command in the same tick", func() {
			tick(0, 0, 0, motion.Forward)
			tick(1, 1, 0, motion.None)

			out := tick(2, 2, 0, motion.Reset)

			Expect(out).To(Equal(motion.Wheels{}))
			Expect(seq.State()).To(Equal(motion.Idle))
			Expect(seq.Active()).To(BeNil())
			Expect(rec.Count(motion.EventCancelled)).To(Equal(1))
		})

		It("re-baselines so the next command starts from readings after the reset", func() {
			tick(0, 0, 0, motion.Forward)
			tick(3, 3, 0, motion.None)
			tick(5, 5, 0, motion.Reset)

			l, r, _ := seq.Baseline()
			Expect(l).To(Equal(5.0))
			Expect(r).To(Equal(5.0))

			tick(6, 6.5, 0, motion.Forward)
			left, right := seq.WheelControllers()
			Expect(left.Setpoint()).To(Equal(18.0))
			Expect(right.Setpoint()).To(Equal(18.5))
			Expect(left.Integral()).To(BeZero())
		})

		It("re-baselines the heading into the configured range", func() {
			tick(0, 0, 370, motion.Reset)
			_, _, h := seq.Baseline()
			Expect(h).To(BeNumerically("~", 10, 1e-9))
			Expect(rec.Count(motion.EventReset)).To(Equal(1))
		})
	})

	Describe("linear drive", func() {
		It("completes on tolerance and stops the wheels that tick", func() {
			tick(0, 0, 0, motion.Forward)
			Expect(tick(6, 6, 0, motion.None).Left).To(BeNumerically(">", 0))

			out := tick(11.7, 11.8, 0, motion.None)
			Expect(out).To(Equal(motion.Wheels{}))
			Expect(seq.State()).To(Equal(motion.Idle))

			last := rec.Events[len(rec.Events)-1]
			Expect(last.Type).To(Equal(motion.EventCompleted))
			Expect(last.Reason).To(Equal(motion.ReasonReached))
		})

		It("needs both wheels inside tolerance", func() {
			tick(0, 0, 0, motion.Forward)
			out := tick(11.9, 10, 0, motion.None)
			Expect(seq.State()).To(Equal(motion.Running))
			Expect(out.Right).To(BeNumerically(">", 0))
		})

		It("never exceeds the drive ceiling", func() {
			cfg.Drive.Gains.Kp = 10
			tick(0, 0, 0, motion.Backward)
			out := tick(0, 0, 0, motion.None)
			Expect(out.Left).To(Equal(-cfg.Drive.Speed))
			Expect(out.Right).To(Equal(-cfg.Drive.Speed))
		})

		It("finishes once the output first drops under the completion speed", func() {
			cfg.Drive.Gains = motion.Gains{Kp: 0.15, Ki: 0.03, Kd: 0.05}
			cfg.Drive.Speed = 0.7
			cfg.Drive.Increment = 12
			cfg.Drive.Completion = motion.CompleteOnSpeed
			cfg.Drive.CompletionSpeed = 0.25

			ref := control.NewPID(0.15, 0.03, 0.05)
			ref.IntegratorLimit = 0.7
			ref.SetSetpoint(12)

			Expect(tick(0, 0, 0, motion.Forward)).To(Equal(motion.Wheels{}))

			completed := false
			var advances int
			for i := 0; i < 500; i++ {
				distance := 12 - 12*math.Pow(0.9, float64(i))
				want := control.Clamp(ref.Calculate(distance, dt), 0.7)
				out := tick(distance, distance, 0, motion.None)

				if math.Abs(want) < 0.25 {
					Expect(out).To(Equal(motion.Wheels{}))
					Expect(seq.State()).To(Equal(motion.Idle))
					completed = true
					break
				}
				Expect(out.Left).To(BeNumerically("~", want, 1e-12))
				Expect(out.Right).To(BeNumerically("~", want, 1e-12))
				Expect(seq.State()).To(Equal(motion.Running))
				advances++
			}

			Expect(completed).To(BeTrue())
			Expect(advances).To(BeNumerically(">", 1))
			Expect(rec.Events[len(rec.Events)-1].Reason).To(Equal(motion.ReasonSlowed))
		})

		It("drives at fixed power with the bang-bang law", func() {
			cfg.Drive.Law = motion.LawBangBang
			tick(0, 0, 0, motion.Forward)

			out := tick(2, 2, 0, motion.None)
			Expect(out).To(Equal(motion.Wheels{Left: cfg.Drive.Speed, Right: cfg.Drive.Speed}))

			out = tick(13, 13, 0, motion.None)
			Expect(out).To(Equal(motion.Wheels{Left: -cfg.Drive.ReversePower, Right: -cfg.Drive.ReversePower}))

			Expect(tick(12.1, 12.1, 0, motion.None)).To(Equal(motion.Wheels{}))
			Expect(seq.State()).To(Equal(motion.Idle))
		})
	})

	Describe("rotate", func() {
		It("wraps the target and turns the short way", func() {
			tick(0, 0, 170, motion.TurnLeft)
			Expect(seq.Active().Target).To(BeNumerically("~", -100, 1e-9))

			out := tick(0, 0, 170, motion.None)
			Expect(seq.HeadingController().Error()).To(BeNumerically("~", -90, 1e-9))
			Expect(out.Left).To(BeNumerically("~", -cfg.Turn.Speed/2, 1e-9))
			Expect(out.Right).To(BeNumerically("~", cfg.Turn.Speed/2, 1e-9))
		})

		It("keeps its outputs symmetric", func() {
			cfg.Turn.Gains = motion.Gains{Kp: 0.005}
			tick(0, 0, 0, motion.TurnRight)
			out := tick(0, 0, -40, motion.None)
			Expect(out.Left).To(BeNumerically("~", -out.Right, 1e-12))
			Expect(out.Left).To(BeNumerically("~", 0.125, 1e-9))
		})

		It("completes with zero output once at setpoint", func() {
			tick(0, 0, 170, motion.TurnLeft)
			tick(0, 0, -150, motion.None)

			out := tick(0, 0, -97, motion.None)
			Expect(out).To(Equal(motion.Wheels{}))
			Expect(seq.State()).To(Equal(motion.Idle))

			_, _, h := seq.Baseline()
			Expect(h).To(Equal(-97.0))
		})
	})

	Describe("timeouts", func() {
		It("abandons a command after MaxTicks advances", func() {
			cfg.MaxTicks = 3
			tick(0, 0, 0, motion.Forward)
			for i := 0; i < 3; i++ {
				Expect(tick(0, 0, 0, motion.None).Left).To(BeNumerically(">", 0))
				Expect(seq.State()).To(Equal(motion.Running))
			}
			Expect(tick(0, 0, 0, motion.None)).To(Equal(motion.Wheels{}))
			Expect(seq.Active()).To(BeNil())

			Expect(seq.State()).To(Equal(motion.Idle))
			Expect(rec.Events[len(rec.Events)-1].Reason).To(Equal(motion.ReasonTimeout))
		})
	})

	Describe("configuration", func() {
		It("reports misconfiguration without failing", func() {
			bad := motion.DefaultConfig()
			bad.Turn.Speed = 0
			r := &motion.Recorder{}
			s := motion.NewSequencer(bad, motion.WithObserver(r))

			Expect(r.Count(motion.EventMisconfigured)).To(Equal(1))
			Expect(s.Tick(motion.Input{Dt: dt, Request: motion.TurnLeft})).To(Equal(motion.Wheels{}))
			Expect(s.Tick(motion.Input{Dt: dt})).To(Equal(motion.Wheels{}))
		})

		It("applies parameter changes to the running command", func() {
			tick(0, 0, 0, motion.Forward)
			Expect(seq.SetParam("drive.speed", 0.3)).To(Succeed())
			out := tick(0, 0, 0, motion.None)
			Expect(out.Left).To(Equal(0.3))
		})

		It("picks up a turn tolerance written into the live config mid-command", func() {
			tick(0, 0, 0, motion.TurnLeft)
			Expect(seq.State()).To(Equal(motion.Running))

			seq.Config().Turn.Tolerance = 100
			out := tick(0, 0, 0, motion.None)

			Expect(seq.HeadingController().Tolerance).To(Equal(100.0))
			Expect(out).To(Equal(motion.Wheels{}))
			Expect(seq.State()).To(Equal(motion.Idle))
			Expect(rec.Events[len(rec.Events)-1].Reason).To(Equal(motion.ReasonReached))
		})

		It("picks up drive gains written into the live config mid-command", func() {
			tick(0, 0, 0, motion.Forward)
			Expect(tick(0, 0, 0, motion.None).Left).To(BeNumerically(">", 0))

			seq.Config().Drive.Gains = motion.Gains{}
			out := tick(1, 1, 0, motion.None)

			left, _ := seq.WheelControllers()
			Expect(left.Kp).To(BeZero())
			Expect(out).To(Equal(motion.Wheels{}))
			Expect(seq.State()).To(Equal(motion.Running))
		})

		It("flags a negative tolerance set at runtime", func() {
			Expect(seq.SetParam("drive.tolerance", -1)).To(Succeed())
			Expect(rec.Count(motion.EventMisconfigured)).To(Equal(1))
		})

		It("rejects unknown parameters", func() {
			Expect(seq.SetParam("drive.bogus", 1)).To(MatchError(motion.ErrUnknownParam))
		})

		It("fans events out to every observer", func() {
			var seen []motion.EventType
			s := motion.NewSequencer(motion.DefaultConfig(),
				motion.WithObserver(rec),
				motion.WithObserver(motion.ObserverFunc(func(e motion.Event) { seen = append(seen, e.Type) })),
			)
			s.Tick(motion.Input{Dt: dt, Request: motion.Forward})
			Expect(seen).To(Equal([]motion.EventType{motion.EventAccepted}))
			Expect(rec.Count(motion.EventAccepted)).To(Equal(1))
		})
	})
})
