package motion

import (
	"github.com/san-kum/padbot/internal/control"
)

type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

type Option func(*Sequencer)

// WithObserver adds an observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(s *Sequencer) {
		if o == nil {
			return
		}
		if s.observer == nil {
			s.observer = o
			return
		}
		if m, ok := s.observer.(multiObserver); ok {
			s.observer = append(m, o)
			return
		}
		s.observer = multiObserver{s.observer, o}
	}
}

// Sequencer runs at most one motion command at a time. Requests that arrive
// while a command runs are dropped, so every discrete move finishes before
// the next one starts.
//
// A Sequencer is driven by a single control loop and is not safe for
// concurrent use.
type Sequencer struct {
	cfg *Config

	leftPID    *control.PID
	rightPID   *control.PID
	headingPID *control.PID
	leftBang   *control.BangBang
	rightBang  *control.BangBang

	active   *Command
	observer Observer
	tick     uint64

	// readings the controllers were last re-baselined against
	baseLeft, baseRight, baseHeading float64
}

func NewSequencer(cfg *Config, opts ...Option) *Sequencer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Sequencer{
		cfg:        cfg,
		leftPID:    control.NewPID(0, 0, 0),
		rightPID:   control.NewPID(0, 0, 0),
		headingPID: control.NewPID(0, 0, 0),
		leftBang:   control.NewBangBang(0, 0, 0),
		rightBang:  control.NewBangBang(0, 0, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.syncControllers()
	s.reportConfig()
	return s
}

// Config returns the live configuration. Changes apply from the next tick,
// to a running command's gains, tolerances and ceilings as well.
func (s *Sequencer) Config() *Config { return s.cfg }

func (s *Sequencer) State() State {
	if s.active != nil {
		return Running
	}
	return Idle
}

// Active returns the running command, or nil when idle.
func (s *Sequencer) Active() *Command { return s.active }

// Ticks returns how many times Tick has been called.
func (s *Sequencer) Ticks() uint64 { return s.tick }

// Baseline returns the readings the controllers were last re-baselined to.
func (s *Sequencer) Baseline() (left, right, heading float64) {
	return s.baseLeft, s.baseRight, s.baseHeading
}

// HeadingController exposes the heading PID for monitoring.
func (s *Sequencer) HeadingController() *control.PID { return s.headingPID }

// WheelControllers exposes the wheel PIDs for monitoring.
func (s *Sequencer) WheelControllers() (left, right *control.PID) {
	return s.leftPID, s.rightPID
}

// Tick performs exactly one state transition and at most one command
// advance, and returns the wheel powers to apply this tick.
func (s *Sequencer) Tick(in Input) Wheels {
	s.tick++
	s.syncControllers()

	if in.Request == Reset {
		if s.active != nil {
			s.emit(Event{Type: EventCancelled, Kind: s.active.Kind, Target: s.active.Target, Request: Reset})
		} else {
			s.emit(Event{Type: EventReset, Request: Reset})
		}
		s.finish(in)
		return Wheels{}
	}

	if s.active != nil {
		if in.Request != None {
			s.emit(Event{Type: EventDropped, Kind: s.active.Kind, Target: s.active.Target, Request: in.Request})
		}

		st := s.active.Advance(in)
		if !st.Complete {
			return st.Output
		}

		s.emit(Event{Type: EventCompleted, Kind: s.active.Kind, Target: s.active.Target, Reason: st.Reason})
		s.finish(in)
		return Wheels{}
	}

	if in.Request != None {
		s.accept(in)
	}
	return Wheels{}
}

// SetParam changes a tunable by name and reports any resulting
// misconfiguration to observers.
func (s *Sequencer) SetParam(name string, value float64) error {
	if err := s.cfg.SetParam(name, value); err != nil {
		return err
	}
	s.syncControllers()
	s.reportConfig()
	return nil
}

func (s *Sequencer) accept(in Input) {
	switch in.Request {
	case Forward, Backward:
		delta := s.cfg.Drive.Increment
		if in.Request == Backward {
			delta = -delta
		}
		left, right := control.Law(s.leftPID), control.Law(s.rightPID)
		if s.cfg.Drive.Law == LawBangBang {
			left, right = s.leftBang, s.rightBang
		}
		s.active = newLinearDrive(s.cfg, delta, in, left, right)

	case TurnLeft, TurnRight:
		delta := s.cfg.Turn.Increment
		if in.Request == TurnRight {
			delta = -delta
		}
		s.active = newRotate(s.cfg, delta, in, s.headingPID)

	default:
		return
	}

	s.emit(Event{Type: EventAccepted, Kind: s.active.Kind, Target: s.active.Target, Request: in.Request})
}

// finish discards the active command and re-baselines every controller to
// the current readings so the next command starts clean.
func (s *Sequencer) finish(in Input) {
	s.active = nil

	heading := in.Heading
	if s.cfg.Turn.MaxInput > s.cfg.Turn.MinInput {
		heading = control.InputModulus(heading, s.cfg.Turn.MinInput, s.cfg.Turn.MaxInput)
	}

	s.leftPID.Reset()
	s.leftPID.SetSetpoint(in.Left)
	s.rightPID.Reset()
	s.rightPID.SetSetpoint(in.Right)
	s.headingPID.Reset()
	s.headingPID.SetSetpoint(heading)
	s.leftBang.Reset()
	s.leftBang.SetSetpoint(in.Left)
	s.rightBang.Reset()
	s.rightBang.SetSetpoint(in.Right)

	s.baseLeft, s.baseRight, s.baseHeading = in.Left, in.Right, heading
}

// syncControllers copies gains and limits from the config into the
// controllers.
func (s *Sequencer) syncControllers() {
	d, t := s.cfg.Drive, s.cfg.Turn

	for _, p := range []*control.PID{s.leftPID, s.rightPID} {
		p.Kp, p.Ki, p.Kd = d.Gains.Kp, d.Gains.Ki, d.Gains.Kd
		p.Tolerance = d.Tolerance
		p.IntegratorLimit = d.Speed
	}
	for _, b := range []*control.BangBang{s.leftBang, s.rightBang} {
		b.Tolerance = d.Tolerance
		b.ForwardPower = d.Speed
		b.ReversePower = d.ReversePower
	}

	h := s.headingPID
	h.Kp, h.Ki, h.Kd = t.Gains.Kp, t.Gains.Ki, t.Gains.Kd
	h.Tolerance = t.Tolerance
	h.IntegratorLimit = t.Speed
	if t.MaxInput > t.MinInput {
		h.EnableContinuousInput(t.MinInput, t.MaxInput)
	} else {
		h.DisableContinuousInput()
	}
}

func (s *Sequencer) reportConfig() {
	for _, w := range s.cfg.Validate() {
		s.emit(Event{Type: EventMisconfigured, Detail: w})
	}
}

func (s *Sequencer) emit(e Event) {
	if s.observer == nil {
		return
	}
	e.Tick = s.tick
	s.observer.OnEvent(e)
}
