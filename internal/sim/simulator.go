package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/padbot/internal/motion"
)

// Simulator closes the loop between a Sequencer and a simulated plant. Each
// tick it reads the sensors, hands the scripted request to the sequencer and
// integrates the plant under the returned wheel powers.
type Simulator struct {
	plant      Plant
	integrator Integrator
	seq        *motion.Sequencer
	events     *motion.Recorder
	metrics    []Metric
	observers  []Observer
}

// New builds a simulator around a fresh sequencer using cfg. Extra options
// are passed through to the sequencer.
func New(plant Plant, integrator Integrator, cfg *motion.Config, opts ...motion.Option) *Simulator {
	rec := &motion.Recorder{}
	opts = append([]motion.Option{motion.WithObserver(rec)}, opts...)
	return &Simulator{
		plant:      plant,
		integrator: integrator,
		seq:        motion.NewSequencer(cfg, opts...),
		events:     rec,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Sequencer() *motion.Sequencer { return s.seq }

func (s *Simulator) Run(ctx context.Context, x0 State, script Script, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if script == nil {
		return nil, ErrNoScript
	}

	steps := int(cfg.Duration/cfg.Dt + 1e-9)
	result := &Result{
		States:   make([]State, 0, steps+1),
		Wheels:   make([]motion.Wheels, 0, steps),
		Seq:      make([]motion.State, 0, steps),
		Requests: make([]motion.Direction, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	st := s.stepper(x0, cfg.Dt)
	result.States = append(result.States, st.x.Clone())
	result.Times = append(result.Times, st.t)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.finish(result)
			return result, ctx.Err()
		default:
		}

		sample, err := st.Step(script.Request(i, s.seq.State()))

		for _, m := range s.metrics {
			m.Observe(sample)
		}
		for _, obs := range s.observers {
			obs.OnStep(sample)
		}
		result.Events = append(result.Events, sample.Events...)

		if err != nil {
			s.finish(result)
			return result, err
		}

		result.Ticks++
		result.States = append(result.States, st.x.Clone())
		result.Wheels = append(result.Wheels, sample.Output)
		result.Seq = append(result.Seq, sample.Seq)
		result.Requests = append(result.Requests, sample.Request)
		result.Times = append(result.Times, st.t)
	}

	s.finish(result)
	return result, nil
}

func (s *Simulator) finish(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w, got %f", ErrInvalidDt, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w, got %f", ErrInvalidDuration, cfg.Duration)
	}
	return nil
}

// Stepper advances the loop one tick per call, for drivers that keep their
// own clock such as the live teleop.
type Stepper struct {
	sim  *Simulator
	x    State
	t    float64
	dt   float64
	tick int
}

func (s *Simulator) NewStepper(x0 State, dt float64) (*Stepper, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("%w, got %f", ErrInvalidDt, dt)
	}
	return s.stepper(x0, dt), nil
}

func (s *Simulator) stepper(x0 State, dt float64) *Stepper {
	s.events.Events = nil
	return &Stepper{
		sim: s,
		x:   x0.Clone(),
		dt:  dt,
	}
}

// Step runs one tick with req as the operator request. The returned sample
// describes the state the tick started from.
func (st *Stepper) Step(req motion.Direction) (Sample, error) {
	s := st.sim

	r := s.plant.Sensors(st.x)
	out := s.seq.Tick(motion.Input{
		Left:    r.Left,
		Right:   r.Right,
		Heading: r.Heading,
		Dt:      st.dt,
		Request: req,
	})

	sample := Sample{
		Tick:     st.tick,
		Time:     st.t,
		State:    st.x,
		Readings: r,
		Request:  req,
		Output:   out,
		Seq:      s.seq.State(),
		Active:   s.seq.Active(),
		Events:   s.events.Events,
	}
	// the sample keeps this tick's events; the recorder starts a fresh slice
	s.events.Events = nil

	newX := s.integrator.Step(s.plant, st.x, Control{out.Left, out.Right}, st.t, st.dt)
	if !newX.IsValid() {
		return sample, &TickError{Tick: st.tick, Time: st.t, Wrapped: ErrInvalidState}
	}

	st.x = newX
	st.t += st.dt
	st.tick++
	return sample, nil
}

func (st *Stepper) State() State  { return st.x }
func (st *Stepper) Time() float64 { return st.t }
func (st *Stepper) Tick() int     { return st.tick }
