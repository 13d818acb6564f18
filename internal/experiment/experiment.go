package experiment

import (
	"context"
	"strings"

	"github.com/san-kum/padbot/internal/config"
	"github.com/san-kum/padbot/internal/drivetrain"
	"github.com/san-kum/padbot/internal/integrators"
	"github.com/san-kum/padbot/internal/metrics"
	"github.com/san-kum/padbot/internal/motion"
	"github.com/san-kum/padbot/internal/sim"
)

// Experiment binds a run configuration to a scenario, a simulated Romi and
// an integrator. Each Run starts from a fresh sequencer.
type Experiment struct {
	cfg      *config.Config
	scenario Scenario
	motion   *motion.Config
	plant    *drivetrain.Romi
	opts     []motion.Option
}

func New(cfg *config.Config, opts ...motion.Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var sc Scenario
	if cfg.Scenario == "" && cfg.Script != "" {
		sc = Scenario{Name: "custom", Duration: 10}
	} else {
		var err error
		if sc, err = GetScenario(cfg.Scenario); err != nil {
			return nil, err
		}
	}
	if cfg.Script != "" {
		sc.Script = cfg.Script
	}
	if _, err := ParseScript(sc.Script); err != nil {
		return nil, err
	}
	if _, err := integrators.Get(cfg.Integrator); err != nil {
		return nil, err
	}

	m, err := cfg.Motion()
	if err != nil {
		return nil, err
	}

	plant := drivetrain.NewRomi()
	if cfg.Robot.TopSpeed > 0 {
		plant.TopSpeed = cfg.Robot.TopSpeed
	}
	if cfg.Robot.Tau > 0 {
		plant.Tau = cfg.Robot.Tau
	}
	if cfg.Robot.TrackWidth > 0 {
		plant.TrackWidth = cfg.Robot.TrackWidth
	}
	plant.Quantize = cfg.Robot.Quantize

	return &Experiment{
		cfg:      cfg,
		scenario: sc,
		motion:   m,
		plant:    plant,
		opts:     opts,
	}, nil
}

func (e *Experiment) Scenario() Scenario { return e.scenario }

func (e *Experiment) Motion() *motion.Config { return e.motion }

func (e *Experiment) Plant() *drivetrain.Romi { return e.plant }

func (e *Experiment) Dt() float64 { return e.cfg.Dt }

func (e *Experiment) Duration() float64 {
	if e.cfg.Duration > 0 {
		return e.cfg.Duration
	}
	return e.scenario.Duration
}

// InitState is the configured start state turned by the scenario heading.
func (e *Experiment) InitState() sim.State {
	x0 := sim.State(e.cfg.GetInitState())
	x0[drivetrain.Heading] += e.scenario.Heading
	return x0
}

// SetParam sets a motion tunable, or a plant parameter when prefixed with
// "robot.".
func (e *Experiment) SetParam(name string, value float64) error {
	if rest, ok := strings.CutPrefix(name, "robot."); ok {
		return e.plant.SetParam(rest, value)
	}
	return e.motion.SetParam(name, value)
}

// Params returns the motion tunables and the plant parameters.
func (e *Experiment) Params() map[string]float64 {
	out := e.motion.Params()
	for k, v := range e.plant.GetParams() {
		out["robot."+k] = v
	}
	return out
}

// Build returns a simulator with a fresh sequencer over a copy of the
// motion config.
func (e *Experiment) Build(extra ...motion.Option) (*sim.Simulator, error) {
	integ, err := integrators.Get(e.cfg.Integrator)
	if err != nil {
		return nil, err
	}
	opts := append(append([]motion.Option{}, e.opts...), extra...)
	return sim.New(e.plant, integ, e.motion.Clone(), opts...), nil
}

// Run drives the scenario script to the end with the default metrics.
// Observers see every sample as it is produced.
func (e *Experiment) Run(ctx context.Context, observers ...sim.Observer) (*sim.Result, error) {
	s, err := e.Build()
	if err != nil {
		return nil, err
	}
	for _, m := range metrics.Default(e.motion.Drive.Speed) {
		s.AddMetric(m)
	}
	for _, o := range observers {
		s.AddObserver(o)
	}

	script, err := ParseScript(e.scenario.Script)
	if err != nil {
		return nil, err
	}

	return s.Run(ctx, e.InitState(), script, sim.Config{
		Dt:       e.cfg.Dt,
		Duration: e.Duration(),
	})
}
