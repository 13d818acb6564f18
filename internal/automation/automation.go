package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/padbot/internal/config"
	"github.com/san-kum/padbot/internal/experiment"
	"github.com/san-kum/padbot/internal/log"
	"github.com/san-kum/padbot/internal/motion"
	"github.com/san-kum/padbot/internal/storage"
)

// Batch is a list of runs read from YAML.
type Batch struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Steps       []BatchStep `yaml:"steps"`
}

// BatchStep overrides the base config for one run. Zero values keep the
// base setting.
type BatchStep struct {
	Scenario   string             `yaml:"scenario"`
	Script     string             `yaml:"script"`
	Preset     string             `yaml:"preset"`
	Integrator string             `yaml:"integrator"`
	Duration   float64            `yaml:"duration"`
	Dt         float64            `yaml:"dt"`
	Params     map[string]float64 `yaml:"params"`
	Save       bool               `yaml:"save"`
}

type StepResult struct {
	Step     int
	Scenario string
	RunID    string
	Ticks    int
	Metrics  map[string]float64
}

func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("automation: parse %s: %w", path, err)
	}
	if len(b.Steps) == 0 {
		return nil, fmt.Errorf("automation: %s has no steps", path)
	}
	return &b, nil
}

func (s BatchStep) config(base *config.Config) (*config.Config, error) {
	cfg := base.Clone()
	if s.Preset != "" {
		if cfg = config.GetPreset(s.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset %q", s.Preset)
		}
	}
	if s.Scenario != "" {
		cfg.Scenario = s.Scenario
	}
	if s.Script != "" {
		cfg.Script = s.Script
		if s.Scenario == "" {
			cfg.Scenario = ""
		}
	}
	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	return cfg, nil
}

// RunBatch executes the steps in order. Steps marked save go to st, which
// may be nil when nothing is saved.
func RunBatch(ctx context.Context, b *Batch, base *config.Config, st *storage.Store) ([]StepResult, error) {
	results := make([]StepResult, 0, len(b.Steps))

	for i, step := range b.Steps {
		cfg, err := step.config(base)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp, err := experiment.New(cfg)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		for k, v := range step.Params {
			if err := exp.SetParam(k, v); err != nil {
				return results, fmt.Errorf("step %d: %s: %w", i+1, k, err)
			}
		}

		sc := exp.Scenario()
		log.Info("batch step", "step", i+1, "of", len(b.Steps), "scenario", sc.Name)

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		res := StepResult{Step: i + 1, Scenario: sc.Name, Ticks: result.Ticks, Metrics: result.Metrics}
		if step.Save {
			if st == nil {
				return results, fmt.Errorf("step %d: no store to save to", i+1)
			}
			res.RunID, err = st.Save(storage.RunInfo{
				Scenario:   sc.Name,
				Script:     sc.Script,
				Integrator: cfg.Integrator,
				Dt:         exp.Dt(),
				Duration:   exp.Duration(),
				Params:     exp.Params(),
			}, result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, res)
	}

	return results, nil
}

// MonteCarloConfig perturbs the simulated drivetrain around the base config
// and checks whether the scenario still finishes every move.
type MonteCarloConfig struct {
	Trials int
	Seed   int64
	// Spread is the relative +/- range applied to top_speed, tau and
	// track_width.
	Spread float64
	// HeadingJitter is the +/- range, in degrees, added to the start heading.
	HeadingJitter float64
	Workers       int
}

type MonteCarloResult struct {
	Trial   int
	Params  map[string]float64
	Metrics map[string]float64
	// Finished is true when every accepted command reached its target.
	Finished bool
	Err      error
}

type perturbation struct {
	params  map[string]float64
	heading float64
}

// RunMonteCarlo runs the scenario under randomly perturbed drivetrains. The
// perturbations are drawn up front so results only depend on Seed.
func RunMonteCarlo(ctx context.Context, base *config.Config, mc MonteCarloConfig) ([]MonteCarloResult, error) {
	if mc.Trials <= 0 {
		return nil, fmt.Errorf("automation: trials must be positive")
	}
	seed := mc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	jitter := func(v float64) float64 {
		return v * (1 + (rng.Float64()-0.5)*2*mc.Spread)
	}
	draws := make([]perturbation, mc.Trials)
	for i := range draws {
		draws[i] = perturbation{
			params: map[string]float64{
				"robot.top_speed":   jitter(base.Robot.TopSpeed),
				"robot.tau":         jitter(base.Robot.Tau),
				"robot.track_width": jitter(base.Robot.TrackWidth),
			},
			heading: (rng.Float64() - 0.5) * 2 * mc.HeadingJitter,
		}
	}

	workers := mc.Workers
	if workers < 1 {
		workers = 4
	}

	results := make([]MonteCarloResult, mc.Trials)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = runTrial(ctx, base, i, draws[i])
			}
		}()
	}

	for i := range draws {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	return results, ctx.Err()
}

func runTrial(ctx context.Context, base *config.Config, trial int, p perturbation) MonteCarloResult {
	res := MonteCarloResult{Trial: trial, Params: p.params}

	cfg := base.Clone()
	cfg.InitState.Heading += p.heading

	exp, err := experiment.New(cfg)
	if err != nil {
		res.Err = err
		return res
	}
	for k, v := range p.params {
		if err := exp.SetParam(k, v); err != nil {
			res.Err = err
			return res
		}
	}

	result, err := exp.Run(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.Metrics = result.Metrics
	res.Finished = finishedAll(result.Events)
	return res
}

// finishedAll reports whether every accepted command reached its target.
// Cancelled and timed out commands do not count.
func finishedAll(events []motion.Event) bool {
	accepted, reached := 0, 0
	for _, e := range events {
		switch {
		case e.Type == motion.EventAccepted:
			accepted++
		case e.Type == motion.EventCompleted && e.Reason != motion.ReasonTimeout:
			reached++
		}
	}
	return accepted > 0 && accepted == reached
}

// MonteCarloStats counts finished and unfinished trials. Failed trials count
// as unfinished.
func MonteCarloStats(results []MonteCarloResult) (finished, unfinished int) {
	for _, r := range results {
		if r.Finished && r.Err == nil {
			finished++
		} else {
			unfinished++
		}
	}
	return
}
