package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/padbot/internal/motion"
)

const (
	DefaultDt      = 0.02
	DefaultDataDir = ".padbot"
)

var (
	ErrInvalidDt       = errors.New("config: dt must be positive")
	ErrInvalidDuration = errors.New("config: duration must not be negative")
)

// Config is the on-disk run configuration: which scenario to drive, how to
// integrate the plant, the motion tunables and the simulated robot. Script
// replaces the scenario's request script when set. A zero Duration runs for
// the scenario's own length.
type Config struct {
	Scenario   string          `yaml:"scenario"`
	Script     string          `yaml:"script,omitempty"`
	Integrator string          `yaml:"integrator"`
	Dt         float64         `yaml:"dt"`
	Duration   float64         `yaml:"duration"`
	MaxTicks   int             `yaml:"max_ticks"`
	Drive      DriveConfig     `yaml:"drive"`
	Turn       TurnConfig      `yaml:"turn"`
	Robot      RobotConfig     `yaml:"robot"`
	InitState  InitStateConfig `yaml:"init_state"`
}

type DriveConfig struct {
	Kp              float64 `yaml:"kp"`
	Ki              float64 `yaml:"ki"`
	Kd              float64 `yaml:"kd"`
	Tolerance       float64 `yaml:"tolerance"`
	Speed           float64 `yaml:"speed"`
	Increment       float64 `yaml:"increment"`
	Completion      string  `yaml:"completion"`
	CompletionSpeed float64 `yaml:"completion_speed"`
	Law             string  `yaml:"law"`
	ReversePower    float64 `yaml:"reverse_power"`
}

type TurnConfig struct {
	Kp        float64 `yaml:"kp"`
	Ki        float64 `yaml:"ki"`
	Kd        float64 `yaml:"kd"`
	Tolerance float64 `yaml:"tolerance"`
	Speed     float64 `yaml:"speed"`
	Increment float64 `yaml:"increment"`
	MinInput  float64 `yaml:"min_input"`
	MaxInput  float64 `yaml:"max_input"`
}

// RobotConfig describes the simulated drivetrain.
type RobotConfig struct {
	TopSpeed   float64 `yaml:"top_speed"`   // in/s at full power
	Tau        float64 `yaml:"tau"`         // motor time constant, s
	TrackWidth float64 `yaml:"track_width"` // in
	Quantize   bool    `yaml:"quantize"`
}

type InitStateConfig struct {
	Left    float64 `yaml:"left"`
	Right   float64 `yaml:"right"`
	Heading float64 `yaml:"heading"`
}

// Env holds settings read from the process environment.
type Env struct {
	DataDir   string  `env:"PADBOT_DATA_DIR" envDefault:".padbot"`
	LogLevel  string  `env:"PADBOT_LOG_LEVEL" envDefault:"info"`
	LogFormat string  `env:"PADBOT_LOG_FORMAT" envDefault:"text"`
	Dt        float64 `env:"PADBOT_DT"`
}

func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("config: parse env: %w", err)
	}
	return e, nil
}

func DefaultConfig() *Config {
	m := motion.DefaultConfig()
	return &Config{
		Scenario:   "square",
		Integrator: "rk4",
		Dt:         DefaultDt,
		MaxTicks:   m.MaxTicks,
		Drive: DriveConfig{
			Kp:              m.Drive.Gains.Kp,
			Ki:              m.Drive.Gains.Ki,
			Kd:              m.Drive.Gains.Kd,
			Tolerance:       m.Drive.Tolerance,
			Speed:           m.Drive.Speed,
			Increment:       m.Drive.Increment,
			Completion:      m.Drive.Completion.String(),
			CompletionSpeed: m.Drive.CompletionSpeed,
			Law:             m.Drive.Law.String(),
			ReversePower:    m.Drive.ReversePower,
		},
		Turn: TurnConfig{
			Kp:        m.Turn.Gains.Kp,
			Ki:        m.Turn.Gains.Ki,
			Kd:        m.Turn.Gains.Kd,
			Tolerance: m.Turn.Tolerance,
			Speed:     m.Turn.Speed,
			Increment: m.Turn.Increment,
			MinInput:  m.Turn.MinInput,
			MaxInput:  m.Turn.MaxInput,
		},
		Robot: RobotConfig{
			TopSpeed:   24,
			Tau:        0.1,
			TrackWidth: 5.55,
			Quantize:   true,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides file settings with environment settings that were set.
func (c *Config) ApplyEnv(e Env) {
	if e.Dt > 0 {
		c.Dt = e.Dt
	}
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return ErrInvalidDt
	}
	if c.Duration < 0 {
		return ErrInvalidDuration
	}
	return nil
}

// Motion builds the tunables the sequencer runs with.
func (c *Config) Motion() (*motion.Config, error) {
	completion, err := motion.ParseCompletion(c.Drive.Completion)
	if err != nil {
		return nil, err
	}
	law, err := motion.ParseLaw(c.Drive.Law)
	if err != nil {
		return nil, err
	}

	return &motion.Config{
		Drive: motion.DriveConfig{
			Gains:           motion.Gains{Kp: c.Drive.Kp, Ki: c.Drive.Ki, Kd: c.Drive.Kd},
			Tolerance:       c.Drive.Tolerance,
			Speed:           c.Drive.Speed,
			Increment:       c.Drive.Increment,
			Completion:      completion,
			CompletionSpeed: c.Drive.CompletionSpeed,
			Law:             law,
			ReversePower:    c.Drive.ReversePower,
		},
		Turn: motion.TurnConfig{
			Gains:     motion.Gains{Kp: c.Turn.Kp, Ki: c.Turn.Ki, Kd: c.Turn.Kd},
			Tolerance: c.Turn.Tolerance,
			Speed:     c.Turn.Speed,
			Increment: c.Turn.Increment,
			MinInput:  c.Turn.MinInput,
			MaxInput:  c.Turn.MaxInput,
		},
		MaxTicks: c.MaxTicks,
	}, nil
}

// GetInitState returns the plant state the run starts from.
func (c *Config) GetInitState() []float64 {
	return []float64{c.InitState.Left, c.InitState.Right, c.InitState.Heading, 0, 0}
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
