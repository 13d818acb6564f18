package motion

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownParam is returned by SetParam for names the config does not expose.
var ErrUnknownParam = errors.New("motion: unknown parameter")

// Completion selects how a linear drive decides it is done.
type Completion int

const (
	// CompleteOnTolerance finishes once both wheel controllers are at setpoint.
	CompleteOnTolerance Completion = iota
	// CompleteOnSpeed finishes once either clamped wheel output drops below
	// DriveConfig.CompletionSpeed. This also holds on the first tick of a
	// short move, before the controller has ramped up.
	CompleteOnSpeed
)

func (c Completion) String() string {
	if c == CompleteOnSpeed {
		return "speed"
	}
	return "tolerance"
}

func ParseCompletion(s string) (Completion, error) {
	switch s {
	case "", "tolerance":
		return CompleteOnTolerance, nil
	case "speed":
		return CompleteOnSpeed, nil
	}
	return CompleteOnTolerance, fmt.Errorf("motion: unknown completion policy %q", s)
}

// LawKind selects the feedback law a linear drive uses per wheel.
type LawKind int

const (
	LawPID LawKind = iota
	LawBangBang
)

func (l LawKind) String() string {
	if l == LawBangBang {
		return "bangbang"
	}
	return "pid"
}

func ParseLaw(s string) (LawKind, error) {
	switch s {
	case "", "pid":
		return LawPID, nil
	case "bangbang":
		return LawBangBang, nil
	}
	return LawPID, fmt.Errorf("motion: unknown drive law %q", s)
}

type Gains struct {
	Kp float64
	Ki float64
	Kd float64
}

type DriveConfig struct {
	Gains     Gains
	Tolerance float64
	// Speed is the power ceiling applied to each wheel output.
	Speed     float64
	Increment float64

	Completion      Completion
	CompletionSpeed float64

	Law LawKind
	// ReversePower is the bang-bang power used after overshooting.
	ReversePower float64
}

type TurnConfig struct {
	Gains     Gains
	Tolerance float64
	Speed     float64
	// Increment is the heading change in degrees per turn request.
	Increment float64
	MinInput  float64
	MaxInput  float64
}

// Config holds every tunable of the engine. The Sequencer owns one and
// passes it by reference to each command it builds, so edits made between
// ticks apply from the next tick on.
type Config struct {
	Drive DriveConfig
	Turn  TurnConfig
	// MaxTicks is how many advances a command may drive for. The next one
	// abandons it. Zero disables the limit.
	MaxTicks int
}

func DefaultConfig() *Config {
	return &Config{
		Drive: DriveConfig{
			Gains:           Gains{Kp: 0.15, Ki: 0.03, Kd: 0.05},
			Tolerance:       0.5,
			Speed:           0.7,
			Increment:       12,
			Completion:      CompleteOnTolerance,
			CompletionSpeed: 0.25,
			Law:             LawPID,
			ReversePower:    0.3,
		},
		Turn: TurnConfig{
			Gains:     Gains{Kp: 0.02, Ki: 0, Kd: 0.001},
			Tolerance: 5,
			Speed:     0.8,
			Increment: 90,
			MinInput:  -180,
			MaxInput:  180,
		},
	}
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Validate lists settings that leave the engine running but unable to reach
// a target. None of them stop the control loop.
func (c *Config) Validate() []string {
	var warnings []string

	check := func(axis string, g Gains, tol, speed float64) {
		if g.Kp < 0 || g.Ki < 0 || g.Kd < 0 {
			warnings = append(warnings, fmt.Sprintf("%s: negative gain (kp=%g ki=%g kd=%g)", axis, g.Kp, g.Ki, g.Kd))
		}
		if g.Kp == 0 && g.Ki == 0 && g.Kd == 0 {
			warnings = append(warnings, axis+": all gains are zero")
		}
		if tol < 0 {
			warnings = append(warnings, fmt.Sprintf("%s: negative tolerance %g", axis, tol))
		}
		if speed == 0 {
			warnings = append(warnings, axis+": speed ceiling is zero")
		}
	}

	if c.Drive.Law == LawPID {
		check("drive", c.Drive.Gains, c.Drive.Tolerance, c.Drive.Speed)
	} else if c.Drive.Tolerance < 0 {
		warnings = append(warnings, fmt.Sprintf("drive: negative tolerance %g", c.Drive.Tolerance))
	}
	check("turn", c.Turn.Gains, c.Turn.Tolerance, c.Turn.Speed)

	if c.Drive.Completion == CompleteOnSpeed && c.Drive.CompletionSpeed > c.Drive.Speed {
		warnings = append(warnings, "drive: completion speed above ceiling, moves finish immediately")
	}
	if c.Turn.MaxInput <= c.Turn.MinInput {
		warnings = append(warnings, fmt.Sprintf("turn: empty heading range [%g, %g)", c.Turn.MinInput, c.Turn.MaxInput))
	}
	if c.MaxTicks < 0 {
		warnings = append(warnings, "max_ticks is negative")
	}
	return warnings
}

func (c *Config) fields() map[string]*float64 {
	return map[string]*float64{
		"drive.kp":               &c.Drive.Gains.Kp,
		"drive.ki":               &c.Drive.Gains.Ki,
		"drive.kd":               &c.Drive.Gains.Kd,
		"drive.tolerance":        &c.Drive.Tolerance,
		"drive.speed":            &c.Drive.Speed,
		"drive.increment":        &c.Drive.Increment,
		"drive.completion_speed": &c.Drive.CompletionSpeed,
		"drive.reverse_power":    &c.Drive.ReversePower,
		"turn.kp":                &c.Turn.Gains.Kp,
		"turn.ki":                &c.Turn.Gains.Ki,
		"turn.kd":                &c.Turn.Gains.Kd,
		"turn.tolerance":         &c.Turn.Tolerance,
		"turn.speed":             &c.Turn.Speed,
		"turn.increment":         &c.Turn.Increment,
		"turn.min_input":         &c.Turn.MinInput,
		"turn.max_input":         &c.Turn.MaxInput,
	}
}

// Params returns every numeric tunable by dotted name.
func (c *Config) Params() map[string]float64 {
	out := make(map[string]float64)
	for name, ptr := range c.fields() {
		out[name] = *ptr
	}
	out["max_ticks"] = float64(c.MaxTicks)
	return out
}

// ParamNames returns the tunable names in sorted order.
func (c *Config) ParamNames() []string {
	names := make([]string, 0, len(c.fields())+1)
	for name := range c.fields() {
		names = append(names, name)
	}
	names = append(names, "max_ticks")
	sort.Strings(names)
	return names
}

func (c *Config) SetParam(name string, value float64) error {
	if name == "max_ticks" {
		c.MaxTicks = int(value)
		return nil
	}
	ptr, ok := c.fields()[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	*ptr = value
	return nil
}
