package motion

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/padbot/internal/control"
)

func TestSpeedCompletionFiresOnShortMoves(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Drive.Completion = CompleteOnSpeed
	cfg.Drive.Increment = 1

	l, r := control.NewPID(0.15, 0, 0), control.NewPID(0.15, 0, 0)
	cmd := newLinearDrive(cfg, cfg.Drive.Increment, Input{}, l, r)

	// 0.15 * 1 is under the 0.25 threshold before the robot has moved at all
	st := cmd.Advance(Input{Dt: 0.02})
	if !st.Complete || st.Reason != ReasonSlowed {
		t.Errorf("expected immediate completion, got %+v", st)
	}
}

func TestToleranceCompletionWaitsForTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Drive.Increment = 1

	l, r := control.NewPID(0.15, 0, 0), control.NewPID(0.15, 0, 0)
	l.Tolerance, r.Tolerance = 0.1, 0.1
	cmd := newLinearDrive(cfg, cfg.Drive.Increment, Input{}, l, r)

	if st := cmd.Advance(Input{Dt: 0.02}); st.Complete {
		t.Fatalf("tolerance policy should not complete at the start: %+v", st)
	}
	if st := cmd.Advance(Input{Left: 0.95, Right: 0.95, Dt: 0.02}); !st.Complete {
		t.Errorf("expected completion inside tolerance, got %+v", st)
	}
	if cmd.Ticks() != 2 {
		t.Errorf("expected 2 ticks, got %d", cmd.Ticks())
	}
}

func TestRotateRetarget(t *testing.T) {
	cfg := DefaultConfig()
	h := control.NewPID(0.02, 0, 0)
	h.EnableContinuousInput(-180, 180)

	cmd := newRotate(cfg, 90, Input{Heading: 120}, h)
	if math.Abs(cmd.Target+150) > 1e-9 {
		t.Fatalf("expected target -150, got %f", cmd.Target)
	}

	cmd.Retarget(-60)
	if math.Abs(cmd.Target-150) > 1e-9 {
		t.Errorf("expected retargeted heading 150, got %f", cmd.Target)
	}
	if h.Setpoint() != cmd.Target {
		t.Errorf("controller setpoint %f does not follow target %f", h.Setpoint(), cmd.Target)
	}
	if cmd.Delta != 30 {
		t.Errorf("expected accumulated delta 30, got %f", cmd.Delta)
	}
}

func TestRetargetIgnoresDrives(t *testing.T) {
	cfg := DefaultConfig()
	cmd := newLinearDrive(cfg, 12, Input{}, control.NewPID(1, 0, 0), control.NewPID(1, 0, 0))
	cmd.Retarget(5)
	if cmd.Target != 12 {
		t.Errorf("drive target changed: %f", cmd.Target)
	}
}

func TestConfigParams(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.SetParam("turn.increment", 45); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}
	if cfg.Turn.Increment != 45 {
		t.Errorf("expected turn increment 45, got %f", cfg.Turn.Increment)
	}
	if err := cfg.SetParam("max_ticks", 250); err != nil || cfg.MaxTicks != 250 {
		t.Errorf("max_ticks not applied: %v %d", err, cfg.MaxTicks)
	}

	params := cfg.Params()
	if params["drive.kp"] != 0.15 {
		t.Errorf("expected drive.kp 0.15, got %f", params["drive.kp"])
	}
	if len(cfg.ParamNames()) != len(params) {
		t.Errorf("names and params disagree: %d vs %d", len(cfg.ParamNames()), len(params))
	}

	if err := cfg.SetParam("nope", 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("expected ErrUnknownParam, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if w := DefaultConfig().Validate(); len(w) != 0 {
		t.Errorf("default config should be clean, got %v", w)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative gain", func(c *Config) { c.Drive.Gains.Kp = -1 }},
		{"zero gains", func(c *Config) { c.Turn.Gains = Gains{} }},
		{"negative tolerance", func(c *Config) { c.Turn.Tolerance = -0.1 }},
		{"zero ceiling", func(c *Config) { c.Drive.Speed = 0 }},
		{"empty range", func(c *Config) { c.Turn.MaxInput = c.Turn.MinInput }},
		{"completion above ceiling", func(c *Config) {
			c.Drive.Completion = CompleteOnSpeed
			c.Drive.CompletionSpeed = 0.9
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if w := cfg.Validate(); len(w) == 0 {
				t.Error("expected a warning")
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	a := DefaultConfig()
	b := a.Clone()
	b.Drive.Gains.Kp = 9
	if a.Drive.Gains.Kp == 9 {
		t.Error("clone shares state with original")
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
	}{
		{"F", Forward},
		{"backward", Backward},
		{" l ", TurnLeft},
		{"R", TurnRight},
		{"x", Reset},
		{"-", None},
	}

	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseDirection(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseDirection("up"); err == nil {
		t.Error("expected error for unknown direction")
	}
	if !Forward.IsDrive() || Forward.IsTurn() || !TurnRight.IsTurn() {
		t.Error("direction classification wrong")
	}
}

func TestParsePolicies(t *testing.T) {
	if c, err := ParseCompletion("speed"); err != nil || c != CompleteOnSpeed {
		t.Errorf("ParseCompletion(speed) = %v, %v", c, err)
	}
	if _, err := ParseCompletion("eventually"); err == nil {
		t.Error("expected error for unknown completion")
	}
	if l, err := ParseLaw("bangbang"); err != nil || l != LawBangBang {
		t.Errorf("ParseLaw(bangbang) = %v, %v", l, err)
	}
	if LawBangBang.String() != "bangbang" || CompleteOnSpeed.String() != "speed" {
		t.Error("String round trip broken")
	}
}
