package config

import "sort"

// Presets tune the defaults toward the behaviour of the classic example
// robots: one for each way of driving the Romi.
var Presets = map[string]func(*Config){
	"pad": func(c *Config) {
		c.Scenario = "square"
		c.Drive.Kp, c.Drive.Ki, c.Drive.Kd = 1.0, 0, 0
		c.Drive.Speed = 0.8
		c.Drive.Increment = 12
		c.Turn.Speed = 0.8
		c.Turn.Tolerance = 5
	},
	"position": func(c *Config) {
		c.Scenario = "out-and-back"
		c.Drive.Kp, c.Drive.Ki, c.Drive.Kd = 1.0, 0, 0
		c.Drive.Speed = 0.7
		c.Drive.Completion = "speed"
		c.Drive.CompletionSpeed = 0.05
	},
	"turning": func(c *Config) {
		c.Scenario = "spin"
		c.Turn.Speed = 0.6
		c.Turn.Increment = 90
		c.Turn.Tolerance = 5
	},
	"experiment": func(c *Config) {
		c.Scenario = "forward"
		c.Drive.Kp, c.Drive.Ki, c.Drive.Kd = 1.0, 0, 0
		c.Drive.Speed = 0.8
		c.Drive.Tolerance = 0.5
		c.Duration = 5
	},
	"manual": func(c *Config) {
		c.Scenario = "out-and-back"
		c.Drive.Law = "bangbang"
		c.Drive.Speed = 0.7
		c.Drive.ReversePower = 0.3
		c.Drive.Tolerance = 0.1
	},
}

// GetPreset returns the default config with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
