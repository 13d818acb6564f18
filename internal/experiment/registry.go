package experiment

import (
	"fmt"
	"sort"
)

// Scenario is a named request script with the run length and starting
// heading it was written for.
type Scenario struct {
	Name        string
	Description string
	Script      string
	Duration    float64
	Heading     float64
}

var scenarios = map[string]Scenario{
	"forward": {
		Name:        "forward",
		Description: "one forward step",
		Script:      "F",
		Duration:    4,
	},
	"out-and-back": {
		Name:        "out-and-back",
		Description: "forward then backward to the start",
		Script:      "F,B",
		Duration:    6,
	},
	"square": {
		Name:        "square",
		Description: "four sides and four left turns",
		Script:      "F,L,F,L,F,L,F,L",
		Duration:    16,
	},
	"spin": {
		Name:        "spin",
		Description: "a full turn in quarter steps",
		Script:      "L,L,L,L",
		Duration:    10,
	},
	"interrupt": {
		Name:        "interrupt",
		Description: "a turn pressed mid-drive is dropped, a reset cancels the drive",
		Script:      "F,L@5,X@30,B",
		Duration:    6,
	},
	"wrap": {
		Name:        "wrap",
		Description: "left turns across the +/-180 seam",
		Script:      "L,L",
		Duration:    5,
		Heading:     135,
	},
}

func GetScenario(name string) (Scenario, error) {
	s, ok := scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario: %s", name)
	}
	return s, nil
}

func ListScenarios() []Scenario {
	out := make([]Scenario, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
