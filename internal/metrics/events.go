package metrics

import (
	"github.com/san-kum/padbot/internal/motion"
	"github.com/san-kum/padbot/internal/sim"
)

// EventCount counts sequencer events of one type.
type EventCount struct {
	name  string
	typ   motion.EventType
	count int
}

// NewCompleted counts commands that finished, including timeouts.
func NewCompleted() *EventCount {
	return &EventCount{name: "completed", typ: motion.EventCompleted}
}

// NewDropped counts requests ignored because a command was running.
func NewDropped() *EventCount {
	return &EventCount{name: "dropped", typ: motion.EventDropped}
}

func (e *EventCount) Name() string { return e.name }

func (e *EventCount) Observe(s sim.Sample) {
	for _, ev := range s.Events {
		if ev.Type == e.typ {
			e.count++
		}
	}
}

func (e *EventCount) Value() float64 { return float64(e.count) }
func (e *EventCount) Reset()         { e.count = 0 }

// SettleTicks counts ticks spent with a command running. Lower is a faster
// controller for the same script.
type SettleTicks struct {
	ticks int
}

func NewSettleTicks() *SettleTicks { return &SettleTicks{} }

func (s *SettleTicks) Name() string { return "settle_ticks" }

func (s *SettleTicks) Observe(x sim.Sample) {
	if x.Seq == motion.Running {
		s.ticks++
	}
}

func (s *SettleTicks) Value() float64 { return float64(s.ticks) }
func (s *SettleTicks) Reset()         { s.ticks = 0 }
