package motion

import (
	"log/slog"
)

type EventType int

const (
	EventAccepted EventType = iota + 1
	EventCompleted
	EventCancelled
	EventReset
	EventDropped
	EventMisconfigured
)

func (e EventType) String() string {
	switch e {
	case EventAccepted:
		return "accepted"
	case EventCompleted:
		return "completed"
	case EventCancelled:
		return "cancelled"
	case EventReset:
		return "reset"
	case EventDropped:
		return "dropped"
	case EventMisconfigured:
		return "misconfigured"
	}
	return "unknown"
}

// Event describes a sequencer transition or an ignored condition.
type Event struct {
	Type    EventType
	Tick    uint64
	Kind    Kind
	Request Direction
	Target  float64
	Reason  Reason
	Detail  string
}

// Observer receives sequencer events synchronously from Tick. It must not
// block.
type Observer interface {
	OnEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// LogObserver writes events to a structured logger. Ignored requests and
// misconfiguration go out at warn, everything else at debug.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnEvent(e Event) {
	attrs := []any{
		"event", e.Type.String(),
		"tick", e.Tick,
	}
	if e.Kind != 0 {
		attrs = append(attrs, "command", e.Kind.String(), "target", e.Target)
	}
	if e.Request != None {
		attrs = append(attrs, "request", e.Request.String())
	}
	if e.Reason != ReasonNone {
		attrs = append(attrs, "reason", e.Reason.String())
	}
	if e.Detail != "" {
		attrs = append(attrs, "detail", e.Detail)
	}

	switch e.Type {
	case EventDropped, EventMisconfigured:
		o.logger.Warn("sequencer", attrs...)
	default:
		o.logger.Debug("sequencer", attrs...)
	}
}

// Recorder keeps every event it sees. Useful for drivers that report after
// a run.
type Recorder struct {
	Events []Event
}

func (r *Recorder) OnEvent(e Event) { r.Events = append(r.Events, e) }

// Count returns how many events of the given type were recorded.
func (r *Recorder) Count(t EventType) int {
	n := 0
	for _, e := range r.Events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type multiObserver []Observer

func (m multiObserver) OnEvent(e Event) {
	for _, o := range m {
		o.OnEvent(e)
	}
}
