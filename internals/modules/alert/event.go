package alert

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"sentinel/internals/modules/monitor"
	"sentinel/internals/modules/probe"
)

// Event describes one state transition worth notifying about.
type Event struct {
	MonitorID   uuid.UUID     `json:"monitor_id"`
	MonitorName string        `json:"monitor_name"`
	Target      string        `json:"target"`
	From        monitor.State `json:"from"`
	To          monitor.State `json:"to"`
	Reason      probe.Reason  `json:"reason,omitempty"`
	LatencyMs   int64         `json:"latency_ms"`
	At          time.Time     `json:"at"`
}

func (e Event) Subject() string {
	return fmt.Sprintf("[sentinel] %s is %s", e.MonitorName, e.To)
}

func (e Event) Body() string {
	msg := fmt.Sprintf("Monitor %q (%s) transitioned %s -> %s at %s.",
		e.MonitorName, e.Target, e.From, e.To, e.At.UTC().Format(time.RFC3339))
	if e.Reason != probe.ReasonNone {
		msg += fmt.Sprintf(" Last failure reason: %s.", e.Reason)
	}
	if e.LatencyMs > 0 {
		msg += fmt.Sprintf(" Last latency: %dms.", e.LatencyMs)
	}
	return msg
}
