package probe

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindHTTP Kind = "http"
	KindTCP  Kind = "tcp"
	KindICMP Kind = "icmp"
)

// Reason enumerates why a check failed. Probe failures are data, not
// errors; nothing above the prober ever sees a raw network error.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonTimeout     Reason = "timeout"
	ReasonConnRefused Reason = "connection_refused"
	ReasonDNSFailure  Reason = "dns_failure"
	ReasonAssertion   Reason = "assertion_failure"
	ReasonUnknown     Reason = "unknown"
)

// Target is the slice of a monitor's config a single check execution needs.
type Target struct {
	MonitorID      uuid.UUID
	Kind           Kind
	Address        string // URL for http, host:port for tcp, hostname/IP for icmp
	Timeout        time.Duration
	ExpectedStatus int // http only; 0 means any 2xx
}

// Result is the immutable outcome of one check execution.
type Result struct {
	MonitorID  uuid.UUID `json:"monitor_id"`
	CheckedAt  time.Time `json:"checked_at"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"status_code,omitempty"`
	LatencyMs  int64     `json:"latency_ms"`
	Reason     Reason    `json:"reason,omitempty"`
}
