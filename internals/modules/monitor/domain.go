package monitor

import (
	"time"

	"github.com/google/uuid"

	"sentinel/internals/modules/probe"
)

// State is the operational state derived from check outcomes. A monitor
// starts in PENDING and never returns to it.
type State string

const (
	StatePending  State = "PENDING"
	StateUp       State = "UP"
	StateDegraded State = "DEGRADED"
	StateDown     State = "DOWN"
)

// Policy holds the per-monitor transition thresholds. Zero values fall back
// to the service-wide defaults at registration time, so a stored monitor
// always carries a fully resolved policy.
type Policy struct {
	FailureThreshold   int   `json:"failure_threshold"`
	RecoveryThreshold  int   `json:"recovery_threshold"`
	DegradedThreshold  int   `json:"degraded_threshold"`   // 0 disables DEGRADED
	LatencyThresholdMs int64 `json:"latency_threshold_ms"` // 0 disables slow-success tracking
	AlertOnDegraded    bool  `json:"alert_on_degraded"`
}

type Monitor struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Kind           probe.Kind `json:"kind"`
	Target         string     `json:"target"`
	IntervalSec    int        `json:"interval_sec"`
	TimeoutSec     int        `json:"timeout_sec"`
	ExpectedStatus int        `json:"expected_status,omitempty"`
	Policy         Policy     `json:"policy"`
	Enabled        bool       `json:"enabled"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (m Monitor) Interval() time.Duration {
	return time.Duration(m.IntervalSec) * time.Second
}

func (m Monitor) Timeout() time.Duration {
	return time.Duration(m.TimeoutSec) * time.Second
}

// ProbeTarget projects the monitor onto the input a single check needs.
func (m Monitor) ProbeTarget() probe.Target {
	return probe.Target{
		MonitorID:      m.ID,
		Kind:           m.Kind,
		Address:        m.Target,
		Timeout:        m.Timeout(),
		ExpectedStatus: m.ExpectedStatus,
	}
}

// Status is the live runtime state of a monitor. It is owned by the result
// processor; everyone else reads snapshots.
type Status struct {
	State          State        `json:"state"`
	ConsecSuccess  int          `json:"consecutive_successes"`
	ConsecFailure  int          `json:"consecutive_failures"`
	SlowStreak     int          `json:"slow_streak"`
	LastTransition time.Time    `json:"last_transition"`
	LastCheck      time.Time    `json:"last_check"`
	LastLatencyMs  int64        `json:"last_latency_ms"`
	LastReason     probe.Reason `json:"last_reason,omitempty"`
}

func NewStatus(now time.Time) Status {
	return Status{
		State:          StatePending,
		LastTransition: now,
	}
}

// Stats is an aggregate over a monitor's persisted check history.
type Stats struct {
	MonitorID    uuid.UUID `json:"monitor_id"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	TotalChecks  int64     `json:"total_checks"`
	SuccessCount int64     `json:"success_count"`
	UptimePct    float64   `json:"uptime_pct"`
	AvgLatencyMs float64   `json:"avg_latency_ms"`
	MinLatencyMs int64     `json:"min_latency_ms"`
	MaxLatencyMs int64     `json:"max_latency_ms"`
}
