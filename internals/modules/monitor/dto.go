package monitor

import "time"

type PolicyPayload struct {
	FailureThreshold   int   `json:"failure_threshold" validate:"omitempty,gte=1"`
	RecoveryThreshold  int   `json:"recovery_threshold" validate:"omitempty,gte=1"`
	DegradedThreshold  int   `json:"degraded_threshold" validate:"omitempty,gte=0"`
	LatencyThresholdMs int64 `json:"latency_threshold_ms" validate:"omitempty,gte=0"`
	AlertOnDegraded    bool  `json:"alert_on_degraded"`
}

type CreateMonitorRequest struct {
	Name           string         `json:"name" validate:"required,min=1,max=128"`
	Kind           string         `json:"kind" validate:"required,oneof=http tcp icmp"`
	Target         string         `json:"target" validate:"required"`
	IntervalSec    int            `json:"interval_sec" validate:"required,gte=5"`
	TimeoutSec     int            `json:"timeout_sec" validate:"required,gte=1"`
	ExpectedStatus int            `json:"expected_status" validate:"omitempty,gte=100,lte=599"`
	Policy         *PolicyPayload `json:"policy"`
	Enabled        *bool          `json:"enabled"`
}

type UpdateMonitorRequest struct {
	Name           *string        `json:"name" validate:"omitempty,min=1,max=128"`
	Target         *string        `json:"target" validate:"omitempty,min=1"`
	IntervalSec    *int           `json:"interval_sec" validate:"omitempty,gte=5"`
	TimeoutSec     *int           `json:"timeout_sec" validate:"omitempty,gte=1"`
	ExpectedStatus *int           `json:"expected_status" validate:"omitempty,gte=100,lte=599"`
	Policy         *PolicyPayload `json:"policy"`
}

type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type MonitorResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Kind           string    `json:"kind"`
	Target         string    `json:"target"`
	IntervalSec    int       `json:"interval_sec"`
	TimeoutSec     int       `json:"timeout_sec"`
	ExpectedStatus int       `json:"expected_status,omitempty"`
	Policy         Policy    `json:"policy"`
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toResponse(m Monitor) MonitorResponse {
	return MonitorResponse{
		ID:             m.ID.String(),
		Name:           m.Name,
		Kind:           string(m.Kind),
		Target:         m.Target,
		IntervalSec:    m.IntervalSec,
		TimeoutSec:     m.TimeoutSec,
		ExpectedStatus: m.ExpectedStatus,
		Policy:         m.Policy,
		Enabled:        m.Enabled,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (p *PolicyPayload) toPolicy() *Policy {
	if p == nil {
		return nil
	}
	return &Policy{
		FailureThreshold:   p.FailureThreshold,
		RecoveryThreshold:  p.RecoveryThreshold,
		DegradedThreshold:  p.DegradedThreshold,
		LatencyThresholdMs: p.LatencyThresholdMs,
		AlertOnDegraded:    p.AlertOnDegraded,
	}
}
