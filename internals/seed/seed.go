// Package seed loads monitor definitions from a YAML file, so a fleet can
// be declared in version control instead of registered one by one over the
// API.
package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"sentinel/internals/modules/monitor"
	"sentinel/internals/modules/probe"
)

type policySpec struct {
	FailureThreshold   int   `yaml:"failure_threshold"`
	RecoveryThreshold  int   `yaml:"recovery_threshold"`
	DegradedThreshold  int   `yaml:"degraded_threshold"`
	LatencyThresholdMs int64 `yaml:"latency_threshold_ms"`
	AlertOnDegraded    bool  `yaml:"alert_on_degraded"`
}

type monitorSpec struct {
	Name           string      `yaml:"name"`
	Kind           string      `yaml:"kind"`
	Target         string      `yaml:"target"`
	IntervalSec    int         `yaml:"interval_sec"`
	TimeoutSec     int         `yaml:"timeout_sec"`
	ExpectedStatus int         `yaml:"expected_status"`
	Policy         *policySpec `yaml:"policy"`
	Enabled        *bool       `yaml:"enabled"`
}

type seedFile struct {
	Monitors []monitorSpec `yaml:"monitors"`
}

// Loader applies a seed file through the monitor service. Monitors are
// matched by name; reapplying the same file is idempotent.
type Loader struct {
	svc    *monitor.Service
	logger *zerolog.Logger
}

func NewLoader(svc *monitor.Service, logger *zerolog.Logger) *Loader {
	return &Loader{svc: svc, logger: logger}
}

func (l *Loader) Apply(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	var applied, failed int
	for _, spec := range f.Monitors {
		if _, err := l.svc.EnsureMonitor(ctx, toCmd(spec)); err != nil {
			l.logger.Error().Err(err).Str("monitor", spec.Name).Msg("failed to apply seeded monitor")
			failed++
			continue
		}
		applied++
	}

	l.logger.Info().
		Str("path", path).
		Int("applied", applied).
		Int("failed", failed).
		Msg("seed file applied")

	if failed > 0 && applied == 0 {
		return fmt.Errorf("seed file %s: all %d monitors failed to apply", path, failed)
	}
	return nil
}

func toCmd(spec monitorSpec) monitor.CreateMonitorCmd {
	cmd := monitor.CreateMonitorCmd{
		Name:           spec.Name,
		Kind:           probe.Kind(spec.Kind),
		Target:         spec.Target,
		IntervalSec:    spec.IntervalSec,
		TimeoutSec:     spec.TimeoutSec,
		ExpectedStatus: spec.ExpectedStatus,
		Enabled:        spec.Enabled,
	}
	if spec.Policy != nil {
		cmd.Policy = &monitor.Policy{
			FailureThreshold:   spec.Policy.FailureThreshold,
			RecoveryThreshold:  spec.Policy.RecoveryThreshold,
			DegradedThreshold:  spec.Policy.DegradedThreshold,
			LatencyThresholdMs: spec.Policy.LatencyThresholdMs,
			AlertOnDegraded:    spec.Policy.AlertOnDegraded,
		}
	}
	return cmd
}
