package monitor

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sentinel/internals/modules/probe"
	"sentinel/pkg/apperror"
)

// Store is the slice of persistence the service needs. Satisfied by the
// storage package.
type Store interface {
	CreateMonitor(ctx context.Context, m Monitor) error
	GetMonitor(ctx context.Context, id uuid.UUID) (Monitor, error)
	ListMonitors(ctx context.Context) ([]Monitor, error)
	UpdateMonitor(ctx context.Context, m Monitor) error
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	DeleteMonitor(ctx context.Context, id uuid.UUID) error
	History(ctx context.Context, id uuid.UUID, limit int) ([]probe.Result, error)
	Stats(ctx context.Context, id uuid.UUID, since time.Time) (Stats, error)
}

// Registry is the scheduler's registration surface.
type Registry interface {
	Upsert(m Monitor)
	Remove(id uuid.UUID)
}

// Tracker is the result processor's status surface.
type Tracker interface {
	Track(id uuid.UUID)
	Reset(id uuid.UUID)
	Drop(ctx context.Context, id uuid.UUID)
	Status(id uuid.UUID) (Status, bool)
}

type CreateMonitorCmd struct {
	Name           string
	Kind           probe.Kind
	Target         string
	IntervalSec    int
	TimeoutSec     int
	ExpectedStatus int
	Policy         *Policy // nil means service defaults
	Enabled        *bool   // nil means enabled
}

type UpdateMonitorCmd struct {
	Name           *string
	Target         *string
	IntervalSec    *int
	TimeoutSec     *int
	ExpectedStatus *int
	Policy         *Policy
}

type Service struct {
	store         Store
	registry      Registry
	tracker       Tracker
	defaultPolicy Policy
	logger        *zerolog.Logger
}

func NewService(store Store, registry Registry, tracker Tracker, defaults Policy, logger *zerolog.Logger) *Service {
	return &Service{
		store:         store,
		registry:      registry,
		tracker:       tracker,
		defaultPolicy: defaults,
		logger:        logger,
	}
}

func (s *Service) CreateMonitor(ctx context.Context, cmd CreateMonitorCmd) (Monitor, error) {
	const op = "service.monitor.create"

	if err := validateTarget(cmd.Kind, cmd.Target); err != nil {
		return Monitor{}, apperror.New(apperror.InvalidInput, op, err).WithMessage(err.Error())
	}

	now := time.Now()
	m := Monitor{
		ID:             uuid.New(),
		Name:           cmd.Name,
		Kind:           cmd.Kind,
		Target:         cmd.Target,
		IntervalSec:    cmd.IntervalSec,
		TimeoutSec:     cmd.TimeoutSec,
		ExpectedStatus: cmd.ExpectedStatus,
		Policy:         s.resolvePolicy(cmd.Policy),
		Enabled:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if cmd.Enabled != nil {
		m.Enabled = *cmd.Enabled
	}

	if err := s.store.CreateMonitor(ctx, m); err != nil {
		return Monitor{}, err
	}

	if m.Enabled {
		s.activate(m)
	}

	s.logger.Info().
		Str("monitor_id", m.ID.String()).
		Str("monitor", m.Name).
		Bool("enabled", m.Enabled).
		Msg("monitor created")
	return m, nil
}

func (s *Service) GetMonitor(ctx context.Context, id uuid.UUID) (Monitor, error) {
	return s.store.GetMonitor(ctx, id)
}

func (s *Service) ListMonitors(ctx context.Context) ([]Monitor, error) {
	return s.store.ListMonitors(ctx)
}

// UpdateMonitor applies the non-nil fields of cmd. When the monitor is
// enabled the scheduler picks up the new config immediately; accumulated
// status survives the update.
func (s *Service) UpdateMonitor(ctx context.Context, id uuid.UUID, cmd UpdateMonitorCmd) (Monitor, error) {
	const op = "service.monitor.update"

	m, err := s.store.GetMonitor(ctx, id)
	if err != nil {
		return Monitor{}, err
	}

	if cmd.Name != nil {
		m.Name = *cmd.Name
	}
	if cmd.Target != nil {
		m.Target = *cmd.Target
	}
	if cmd.IntervalSec != nil {
		m.IntervalSec = *cmd.IntervalSec
	}
	if cmd.TimeoutSec != nil {
		m.TimeoutSec = *cmd.TimeoutSec
	}
	if cmd.ExpectedStatus != nil {
		m.ExpectedStatus = *cmd.ExpectedStatus
	}
	if cmd.Policy != nil {
		m.Policy = s.resolvePolicy(cmd.Policy)
	}
	m.UpdatedAt = time.Now()

	if err := validateTarget(m.Kind, m.Target); err != nil {
		return Monitor{}, apperror.New(apperror.InvalidInput, op, err).WithMessage(err.Error())
	}

	if err := s.store.UpdateMonitor(ctx, m); err != nil {
		return Monitor{}, err
	}

	if m.Enabled {
		s.registry.Upsert(m)
	}
	return m, nil
}

// SetEnabled pauses or resumes checking. Re-enabling starts the monitor
// over in PENDING with a fresh status.
func (s *Service) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	m, err := s.store.GetMonitor(ctx, id)
	if err != nil {
		return err
	}
	if m.Enabled == enabled {
		return nil
	}

	if err := s.store.SetEnabled(ctx, id, enabled); err != nil {
		return err
	}

	if enabled {
		m.Enabled = true
		s.tracker.Reset(id)
		s.registry.Upsert(m)
	} else {
		s.registry.Remove(id)
		s.tracker.Drop(ctx, id)
	}

	s.logger.Info().
		Str("monitor_id", id.String()).
		Bool("enabled", enabled).
		Msg("monitor toggled")
	return nil
}

func (s *Service) DeleteMonitor(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteMonitor(ctx, id); err != nil {
		return err
	}
	s.registry.Remove(id)
	s.tracker.Drop(ctx, id)

	s.logger.Info().Str("monitor_id", id.String()).Msg("monitor deleted")
	return nil
}

// RuntimeStatus returns the live status of an enabled monitor.
func (s *Service) RuntimeStatus(ctx context.Context, id uuid.UUID) (Status, error) {
	const op = "service.monitor.runtime_status"

	if _, err := s.store.GetMonitor(ctx, id); err != nil {
		return Status{}, err
	}
	st, ok := s.tracker.Status(id)
	if !ok {
		return Status{}, apperror.New(apperror.Conflict, op, errors.New("monitor disabled")).
			WithMessage("monitor is disabled, no live status")
	}
	return st, nil
}

func (s *Service) History(ctx context.Context, id uuid.UUID, limit int) ([]probe.Result, error) {
	if _, err := s.store.GetMonitor(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.store.History(ctx, id, limit)
}

func (s *Service) Stats(ctx context.Context, id uuid.UUID, window time.Duration) (Stats, error) {
	if _, err := s.store.GetMonitor(ctx, id); err != nil {
		return Stats{}, err
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return s.store.Stats(ctx, id, time.Now().Add(-window))
}

// EnsureMonitor creates the monitor or, when one with the same name
// already exists, updates it in place. Used by the seed loader.
func (s *Service) EnsureMonitor(ctx context.Context, cmd CreateMonitorCmd) (Monitor, error) {
	existing, err := s.store.ListMonitors(ctx)
	if err != nil {
		return Monitor{}, err
	}

	for _, m := range existing {
		if m.Name != cmd.Name {
			continue
		}
		upd := UpdateMonitorCmd{
			Target:         &cmd.Target,
			IntervalSec:    &cmd.IntervalSec,
			TimeoutSec:     &cmd.TimeoutSec,
			ExpectedStatus: &cmd.ExpectedStatus,
			Policy:         cmd.Policy,
		}
		updated, err := s.UpdateMonitor(ctx, m.ID, upd)
		if err != nil {
			return Monitor{}, err
		}
		if cmd.Enabled != nil && *cmd.Enabled != updated.Enabled {
			if err := s.SetEnabled(ctx, m.ID, *cmd.Enabled); err != nil {
				return Monitor{}, err
			}
			updated.Enabled = *cmd.Enabled
		}
		return updated, nil
	}

	return s.CreateMonitor(ctx, cmd)
}

// Bootstrap loads persisted monitors and puts the enabled ones on the
// schedule. Every monitor restarts in PENDING; history stays in storage.
func (s *Service) Bootstrap(ctx context.Context) error {
	monitors, err := s.store.ListMonitors(ctx)
	if err != nil {
		return err
	}

	var started int
	for _, m := range monitors {
		if !m.Enabled {
			continue
		}
		s.activate(m)
		started++
	}

	s.logger.Info().
		Int("total", len(monitors)).
		Int("scheduled", started).
		Msg("monitors bootstrapped")
	return nil
}

func (s *Service) activate(m Monitor) {
	s.tracker.Track(m.ID)
	s.registry.Upsert(m)
}

// resolvePolicy fills the zero fields of an override from the service
// defaults, so stored monitors always carry complete thresholds.
func (s *Service) resolvePolicy(override *Policy) Policy {
	if override == nil {
		return s.defaultPolicy
	}
	pol := *override
	if pol.FailureThreshold <= 0 {
		pol.FailureThreshold = s.defaultPolicy.FailureThreshold
	}
	if pol.RecoveryThreshold <= 0 {
		pol.RecoveryThreshold = s.defaultPolicy.RecoveryThreshold
	}
	return pol
}

func validateTarget(kind probe.Kind, target string) error {
	switch kind {
	case probe.KindHTTP:
		u, err := url.Parse(target)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("http target must be an absolute http(s) URL")
		}
	case probe.KindTCP:
		if !strings.Contains(target, ":") {
			return errors.New("tcp target must be host:port")
		}
	case probe.KindICMP:
		if target == "" {
			return errors.New("icmp target must be a hostname or IP")
		}
	default:
		return errors.New("kind must be one of http, tcp, icmp")
	}
	return nil
}
