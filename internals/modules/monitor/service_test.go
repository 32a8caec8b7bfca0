package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sentinel/internals/modules/probe"
	"sentinel/pkg/apperror"
)

type memStore struct {
	monitors map[uuid.UUID]Monitor
}

func newMemStore() *memStore {
	return &memStore{monitors: make(map[uuid.UUID]Monitor)}
}

func (s *memStore) CreateMonitor(ctx context.Context, m Monitor) error {
	for _, e := range s.monitors {
		if e.Name == m.Name {
			return apperror.New(apperror.AlreadyExists, "test.create", nil)
		}
	}
	s.monitors[m.ID] = m
	return nil
}

func (s *memStore) GetMonitor(ctx context.Context, id uuid.UUID) (Monitor, error) {
	m, ok := s.monitors[id]
	if !ok {
		return Monitor{}, apperror.New(apperror.NotFound, "test.get", nil)
	}
	return m, nil
}

func (s *memStore) ListMonitors(ctx context.Context) ([]Monitor, error) {
	out := make([]Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		out = append(out, m)
	}
	return out, nil
}

func (s *memStore) UpdateMonitor(ctx context.Context, m Monitor) error {
	if _, ok := s.monitors[m.ID]; !ok {
		return apperror.New(apperror.NotFound, "test.update", nil)
	}
	s.monitors[m.ID] = m
	return nil
}

func (s *memStore) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	m, ok := s.monitors[id]
	if !ok {
		return apperror.New(apperror.NotFound, "test.enable", nil)
	}
	m.Enabled = enabled
	s.monitors[id] = m
	return nil
}

func (s *memStore) DeleteMonitor(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.monitors[id]; !ok {
		return apperror.New(apperror.NotFound, "test.delete", nil)
	}
	delete(s.monitors, id)
	return nil
}

func (s *memStore) History(ctx context.Context, id uuid.UUID, limit int) ([]probe.Result, error) {
	return nil, nil
}

func (s *memStore) Stats(ctx context.Context, id uuid.UUID, since time.Time) (Stats, error) {
	return Stats{MonitorID: id}, nil
}

type fakeRegistry struct {
	upserts map[uuid.UUID]Monitor
	removed map[uuid.UUID]bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{upserts: make(map[uuid.UUID]Monitor), removed: make(map[uuid.UUID]bool)}
}

func (r *fakeRegistry) Upsert(m Monitor)    { r.upserts[m.ID] = m }
func (r *fakeRegistry) Remove(id uuid.UUID) { r.removed[id] = true }

type fakeTracker struct {
	statuses map[uuid.UUID]Status
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{statuses: make(map[uuid.UUID]Status)}
}

func (t *fakeTracker) Track(id uuid.UUID) {
	if _, ok := t.statuses[id]; !ok {
		t.statuses[id] = NewStatus(time.Now())
	}
}

func (t *fakeTracker) Reset(id uuid.UUID) {
	t.statuses[id] = NewStatus(time.Now())
}

func (t *fakeTracker) Drop(ctx context.Context, id uuid.UUID) {
	delete(t.statuses, id)
}

func (t *fakeTracker) Status(id uuid.UUID) (Status, bool) {
	st, ok := t.statuses[id]
	return st, ok
}

var defaults = Policy{FailureThreshold: 3, RecoveryThreshold: 2}

func newTestService() (*Service, *memStore, *fakeRegistry, *fakeTracker) {
	store := newMemStore()
	reg := newFakeRegistry()
	tr := newFakeTracker()
	logger := zerolog.Nop()
	return NewService(store, reg, tr, defaults, &logger), store, reg, tr
}

func httpCmd(name string) CreateMonitorCmd {
	return CreateMonitorCmd{
		Name:        name,
		Kind:        probe.KindHTTP,
		Target:      "https://example.com/health",
		IntervalSec: 30,
		TimeoutSec:  5,
	}
}

func TestCreateMonitorSchedulesAndTracks(t *testing.T) {
	svc, store, reg, tr := newTestService()

	m, err := svc.CreateMonitor(context.Background(), httpCmd("api"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Policy != defaults {
		t.Errorf("policy = %+v, want defaults %+v", m.Policy, defaults)
	}
	if !m.Enabled {
		t.Error("monitor not enabled by default")
	}
	if _, ok := store.monitors[m.ID]; !ok {
		t.Error("monitor not persisted")
	}
	if _, ok := reg.upserts[m.ID]; !ok {
		t.Error("monitor not registered with the scheduler")
	}
	if st, ok := tr.Status(m.ID); !ok || st.State != StatePending {
		t.Error("monitor not tracked in PENDING")
	}
}

func TestCreateDisabledMonitorNotScheduled(t *testing.T) {
	svc, _, reg, tr := newTestService()

	disabled := false
	cmd := httpCmd("api")
	cmd.Enabled = &disabled

	m, err := svc.CreateMonitor(context.Background(), cmd)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := reg.upserts[m.ID]; ok {
		t.Error("disabled monitor was scheduled")
	}
	if _, ok := tr.Status(m.ID); ok {
		t.Error("disabled monitor is tracked")
	}
}

func TestCreateMonitorRejectsBadTarget(t *testing.T) {
	svc, _, _, _ := newTestService()

	cases := []struct {
		name string
		cmd  CreateMonitorCmd
	}{
		{"http without scheme", CreateMonitorCmd{Name: "a", Kind: probe.KindHTTP, Target: "example.com", IntervalSec: 30, TimeoutSec: 5}},
		{"tcp without port", CreateMonitorCmd{Name: "b", Kind: probe.KindTCP, Target: "example.com", IntervalSec: 30, TimeoutSec: 5}},
		{"unknown kind", CreateMonitorCmd{Name: "c", Kind: "gopher", Target: "example.com", IntervalSec: 30, TimeoutSec: 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateMonitor(context.Background(), tc.cmd)
			if !apperror.IsKind(err, apperror.InvalidInput) {
				t.Errorf("error = %v, want invalid_input", err)
			}
		})
	}
}

func TestPolicyOverrideKeepsDefaultsForZeroFields(t *testing.T) {
	svc, _, _, _ := newTestService()

	cmd := httpCmd("api")
	cmd.Policy = &Policy{DegradedThreshold: 1, LatencyThresholdMs: 250}

	m, err := svc.CreateMonitor(context.Background(), cmd)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Policy.FailureThreshold != defaults.FailureThreshold {
		t.Errorf("failure threshold = %d, want default %d", m.Policy.FailureThreshold, defaults.FailureThreshold)
	}
	if m.Policy.DegradedThreshold != 1 || m.Policy.LatencyThresholdMs != 250 {
		t.Errorf("override lost: %+v", m.Policy)
	}
}

func TestSetEnabledTogglesScheduling(t *testing.T) {
	svc, _, reg, tr := newTestService()
	ctx := context.Background()

	m, err := svc.CreateMonitor(ctx, httpCmd("api"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.SetEnabled(ctx, m.ID, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if !reg.removed[m.ID] {
		t.Error("disable did not remove the monitor from the scheduler")
	}
	if _, ok := tr.Status(m.ID); ok {
		t.Error("disable did not drop the tracked status")
	}

	if err := svc.SetEnabled(ctx, m.ID, true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if st, ok := tr.Status(m.ID); !ok || st.State != StatePending {
		t.Error("re-enable did not restart tracking in PENDING")
	}
}

func TestUpdateMonitorReschedules(t *testing.T) {
	svc, _, reg, _ := newTestService()
	ctx := context.Background()

	m, _ := svc.CreateMonitor(ctx, httpCmd("api"))

	interval := 60
	updated, err := svc.UpdateMonitor(ctx, m.ID, UpdateMonitorCmd{IntervalSec: &interval})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IntervalSec != 60 {
		t.Errorf("interval = %d, want 60", updated.IntervalSec)
	}
	if reg.upserts[m.ID].IntervalSec != 60 {
		t.Error("scheduler did not receive the new config")
	}
}

func TestEnsureMonitorUpdatesByName(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.EnsureMonitor(ctx, httpCmd("api"))
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	cmd := httpCmd("api")
	cmd.IntervalSec = 120
	second, err := svc.EnsureMonitor(ctx, cmd)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}

	if second.ID != first.ID {
		t.Error("ensure created a duplicate instead of updating")
	}
	if store.monitors[first.ID].IntervalSec != 120 {
		t.Errorf("interval = %d, want 120", store.monitors[first.ID].IntervalSec)
	}
}

func TestBootstrapSchedulesEnabledOnly(t *testing.T) {
	svc, _, reg, _ := newTestService()
	ctx := context.Background()

	on, _ := svc.CreateMonitor(ctx, httpCmd("on"))
	disabled := false
	cmdOff := httpCmd("off")
	cmdOff.Enabled = &disabled
	off, _ := svc.CreateMonitor(ctx, cmdOff)

	// simulate a fresh process
	reg.upserts = make(map[uuid.UUID]Monitor)

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, ok := reg.upserts[on.ID]; !ok {
		t.Error("enabled monitor not scheduled on bootstrap")
	}
	if _, ok := reg.upserts[off.ID]; ok {
		t.Error("disabled monitor scheduled on bootstrap")
	}
}
