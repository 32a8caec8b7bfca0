package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sentinel/internals/modules/monitor"
	"sentinel/internals/modules/probe"
	"sentinel/pkg/apperror"
)

type memStore struct {
	monitors map[uuid.UUID]monitor.Monitor
}

func newMemStore() *memStore {
	return &memStore{monitors: make(map[uuid.UUID]monitor.Monitor)}
}

func (s *memStore) CreateMonitor(ctx context.Context, m monitor.Monitor) error {
	s.monitors[m.ID] = m
	return nil
}

func (s *memStore) GetMonitor(ctx context.Context, id uuid.UUID) (monitor.Monitor, error) {
	m, ok := s.monitors[id]
	if !ok {
		return monitor.Monitor{}, apperror.New(apperror.NotFound, "test.get", nil)
	}
	return m, nil
}

func (s *memStore) ListMonitors(ctx context.Context) ([]monitor.Monitor, error) {
	out := make([]monitor.Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		out = append(out, m)
	}
	return out, nil
}

func (s *memStore) UpdateMonitor(ctx context.Context, m monitor.Monitor) error {
	s.monitors[m.ID] = m
	return nil
}

func (s *memStore) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	m := s.monitors[id]
	m.Enabled = enabled
	s.monitors[id] = m
	return nil
}

func (s *memStore) DeleteMonitor(ctx context.Context, id uuid.UUID) error {
	delete(s.monitors, id)
	return nil
}

func (s *memStore) History(ctx context.Context, id uuid.UUID, limit int) ([]probe.Result, error) {
	return nil, nil
}

func (s *memStore) Stats(ctx context.Context, id uuid.UUID, since time.Time) (monitor.Stats, error) {
	return monitor.Stats{}, nil
}

type nopRegistry struct{}

func (nopRegistry) Upsert(m monitor.Monitor) {}
func (nopRegistry) Remove(id uuid.UUID)      {}

type nopTracker struct{}

func (nopTracker) Track(id uuid.UUID)                     {}
func (nopTracker) Reset(id uuid.UUID)                     {}
func (nopTracker) Drop(ctx context.Context, id uuid.UUID) {}
func (nopTracker) Status(id uuid.UUID) (monitor.Status, bool) {
	return monitor.Status{}, false
}

const seedYAML = `
monitors:
  - name: api
    kind: http
    target: https://example.com/health
    interval_sec: 30
    timeout_sec: 5
    expected_status: 200
    policy:
      failure_threshold: 5
      recovery_threshold: 3
  - name: db
    kind: tcp
    target: db.internal:5432
    interval_sec: 60
    timeout_sec: 3
    enabled: false
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitors.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testLoader(t *testing.T) (*Loader, *memStore) {
	t.Helper()
	store := newMemStore()
	logger := zerolog.Nop()
	svc := monitor.NewService(store, nopRegistry{}, nopTracker{},
		monitor.Policy{FailureThreshold: 3, RecoveryThreshold: 2}, &logger)
	return NewLoader(svc, &logger), store
}

func TestApplyCreatesSeededMonitors(t *testing.T) {
	loader, store := testLoader(t)
	path := writeSeed(t, seedYAML)

	if err := loader.Apply(context.Background(), path); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if len(store.monitors) != 2 {
		t.Fatalf("monitors = %d, want 2", len(store.monitors))
	}

	byName := make(map[string]monitor.Monitor)
	for _, m := range store.monitors {
		byName[m.Name] = m
	}

	api := byName["api"]
	if api.Kind != probe.KindHTTP || api.Policy.FailureThreshold != 5 {
		t.Errorf("api monitor = %+v", api)
	}
	db := byName["db"]
	if db.Kind != probe.KindTCP || db.Enabled {
		t.Errorf("db monitor = %+v", db)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	loader, store := testLoader(t)
	path := writeSeed(t, seedYAML)

	if err := loader.Apply(context.Background(), path); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := loader.Apply(context.Background(), path); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	if len(store.monitors) != 2 {
		t.Errorf("monitors = %d after reapply, want 2", len(store.monitors))
	}
}

func TestApplyUpdatesChangedSpec(t *testing.T) {
	loader, store := testLoader(t)
	path := writeSeed(t, seedYAML)

	if err := loader.Apply(context.Background(), path); err != nil {
		t.Fatalf("apply: %v", err)
	}

	changed := writeSeed(t, `
monitors:
  - name: api
    kind: http
    target: https://example.com/healthz
    interval_sec: 15
    timeout_sec: 5
`)
	if err := loader.Apply(context.Background(), changed); err != nil {
		t.Fatalf("apply changed: %v", err)
	}

	for _, m := range store.monitors {
		if m.Name == "api" {
			if m.Target != "https://example.com/healthz" || m.IntervalSec != 15 {
				t.Errorf("api not updated: %+v", m)
			}
			return
		}
	}
	t.Fatal("api monitor missing")
}

func TestApplyRejectsUnreadableFile(t *testing.T) {
	loader, _ := testLoader(t)
	if err := loader.Apply(context.Background(), "/does/not/exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing seed file")
	}
}

func TestApplyRejectsMalformedYAML(t *testing.T) {
	loader, _ := testLoader(t)
	path := writeSeed(t, "monitors: [not: valid")
	if err := loader.Apply(context.Background(), path); err == nil {
		t.Fatal("expected a parse error")
	}
}
