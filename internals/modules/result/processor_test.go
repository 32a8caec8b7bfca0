package result

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sentinel/internals/modules/alert"
	"sentinel/internals/modules/executor"
	"sentinel/internals/modules/metrics"
	"sentinel/internals/modules/monitor"
	"sentinel/internals/modules/probe"
	"sentinel/internals/modules/scheduler"
)

type fakeAppender struct {
	mu       sync.Mutex
	results  []probe.Result
	failures int // fail this many calls before succeeding
	appended chan struct{}
}

func newFakeAppender() *fakeAppender {
	return &fakeAppender{appended: make(chan struct{}, 64)}
}

func (f *fakeAppender) AppendResult(ctx context.Context, r probe.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("storage unavailable")
	}
	f.results = append(f.results, r)
	f.appended <- struct{}{}
	return nil
}

func (f *fakeAppender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

type fakeRescheduler struct {
	completed chan uuid.UUID
}

func newFakeRescheduler() *fakeRescheduler {
	return &fakeRescheduler{completed: make(chan uuid.UUID, 64)}
}

func (f *fakeRescheduler) Completed(id uuid.UUID, gen uint64) {
	f.completed <- id
}

type fakeSink struct {
	events chan alert.Event
}

func newFakeSink() *fakeSink {
	return &fakeSink{events: make(chan alert.Event, 64)}
}

func (f *fakeSink) Dispatch(ev alert.Event) {
	f.events <- ev
}

func testOutcome(m monitor.Monitor, success bool) executor.CheckOutcome {
	r := probe.Result{MonitorID: m.ID, CheckedAt: time.Now(), Success: success, LatencyMs: 12}
	if !success {
		r.Reason = probe.ReasonTimeout
	}
	return executor.CheckOutcome{Job: scheduler.Job{Monitor: m, Gen: 1}, Result: r}
}

func testMon() monitor.Monitor {
	return monitor.Monitor{
		ID:     uuid.New(),
		Name:   "svc",
		Kind:   probe.KindHTTP,
		Target: "https://example.com",
		Policy: monitor.Policy{FailureThreshold: 3, RecoveryThreshold: 2},
	}
}

func startProcessor(t *testing.T, store Appender, sched Rescheduler, sink AlertSink) (*Processor, chan executor.CheckOutcome) {
	t.Helper()
	return startProcessorWithCache(t, store, sched, sink, nil)
}

func startProcessorWithCache(t *testing.T, store Appender, sched Rescheduler, sink AlertSink, cache StatusCache) (*Processor, chan executor.CheckOutcome) {
	t.Helper()
	outcomes := make(chan executor.CheckOutcome, 16)
	logger := zerolog.Nop()
	p := NewProcessor(outcomes, store, sched, cache, sink, metrics.NewAggregator(),
		Config{PersistWorkers: 2, PersistBuffer: 16, AppendRetries: 3}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	p.Run(ctx)
	t.Cleanup(cancel)
	return p, outcomes
}

func TestProcessorAdvancesStateAndReschedules(t *testing.T) {
	store := newFakeAppender()
	sched := newFakeRescheduler()
	sink := newFakeSink()
	p, outcomes := startProcessor(t, store, sched, sink)

	m := testMon()
	p.Track(m.ID)
	outcomes <- testOutcome(m, true)

	select {
	case id := <-sched.completed:
		if id != m.ID {
			t.Errorf("completed for %s, want %s", id, m.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never notified of completion")
	}

	st, ok := p.Status(m.ID)
	if !ok {
		t.Fatal("status missing after processing")
	}
	if st.State != monitor.StateUp {
		t.Errorf("state = %s, want UP", st.State)
	}

	select {
	case ev := <-sink.events:
		if ev.From != monitor.StatePending || ev.To != monitor.StateUp {
			t.Errorf("event = %s->%s, want PENDING->UP", ev.From, ev.To)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no alert event for the initial confirmation")
	}

	select {
	case <-store.appended:
	case <-time.After(2 * time.Second):
		t.Fatal("result never persisted")
	}
	if store.count() != 1 {
		t.Errorf("persisted %d results, want 1", store.count())
	}
}

func TestInFlightResultForRemovedMonitorStillRecorded(t *testing.T) {
	store := newFakeAppender()
	sched := newFakeRescheduler()
	sink := newFakeSink()
	p, outcomes := startProcessor(t, store, sched, sink)

	m := testMon()
	p.Track(m.ID)
	p.Drop(context.Background(), m.ID)
	outcomes <- testOutcome(m, true)

	// completion still flows so the scheduler can clean up
	select {
	case <-sched.completed:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never notified of completion")
	}

	// the result of the in-flight check is recorded regardless
	select {
	case <-store.appended:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight result for removed monitor never persisted")
	}

	// but it drives no state and no alerts
	if _, ok := p.Status(m.ID); ok {
		t.Error("dropped monitor gained a status")
	}
	select {
	case ev := <-sink.events:
		t.Errorf("unexpected alert %s->%s for a dropped monitor", ev.From, ev.To)
	case <-time.After(100 * time.Millisecond):
	}
}

type recordingCache struct {
	block  chan struct{} // when non-nil, StoreStatus waits on it
	stores chan monitor.Status
}

func newRecordingCache() *recordingCache {
	return &recordingCache{stores: make(chan monitor.Status, 64)}
}

func (c *recordingCache) StoreStatus(ctx context.Context, id uuid.UUID, st monitor.Status) error {
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.stores <- st
	return nil
}

func (c *recordingCache) DelStatus(ctx context.Context, id uuid.UUID) error { return nil }

func TestProcessorWritesStatusCache(t *testing.T) {
	store := newFakeAppender()
	sched := newFakeRescheduler()
	cache := newRecordingCache()
	p, outcomes := startProcessorWithCache(t, store, sched, newFakeSink(), cache)

	m := testMon()
	p.Track(m.ID)
	outcomes <- testOutcome(m, true)

	select {
	case st := <-cache.stores:
		if st.State != monitor.StateUp {
			t.Errorf("cached state = %s, want UP", st.State)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("status never written to the cache")
	}
}

func TestCacheOutageDoesNotStallRouting(t *testing.T) {
	store := newFakeAppender()
	sched := newFakeRescheduler()
	cache := newRecordingCache()
	cache.block = make(chan struct{})
	p, outcomes := startProcessorWithCache(t, store, sched, newFakeSink(), cache)

	// with cache writes hanging, every result must still complete promptly
	const n = 8
	for i := 0; i < n; i++ {
		m := testMon()
		p.Track(m.ID)
		outcomes <- testOutcome(m, true)
	}

	for i := 0; i < n; i++ {
		select {
		case <-sched.completed:
		case <-time.After(2 * time.Second):
			t.Fatal("routing stalled behind a blocked cache write")
		}
	}
	close(cache.block)
}

func TestProcessorRetriesPersistence(t *testing.T) {
	store := newFakeAppender()
	store.failures = 2
	sched := newFakeRescheduler()
	p, outcomes := startProcessor(t, store, sched, newFakeSink())

	m := testMon()
	p.Track(m.ID)
	outcomes <- testOutcome(m, true)

	select {
	case <-store.appended:
	case <-time.After(3 * time.Second):
		t.Fatal("result not persisted after transient failures")
	}
	if store.count() != 1 {
		t.Errorf("persisted %d results, want 1", store.count())
	}
}

func TestResetReturnsMonitorToPending(t *testing.T) {
	store := newFakeAppender()
	sched := newFakeRescheduler()
	p, outcomes := startProcessor(t, store, sched, newFakeSink())

	m := testMon()
	p.Track(m.ID)
	outcomes <- testOutcome(m, true)
	<-sched.completed

	st, _ := p.Status(m.ID)
	if st.State != monitor.StateUp {
		t.Fatalf("state = %s, want UP before reset", st.State)
	}

	p.Reset(m.ID)
	st, ok := p.Status(m.ID)
	if !ok {
		t.Fatal("status missing after reset")
	}
	if st.State != monitor.StatePending {
		t.Errorf("state = %s, want PENDING after reset", st.State)
	}
	if st.ConsecSuccess != 0 {
		t.Errorf("consecutive successes = %d, want 0 after reset", st.ConsecSuccess)
	}
}

func TestDropStopsTracking(t *testing.T) {
	store := newFakeAppender()
	sched := newFakeRescheduler()
	p, outcomes := startProcessor(t, store, sched, newFakeSink())

	m := testMon()
	p.Track(m.ID)
	p.Drop(context.Background(), m.ID)

	if _, ok := p.Status(m.ID); ok {
		t.Fatal("status survived drop")
	}

	outcomes <- testOutcome(m, true)
	<-sched.completed
	if _, ok := p.Status(m.ID); ok {
		t.Error("late result revived a dropped monitor")
	}
}
