// Package result consumes finished checks: it advances monitor state,
// feeds the metrics aggregator, emits alert events, persists history and
// reschedules the next run.
package result

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sentinel/internals/modules/alert"
	"sentinel/internals/modules/executor"
	"sentinel/internals/modules/metrics"
	"sentinel/internals/modules/monitor"
	"sentinel/internals/modules/probe"
	"sentinel/internals/modules/state"
	"sentinel/pkg/utils"
)

const cacheWriteTimeout = 2 * time.Second

// Appender persists one check result.
type Appender interface {
	AppendResult(ctx context.Context, r probe.Result) error
}

// Rescheduler is told when a check finished so the next one can be
// planned a full interval later.
type Rescheduler interface {
	Completed(id uuid.UUID, gen uint64)
}

// StatusCache mirrors the latest status to a shared cache. Optional.
type StatusCache interface {
	StoreStatus(ctx context.Context, id uuid.UUID, st monitor.Status) error
	DelStatus(ctx context.Context, id uuid.UUID) error
}

// AlertSink receives transition events. Optional.
type AlertSink interface {
	Dispatch(ev alert.Event)
}

type Config struct {
	PersistWorkers int
	PersistBuffer  int
	AppendRetries  int
}

// persistItem carries one result to its shard's persist worker, together
// with the status to mirror into the cache once the append is done.
type persistItem struct {
	r       probe.Result
	st      monitor.Status
	tracked bool
}

// Processor owns the live status of every tracked monitor. A single
// router goroutine applies results in arrival order; persistence and
// cache writes fan out to workers sharded by monitor so each monitor's
// history stays ordered and a slow store or cache never stalls routing.
type Processor struct {
	outcomes <-chan executor.CheckOutcome
	store    Appender
	sched    Rescheduler
	cache    StatusCache
	alerts   AlertSink
	agg      *metrics.Aggregator

	mu       sync.RWMutex
	statuses map[uuid.UUID]monitor.Status

	persistChans []chan persistItem
	cfg          Config
	logger       *zerolog.Logger
	wg           sync.WaitGroup
}

func NewProcessor(
	outcomes <-chan executor.CheckOutcome,
	store Appender,
	sched Rescheduler,
	cache StatusCache,
	alerts AlertSink,
	agg *metrics.Aggregator,
	cfg Config,
	logger *zerolog.Logger,
) *Processor {
	if cfg.PersistWorkers <= 0 {
		cfg.PersistWorkers = 4
	}
	if cfg.PersistBuffer <= 0 {
		cfg.PersistBuffer = 64
	}
	if cfg.AppendRetries <= 0 {
		cfg.AppendRetries = 3
	}

	p := &Processor{
		outcomes:     outcomes,
		store:        store,
		sched:        sched,
		cache:        cache,
		alerts:       alerts,
		agg:          agg,
		statuses:     make(map[uuid.UUID]monitor.Status),
		persistChans: make([]chan persistItem, cfg.PersistWorkers),
		cfg:          cfg,
		logger:       logger,
	}
	for i := range p.persistChans {
		p.persistChans[i] = make(chan persistItem, cfg.PersistBuffer)
	}
	return p
}

func (p *Processor) Run(ctx context.Context) {
	for i := range p.persistChans {
		p.wg.Add(1)
		go p.persistWorker(ctx, p.persistChans[i])
	}
	p.wg.Add(1)
	go p.route(ctx)
}

// Wait blocks until the router and all persist workers have exited.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Track starts following a monitor in PENDING state. Idempotent.
func (p *Processor) Track(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.statuses[id]; ok {
		return
	}
	p.statuses[id] = monitor.NewStatus(time.Now())
	p.agg.MonitorAdded(monitor.StatePending)
}

// Reset throws away a monitor's accumulated status and starts it over in
// PENDING. Used when a monitor is re-enabled or reconfigured.
func (p *Processor) Reset(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.statuses[id]; ok {
		p.agg.Transition(st.State, monitor.StatePending)
	} else {
		p.agg.MonitorAdded(monitor.StatePending)
	}
	p.statuses[id] = monitor.NewStatus(time.Now())
}

// Drop stops following a monitor. Late results for it are discarded.
func (p *Processor) Drop(ctx context.Context, id uuid.UUID) {
	p.mu.Lock()
	st, ok := p.statuses[id]
	if ok {
		delete(p.statuses, id)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	p.agg.MonitorRemoved(st.State)

	if p.cache != nil {
		cctx, cancel := context.WithTimeout(ctx, cacheWriteTimeout)
		defer cancel()
		if err := p.cache.DelStatus(cctx, id); err != nil {
			p.logger.Warn().Err(err).Str("monitor_id", id.String()).Msg("failed to clear cached status")
		}
	}
}

// Status returns a snapshot of a tracked monitor's live status.
func (p *Processor) Status(id uuid.UUID) (monitor.Status, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, ok := p.statuses[id]
	return st, ok
}

func (p *Processor) route(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-p.outcomes:
			p.process(ctx, out)
		}
	}
}

func (p *Processor) process(ctx context.Context, out executor.CheckOutcome) {
	m := out.Job.Monitor
	r := out.Result

	// reschedule no matter what happens below; a lost completion would
	// silently stop the monitor's timeline
	defer p.sched.Completed(m.ID, out.Job.Gen)

	p.mu.Lock()
	st, ok := p.statuses[m.ID]
	if !ok {
		p.mu.Unlock()
		// removed while the check was in flight; the result is still
		// recorded, it just no longer drives state or alerts
		p.enqueuePersist(persistItem{r: r})
		return
	}
	prev := st.State
	st, ev := state.Apply(m, st, r)
	p.statuses[m.ID] = st
	p.mu.Unlock()

	p.agg.Observe(r)
	p.agg.Transition(prev, st.State)

	if prev != st.State {
		p.logger.Info().
			Str("monitor_id", m.ID.String()).
			Str("monitor", m.Name).
			Str("from", string(prev)).
			Str("to", string(st.State)).
			Str("reason", string(r.Reason)).
			Msg("monitor state changed")
	}

	if ev != nil && p.alerts != nil {
		p.alerts.Dispatch(*ev)
	}

	p.enqueuePersist(persistItem{r: r, st: st, tracked: true})
}

// enqueuePersist hands the result to its shard's persist worker. Results
// are dropped rather than blocking the router when storage falls behind.
func (p *Processor) enqueuePersist(item persistItem) {
	ch := p.persistChans[utils.Shard(item.r.MonitorID, len(p.persistChans))]
	select {
	case ch <- item:
	default:
		p.logger.Warn().
			Str("monitor_id", item.r.MonitorID.String()).
			Msg("persist buffer full, dropping check result")
	}
}

func (p *Processor) persistWorker(ctx context.Context, ch chan persistItem) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-ch:
			p.retryAppend(ctx, item.r)
			if item.tracked {
				p.writeCache(ctx, item.r.MonitorID, item.st)
			}
		}
	}
}

func (p *Processor) writeCache(ctx context.Context, id uuid.UUID, st monitor.Status) {
	if p.cache == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, cacheWriteTimeout)
	defer cancel()
	if err := p.cache.StoreStatus(cctx, id, st); err != nil {
		p.logger.Warn().Err(err).Str("monitor_id", id.String()).Msg("failed to cache status")
	}
}

func (p *Processor) retryAppend(ctx context.Context, r probe.Result) {
	var err error
	for attempt := 1; attempt <= p.cfg.AppendRetries; attempt++ {
		if err = p.store.AppendResult(ctx, r); err == nil {
			return
		}
		if attempt == p.cfg.AppendRetries {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	p.logger.Error().Err(err).
		Str("monitor_id", r.MonitorID.String()).
		Msg("failed to persist check result, giving up")
}
