package executor

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"sentinel/internals/modules/probe"
	"sentinel/internals/modules/scheduler"
)

// Prober runs a single check. Satisfied by the probe package's Prober.
type Prober interface {
	Execute(ctx context.Context, t probe.Target) probe.Result
}

// CheckOutcome pairs a finished check with the job that requested it, so
// downstream consumers can reschedule against the right generation.
type CheckOutcome struct {
	Job    scheduler.Job
	Result probe.Result
}

type Config struct {
	Workers             int
	MaxConcurrentProbes int64
	ResultBuffer        int
}

// Executor drains the scheduler's job stream through a worker pool. The
// semaphore caps in-flight network probes independently of the worker
// count, so a burst of slow targets can't exhaust sockets.
type Executor struct {
	jobs    <-chan scheduler.Job
	prober  Prober
	sem     *semaphore.Weighted
	results chan CheckOutcome
	cfg     Config
	logger  *zerolog.Logger
	wg      sync.WaitGroup
}

func New(jobs <-chan scheduler.Job, prober Prober, cfg Config, logger *zerolog.Logger) *Executor {
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.MaxConcurrentProbes <= 0 {
		cfg.MaxConcurrentProbes = int64(cfg.Workers)
	}
	if cfg.ResultBuffer <= 0 {
		cfg.ResultBuffer = 256
	}
	return &Executor{
		jobs:    jobs,
		prober:  prober,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrentProbes),
		results: make(chan CheckOutcome, cfg.ResultBuffer),
		cfg:     cfg,
		logger:  logger,
	}
}

// Results is the stream of finished checks, consumed by the result
// processor.
func (e *Executor) Results() <-chan CheckOutcome { return e.results }

func (e *Executor) Run(ctx context.Context) {
	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx)
	}
}

// Wait blocks until all workers have exited.
func (e *Executor) Wait() {
	e.wg.Wait()
}

func (e *Executor) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-e.jobs:
			e.execute(ctx, job)
		}
	}
}

func (e *Executor) execute(ctx context.Context, job scheduler.Job) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return // shutting down
	}
	res := e.prober.Execute(ctx, job.Monitor.ProbeTarget())
	e.sem.Release(1)

	select {
	case e.results <- CheckOutcome{Job: job, Result: res}:
	case <-ctx.Done():
		e.logger.Debug().
			Str("monitor_id", job.Monitor.ID.String()).
			Msg("discarding check result during shutdown")
	}
}
