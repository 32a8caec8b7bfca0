package alert

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sentinel/pkg/utils"
)

// Provider delivers one event over a single channel (webhook, email, queue).
type Provider interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}

type DispatcherConfig struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	Backoff     time.Duration
	SendTimeout time.Duration
}

// Dispatcher fans events out to every configured provider. Events for the
// same monitor always land on the same worker, so per-monitor delivery
// order follows transition order.
type Dispatcher struct {
	providers []Provider
	chans     []chan Event
	cfg       DispatcherConfig
	logger    *zerolog.Logger
	wg        sync.WaitGroup
}

func NewDispatcher(providers []Provider, cfg DispatcherConfig, logger *zerolog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		providers: providers,
		chans:     make([]chan Event, cfg.Workers),
		cfg:       cfg,
		logger:    logger,
	}
	for i := range d.chans {
		d.chans[i] = make(chan Event, cfg.Buffer)
	}
	return d
}

func (d *Dispatcher) Run(ctx context.Context) {
	for i := range d.chans {
		d.wg.Add(1)
		go d.worker(ctx, d.chans[i])
	}
}

// Dispatch hands an event to its shard's worker. It never blocks the
// caller: when the shard's buffer is full the event is dropped with a log,
// because stalling the result pipeline is worse than a missed notification.
func (d *Dispatcher) Dispatch(ev Event) {
	ch := d.chans[utils.Shard(ev.MonitorID, len(d.chans))]
	select {
	case ch <- ev:
	default:
		d.logger.Warn().
			Str("monitor_id", ev.MonitorID.String()).
			Str("to", string(ev.To)).
			Msg("alert buffer full, dropping event")
	}
}

// Wait blocks until all workers have exited. Call after the run context
// is cancelled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, ch chan Event) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			d.deliver(ctx, ev)
		}
	}
}

// deliver pushes the event to every provider concurrently. One provider
// failing never blocks the others.
func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range d.providers {
		p := p
		g.Go(func() error {
			d.sendWithRetry(gctx, p, ev)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, p Provider, ev Event) {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		lastErr = p.Send(sendCtx, ev)
		cancel()
		if lastErr == nil {
			d.logger.Info().
				Str("provider", p.Name()).
				Str("monitor_id", ev.MonitorID.String()).
				Str("transition", string(ev.From)+"->"+string(ev.To)).
				Msg("alert delivered")
			return
		}

		d.logger.Warn().Err(lastErr).
			Str("provider", p.Name()).
			Str("monitor_id", ev.MonitorID.String()).
			Int("attempt", attempt).
			Msg("alert delivery failed")

		if attempt == d.cfg.MaxAttempts {
			break
		}
		backoff := d.cfg.Backoff * time.Duration(1<<(attempt-1))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}

	d.logger.Error().Err(lastErr).
		Str("provider", p.Name()).
		Str("monitor_id", ev.MonitorID.String()).
		Str("transition", string(ev.From)+"->"+string(ev.To)).
		Msg("alert undeliverable, giving up")
}
