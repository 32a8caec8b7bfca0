package app

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"sentinel/config"
	middle "sentinel/internals/middleware"
	"sentinel/internals/modules/alert"
	"sentinel/internals/modules/executor"
	"sentinel/internals/modules/metrics"
	"sentinel/internals/modules/monitor"
	"sentinel/internals/modules/probe"
	"sentinel/internals/modules/result"
	"sentinel/internals/modules/scheduler"
	"sentinel/internals/security"
	"sentinel/internals/seed"
	"sentinel/internals/storage"
	"sentinel/pkg/httpclient"
	"sentinel/pkg/rabbitmq"
	"sentinel/pkg/redisstore"
)

type Container struct {
	Cfg    *config.Config
	Logger *zerolog.Logger

	Store       storage.Store
	RedisClient *redisstore.Client
	amqpConn    *amqp091.Connection
	amqpPub     *rabbitmq.Publisher

	Scheduler  *scheduler.Scheduler
	Executor   *executor.Executor
	Processor  *result.Processor
	Dispatcher *alert.Dispatcher
	Metrics    *metrics.Aggregator

	MonitorSvc     *monitor.Service
	monitorHandler *monitor.Handler
	authMW         *middle.AuthMiddleware

	seedLoader  *seed.Loader
	seedWatcher *seed.Watcher
}

func NewContainer(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Container, error) {

	store, err := storage.Open(ctx, &cfg.DB, logger)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Cfg:    cfg,
		Logger: logger,
		Store:  store,
	}

	if cfg.Redis.Enabled {
		redisClient, err := redisstore.New(cfg.Redis.URL)
		if err != nil {
			store.Close()
			return nil, err
		}
		c.RedisClient = redisClient
	}

	providers, err := c.buildProviders()
	if err != nil {
		c.closeInfra()
		return nil, err
	}

	c.Metrics = metrics.NewAggregator()
	c.Scheduler = scheduler.New(cfg.Scheduler.JobBuffer, logger)

	prober := probe.New(logger)
	c.Executor = executor.New(c.Scheduler.Jobs(), prober, executor.Config{
		Workers:             cfg.Scheduler.Workers,
		MaxConcurrentProbes: cfg.Scheduler.MaxConcurrentProbes,
		ResultBuffer:        cfg.Scheduler.ResultBuffer,
	}, logger)

	c.Dispatcher = alert.NewDispatcher(providers, alert.DispatcherConfig{
		Workers:     cfg.Alerts.Workers,
		Buffer:      cfg.Alerts.Buffer,
		MaxAttempts: cfg.Alerts.MaxAttempts,
		Backoff:     cfg.Alerts.Backoff,
		SendTimeout: cfg.Alerts.SendTimeout,
	}, logger)

	// a nil *Client must not end up inside the interface
	var cache result.StatusCache
	if c.RedisClient != nil {
		cache = c.RedisClient
	}

	c.Processor = result.NewProcessor(
		c.Executor.Results(), store, c.Scheduler, cache, c.Dispatcher, c.Metrics,
		result.Config{
			PersistWorkers: cfg.Result.PersistWorkers,
			PersistBuffer:  cfg.Result.PersistBuffer,
			AppendRetries:  cfg.Result.AppendRetries,
		}, logger)

	c.MonitorSvc = monitor.NewService(store, c.Scheduler, c.Processor, monitor.Policy{
		FailureThreshold:   cfg.Policy.FailureThreshold,
		RecoveryThreshold:  cfg.Policy.RecoveryThreshold,
		DegradedThreshold:  cfg.Policy.DegradedThreshold,
		LatencyThresholdMs: cfg.Policy.LatencyThresholdMs,
		AlertOnDegraded:    cfg.Policy.AlertOnDegraded,
	}, logger)

	tokenSvc := security.NewTokenService(&cfg.Auth)
	c.authMW = middle.NewAuthMiddleware(tokenSvc)
	c.monitorHandler = monitor.NewHandler(c.MonitorSvc, validator.New())

	c.seedLoader = seed.NewLoader(c.MonitorSvc, logger)

	return c, nil
}

// buildProviders wires up the alert channels named in the config.
func (c *Container) buildProviders() ([]alert.Provider, error) {
	cfg := c.Cfg
	client := httpclient.New()

	var providers []alert.Provider
	for _, name := range cfg.Alerts.Providers {
		switch name {
		case "slack":
			providers = append(providers, alert.NewSlackProvider(cfg.Alerts.Slack.WebhookURL, client))
		case "discord":
			providers = append(providers, alert.NewDiscordProvider(cfg.Alerts.Discord.WebhookURL, client))
		case "email":
			providers = append(providers, alert.NewEmailProvider(alert.EmailConfig{
				APIKey:     cfg.Alerts.Email.APIKey,
				FromName:   cfg.Alerts.Email.FromName,
				FromEmail:  cfg.Alerts.Email.From,
				Recipients: strings.Split(cfg.Alerts.Email.To, ","),
			}))
		case "amqp":
			conn, err := rabbitmq.NewConnection(&cfg.Alerts.AMQP)
			if err != nil {
				return nil, err
			}
			if err := rabbitmq.SetupTopology(conn, &cfg.Alerts.AMQP); err != nil {
				conn.Close()
				return nil, err
			}
			pub, err := rabbitmq.NewPublisher(conn, cfg.Alerts.AMQP.Exchange)
			if err != nil {
				conn.Close()
				return nil, err
			}
			c.amqpConn = conn
			c.amqpPub = pub
			providers = append(providers, alert.NewAMQPProvider(pub, cfg.Alerts.AMQP.RoutingKey))
		}
	}
	return providers, nil
}

// Start launches the check pipeline, loads persisted monitors and applies
// the seed file.
func (c *Container) Start(ctx context.Context) error {
	go c.Scheduler.Run(ctx)
	c.Executor.Run(ctx)
	c.Processor.Run(ctx)
	c.Dispatcher.Run(ctx)

	if err := c.MonitorSvc.Bootstrap(ctx); err != nil {
		return err
	}

	if c.Cfg.Seed.Path != "" {
		if err := c.seedLoader.Apply(ctx, c.Cfg.Seed.Path); err != nil {
			// a broken seed file must not keep persisted monitors down
			c.Logger.Error().Err(err).Msg("seed apply failed, continuing with stored monitors")
		}
		if c.Cfg.Seed.Watch {
			watcher, err := seed.NewWatcher(c.seedLoader, c.Cfg.Seed.Path, c.Logger)
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			c.seedWatcher = watcher
		}
	}

	return nil
}

// Shutdown waits for the pipeline goroutines to drain, bounded by ctx,
// then closes external connections. The run context must be cancelled
// before calling this.
func (c *Container) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.Executor.Wait()
		c.Processor.Wait()
		c.Dispatcher.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		c.Logger.Warn().Msg("pipeline drain timed out")
	}

	c.closeInfra()
	return nil
}

func (c *Container) closeInfra() {
	if c.amqpPub != nil {
		c.amqpPub.Close()
	}
	if c.amqpConn != nil {
		c.amqpConn.Close()
	}
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}
	if c.Store != nil {
		c.Store.Close()
	}
}
