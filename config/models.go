package config

import "time"

type DBConfig struct {
	Driver          string        `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL             string        `mapstructure:"url" validate:"required"`
	MaxOpenConns    int32         `mapstructure:"max_open_conns"`
	MinIdleConns    int32         `mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	HealthTimeout   time.Duration `mapstructure:"health_timeout"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret" validate:"required"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type SchedulerConfig struct {
	Workers             int   `mapstructure:"workers" validate:"gte=1"`
	MaxConcurrentProbes int64 `mapstructure:"max_concurrent_probes" validate:"gte=1"`
	JobBuffer           int   `mapstructure:"job_buffer" validate:"gte=1"`
	ResultBuffer        int   `mapstructure:"result_buffer" validate:"gte=1"`
}

type ResultConfig struct {
	PersistWorkers int `mapstructure:"persist_workers" validate:"gte=1"`
	PersistBuffer  int `mapstructure:"persist_buffer" validate:"gte=1"`
	AppendRetries  int `mapstructure:"append_retries" validate:"gte=1"`
}

type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

type EmailConfig struct {
	APIKey   string `mapstructure:"api_key"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	To       string `mapstructure:"to"`
}

type AMQPConfig struct {
	URL          string `mapstructure:"url"`
	Exchange     string `mapstructure:"exchange"`
	ExchangeType string `mapstructure:"exchange_type"`
	Queue        string `mapstructure:"queue"`
	RoutingKey   string `mapstructure:"routing_key"`
}

type AlertsConfig struct {
	Providers   []string      `mapstructure:"providers" validate:"dive,oneof=slack discord email amqp"`
	Workers     int           `mapstructure:"workers" validate:"gte=1"`
	Buffer      int           `mapstructure:"buffer" validate:"gte=1"`
	MaxAttempts int           `mapstructure:"max_attempts" validate:"gte=1"`
	Backoff     time.Duration `mapstructure:"backoff"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	Slack       SlackConfig   `mapstructure:"slack"`
	Discord     DiscordConfig `mapstructure:"discord"`
	Email       EmailConfig   `mapstructure:"email"`
	AMQP        AMQPConfig    `mapstructure:"amqp"`
}

// PolicyConfig holds the default state-machine thresholds applied to
// monitors that don't override them.
type PolicyConfig struct {
	FailureThreshold   int   `mapstructure:"failure_threshold" validate:"gte=1"`
	RecoveryThreshold  int   `mapstructure:"recovery_threshold" validate:"gte=1"`
	DegradedThreshold  int   `mapstructure:"degraded_threshold" validate:"gte=0"`
	LatencyThresholdMs int64 `mapstructure:"latency_threshold_ms" validate:"gte=0"`
	AlertOnDegraded    bool  `mapstructure:"alert_on_degraded"`
}

type SeedConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

type Config struct {
	Env             string          `mapstructure:"env"`
	ServiceName     string          `mapstructure:"service_name"`
	Version         string          `mapstructure:"version"`
	Port            int             `mapstructure:"port" validate:"gte=1,lte=65535"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	DB              DBConfig        `mapstructure:"db"`
	Redis           RedisConfig     `mapstructure:"redis"`
	Auth            AuthConfig      `mapstructure:"auth"`
	Scheduler       SchedulerConfig `mapstructure:"scheduler"`
	Result          ResultConfig    `mapstructure:"result"`
	Alerts          AlertsConfig    `mapstructure:"alerts"`
	Policy          PolicyConfig    `mapstructure:"policy"`
	Seed            SeedConfig      `mapstructure:"seed"`
}
