package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// defaults first
	setDefaults(v)

	// File Config
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Env Config
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read File
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Validate
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("service_name", "sentinel")
	v.SetDefault("version", "0.1.0")
	v.SetDefault("port", 8080)
	v.SetDefault("shutdown_timeout", "30s")

	v.SetDefault("auth.token_ttl", "30m")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.max_open_conns", 50)
	v.SetDefault("db.min_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "1h")
	v.SetDefault("db.conn_max_idle_time", "30m")
	v.SetDefault("db.health_timeout", "5s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("scheduler.workers", 20)
	v.SetDefault("scheduler.max_concurrent_probes", 50)
	v.SetDefault("scheduler.job_buffer", 1000)
	v.SetDefault("scheduler.result_buffer", 1000)

	v.SetDefault("result.persist_workers", 8)
	v.SetDefault("result.persist_buffer", 64)
	v.SetDefault("result.append_retries", 3)

	v.SetDefault("alerts.workers", 4)
	v.SetDefault("alerts.buffer", 128)
	v.SetDefault("alerts.max_attempts", 3)
	v.SetDefault("alerts.backoff", "500ms")
	v.SetDefault("alerts.send_timeout", "10s")
	v.SetDefault("alerts.amqp.exchange", "sentinel.alerts")
	v.SetDefault("alerts.amqp.exchange_type", "topic")
	v.SetDefault("alerts.amqp.queue", "sentinel.alerts.events")
	v.SetDefault("alerts.amqp.routing_key", "alert.transition")

	v.SetDefault("policy.failure_threshold", 3)
	v.SetDefault("policy.recovery_threshold", 2)
	v.SetDefault("policy.degraded_threshold", 0)
	v.SetDefault("policy.latency_threshold_ms", 0)
	v.SetDefault("policy.alert_on_degraded", false)

	v.SetDefault("seed.path", "")
	v.SetDefault("seed.watch", false)
}

func validateConfig(cfg *Config) error {

	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return formatValidationErrors(ve)
		}
		return err
	}

	// DEGRADED is an intermediate state on the way to DOWN; a degraded
	// threshold at or above the failure threshold can never fire.
	if cfg.Policy.DegradedThreshold > 0 && cfg.Policy.DegradedThreshold >= cfg.Policy.FailureThreshold {
		return errors.New("config validation failed: policy.degraded_threshold must be below policy.failure_threshold")
	}

	return nil
}

func formatValidationErrors(ve validator.ValidationErrors) error {
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")

	for _, fe := range ve {
		fmt.Fprintf(&sb, "- field '%s' failed on '%s'\n", fe.Namespace(), fe.Tag())
	}
	return errors.New(sb.String())
}
