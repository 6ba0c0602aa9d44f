// Package config loads application configuration from a YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix for environment variable overrides.
// Nesting uses a double underscore: REMINDERD_DATABASE__URL → database.url.
const envPrefix = "REMINDERD_"

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Queue     QueueConfig     `koanf:"queue"`
	Worker    WorkerConfig    `koanf:"worker"`
	Email     EmailConfig     `koanf:"email"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig contains PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// SchedulerConfig contains reminder scheduler configuration.
type SchedulerConfig struct {
	TickInterval time.Duration `koanf:"tick_interval"`
	WindowLow    time.Duration `koanf:"window_low"`
	WindowHigh   time.Duration `koanf:"window_high"`
	TickTimeout  time.Duration `koanf:"tick_timeout"`
}

// QueueConfig contains retry and retention configuration.
type QueueConfig struct {
	MaxAttempts    int           `koanf:"max_attempts"`
	InitialBackoff time.Duration `koanf:"initial_backoff"`
	Multiplier     float64       `koanf:"multiplier"`
	MaxBackoff     time.Duration `koanf:"max_backoff"`
	KeepCompleted  int           `koanf:"keep_completed"`
	KeepFailed     int           `koanf:"keep_failed"`
}

// WorkerConfig contains worker pool configuration.
type WorkerConfig struct {
	NumWorkers      int           `koanf:"num_workers"`
	PollInterval    time.Duration `koanf:"poll_interval"`
	PruneInterval   time.Duration `koanf:"prune_interval"`
	DispatchTimeout time.Duration `koanf:"dispatch_timeout"`
}

// EmailConfig contains SMTP sender configuration.
type EmailConfig struct {
	Enabled      bool    `koanf:"enabled"`
	SMTPHost     string  `koanf:"smtp_host"`
	SMTPPort     int     `koanf:"smtp_port"`
	SMTPUser     string  `koanf:"smtp_user"`
	SMTPPassword string  `koanf:"smtp_password"`
	FromAddress  string  `koanf:"from_address"`
	RateLimit    float64 `koanf:"rate_limit"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 2 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Scheduler: SchedulerConfig{
			TickInterval: time.Hour,
			WindowLow:    23 * time.Hour,
			WindowHigh:   25 * time.Hour,
			TickTimeout:  time.Minute,
		},
		Queue: QueueConfig{
			MaxAttempts:    3,
			InitialBackoff: 60 * time.Second,
			Multiplier:     2.0,
			MaxBackoff:     30 * time.Minute,
			KeepCompleted:  100,
			KeepFailed:     50,
		},
		Worker: WorkerConfig{
			NumWorkers:      5,
			PollInterval:    5 * time.Second,
			PruneInterval:   time.Minute,
			DispatchTimeout: 30 * time.Second,
		},
		Email: EmailConfig{
			SMTPPort:  587,
			RateLimit: 10,
		},
	}
}

// Load reads configuration from an optional YAML file and environment
// variables, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// envKey maps REMINDERD_DATABASE__MAX_OPEN_CONNS to database.max_open_conns.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks invariants that would break the pipeline at runtime.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database url is required")
	}
	if c.Queue.MaxAttempts < 1 {
		return errors.New("queue max_attempts must be at least 1")
	}
	if c.Worker.NumWorkers < 1 {
		return errors.New("worker num_workers must be at least 1")
	}
	if c.Scheduler.WindowLow >= c.Scheduler.WindowHigh {
		return fmt.Errorf("scheduler window_low (%s) must be before window_high (%s)",
			c.Scheduler.WindowLow, c.Scheduler.WindowHigh)
	}
	if c.Scheduler.TickInterval >= c.Scheduler.WindowHigh-c.Scheduler.WindowLow {
		return errors.New("scheduler tick_interval must be smaller than the window width")
	}
	return nil
}
