// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name, e.g. ORDERDESK_PORT.
const Prefix = "ORDERDESK"

type Config struct {
	Port             string        `envconfig:"PORT"              default:"8080"`
	LogLevel         string        `envconfig:"LOG_LEVEL"         default:"info"`
	OrdersTable      string        `envconfig:"ORDERS_TABLE"      default:"orders"`
	IdempotencyTable string        `envconfig:"IDEMPOTENCY_TABLE" default:"order-idempotency"`
	EventsQueueURL   string        `envconfig:"EVENTS_QUEUE_URL"` // empty disables publishing
	MetricsNamespace string        `envconfig:"METRICS_NAMESPACE" default:"OrderDesk"`
	DefaultPageSize  int           `envconfig:"DEFAULT_PAGE_SIZE" default:"20"`
	MaxPageSize      int           `envconfig:"MAX_PAGE_SIZE"     default:"100"`
	IdempotencyTTL   time.Duration `envconfig:"IDEMPOTENCY_TTL"   default:"48h"`
	RunLocal         bool          `envconfig:"RUN_LOCAL"         default:"false"`
}

// Load reads envFiles (default .env) into the environment without
// overriding variables that are already set, then processes the
// environment. Missing env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express in tags.
func (c *Config) Validate() error {
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("%s_DEFAULT_PAGE_SIZE must be positive, got %d", Prefix, c.DefaultPageSize)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("%s_MAX_PAGE_SIZE (%d) must be at least the default page size (%d)", Prefix, c.MaxPageSize, c.DefaultPageSize)
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("%s_IDEMPOTENCY_TTL must be positive, got %s", Prefix, c.IdempotencyTTL)
	}
	if c.OrdersTable == "" || c.IdempotencyTable == "" {
		return fmt.Errorf("%s_ORDERS_TABLE and %s_IDEMPOTENCY_TABLE must be set", Prefix, Prefix)
	}
	return nil
}

// Addr is the listen address for local mode.
func (c *Config) Addr() string {
	return ":" + c.Port
}
