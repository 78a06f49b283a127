package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DefaultPageSize != 20 || cfg.MaxPageSize != 100 ||
		cfg.IdempotencyTTL != 48*time.Hour || cfg.RunLocal || cfg.EventsQueueURL != "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Addr() != ":8080" {
		t.Fatalf("unexpected addr %s", cfg.Addr())
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ORDERDESK_PORT", "9090")
	t.Setenv("ORDERDESK_RUN_LOCAL", "true")
	t.Setenv("ORDERDESK_IDEMPOTENCY_TTL", "2h")
	t.Setenv("ORDERDESK_MAX_PAGE_SIZE", "50")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || !cfg.RunLocal || cfg.IdempotencyTTL != 2*time.Hour || cfg.MaxPageSize != 50 {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "ORDERDESK_ORDERS_TABLE=orders-from-file\nORDERDESK_LOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ORDERDESK_LOG_LEVEL", "warn")
	// register for cleanup; godotenv sets it in the process environment
	t.Setenv("ORDERDESK_ORDERS_TABLE", "")
	os.Unsetenv("ORDERDESK_ORDERS_TABLE")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OrdersTable != "orders-from-file" || cfg.LogLevel != "warn" {
		t.Fatalf("unexpected merge %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad int":           {"ORDERDESK_DEFAULT_PAGE_SIZE": "many"},
		"zero page size":    {"ORDERDESK_DEFAULT_PAGE_SIZE": "0"},
		"max below default": {"ORDERDESK_DEFAULT_PAGE_SIZE": "30", "ORDERDESK_MAX_PAGE_SIZE": "10"},
		"bad duration":      {"ORDERDESK_IDEMPOTENCY_TTL": "soon"},
		"negative ttl":      {"ORDERDESK_IDEMPOTENCY_TTL": "-1h"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Fatalf("expected %v to be rejected", env)
			}
		})
	}
}
