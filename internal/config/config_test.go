package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.App.HTTPAddr)
	}
	if cfg.Dispatch.Storage != StorageMemory {
		t.Errorf("Storage = %q", cfg.Dispatch.Storage)
	}
	if cfg.Dispatch.ActivityRetention != 1000 {
		t.Errorf("ActivityRetention = %d", cfg.Dispatch.ActivityRetention)
	}
	if cfg.Security.AccessTTL != 15*time.Minute {
		t.Errorf("AccessTTL = %v", cfg.Security.AccessTTL)
	}
	if cfg.AMQP.Exchange != "okada.rides" {
		t.Errorf("Exchange = %q", cfg.AMQP.Exchange)
	}
}

func TestLoadPrefixedSections(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost/okada")
	t.Setenv("POSTGRES_MAX_CONNS", "7")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.MaxConns != 7 {
		t.Errorf("MaxConns = %d", cfg.Postgres.MaxConns)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET": ""}},
		{name: "unknown storage", env: map[string]string{"JWT_SECRET": "s", "STORAGE": "bolt"}},
		{name: "postgres without dsn", env: map[string]string{"JWT_SECRET": "s", "STORAGE": "postgres", "POSTGRES_DSN": ""}},
		{name: "sweeper without interval", env: map[string]string{"JWT_SECRET": "s", "PENDING_RIDE_TIMEOUT": "10m", "SWEEP_INTERVAL": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
