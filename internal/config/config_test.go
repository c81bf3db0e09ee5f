package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
log:
  mode: prod
redis:
  addr: localhost:6379
  ttl: 30s
postgres:
  url: postgres://localhost/progress
leaderboard:
  limit: 25
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Log.Mode != "prod" || cfg.Leaderboard.Limit != 25 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Postgres.URL != "postgres://localhost/progress" {
		t.Fatalf("unexpected backends %+v", cfg)
	}
	if got := TTLDuration(cfg.Redis.TTL, time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s ttl, got %v", got)
	}
	if cfg.NotificationChannel() != "progression:notifications" || cfg.MetricsPrefix() != "metrics:" {
		t.Fatalf("expected redis defaults, got %q %q", cfg.NotificationChannel(), cfg.MetricsPrefix())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty value, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad value, got %v", got)
	}
}
