package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TILLPOINT_AUTH_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Env != "development" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.AccessTTL != 15*time.Minute || cfg.RefreshTTL != 336*time.Hour {
		t.Fatalf("unexpected TTLs %+v", cfg)
	}
	if cfg.IsProduction() {
		t.Fatalf("development must not report production")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("TILLPOINT_AUTH_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without auth secret")
	}
}

func TestLoadRejectsNegativeIdle(t *testing.T) {
	t.Setenv("TILLPOINT_AUTH_SECRET", "s3cret")
	t.Setenv("TILLPOINT_IDLE_TIMEOUT", "-1m")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative idle timeout")
	}
}
