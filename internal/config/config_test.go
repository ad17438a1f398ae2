package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

// Load reads through the global viper, so these tests reset it and do
// not run in parallel.

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Cache.TTL != 6*time.Hour {
		t.Errorf("Cache.TTL = %v", cfg.Cache.TTL)
	}
	if cfg.Cache.StaleCeiling != 24*time.Hour {
		t.Errorf("Cache.StaleCeiling = %v", cfg.Cache.StaleCeiling)
	}
	if cfg.Render.Workers < 1 {
		t.Errorf("Render.Workers = %d", cfg.Render.Workers)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("SCREENGRABX_SERVER_LISTENADDR", ":9999")
	t.Setenv("SCREENGRABX_CACHE_TTL", "30m")
	t.Setenv("SCREENGRABX_DATABASE_HOST", "pg.internal")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, env override ignored", cfg.Server.ListenAddr)
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("Cache.TTL = %v, env override ignored", cfg.Cache.TTL)
	}
	if cfg.Database.Host != "pg.internal" {
		t.Errorf("Database.Host = %q, env override ignored", cfg.Database.Host)
	}
}
