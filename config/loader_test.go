package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

const sampleYAML = `
name: courtroom
version: 1.2.0
storage:
  primary:
    path: /tmp/courtroom.db
  fallback:
    driver: memory
cache:
  default_ttl: 2h
coordinator:
  debounce_interval: 250ms
`

func TestLoadFromBytesAppliesDefaults(t *testing.T) {
	cfg, err := NewLoader().LoadFromBytes([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Name != "courtroom" {
		t.Fatalf("name = %q, want %q", cfg.Name, "courtroom")
	}
	if cfg.Storage.Primary.Path != "/tmp/courtroom.db" {
		t.Fatalf("primary path = %q", cfg.Storage.Primary.Path)
	}
	if !cfg.Storage.Primary.Enabled {
		t.Fatal("expected primary to stay enabled from defaults")
	}
	if cfg.Storage.Fallback.Driver != "memory" {
		t.Fatalf("fallback driver = %q", cfg.Storage.Fallback.Driver)
	}
	if cfg.Cache.DefaultTTL != 2*time.Hour {
		t.Fatalf("default ttl = %v, want 2h", cfg.Cache.DefaultTTL)
	}
	if cfg.Cache.KeyLength != 16 {
		t.Fatalf("key length = %d, want 16", cfg.Cache.KeyLength)
	}
	if cfg.Coordinator.DebounceInterval != 250*time.Millisecond {
		t.Fatalf("debounce = %v", cfg.Coordinator.DebounceInterval)
	}
	if cfg.Coordinator.MaxPendingAge != 5*time.Minute {
		t.Fatalf("max pending age = %v", cfg.Coordinator.MaxPendingAge)
	}
	if len(cfg.Storage.Collections) == 0 {
		t.Fatal("expected default collections")
	}
}

func TestLoadFromBytesEnvOverride(t *testing.T) {
	t.Setenv("COURTCORE_CACHE_DEFAULT_TTL", "30m")
	t.Setenv("COURTCORE_STORAGE_FALLBACK_DRIVER", "redis")

	cfg, err := NewLoader().LoadFromBytes([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cache.DefaultTTL != 30*time.Minute {
		t.Fatalf("default ttl = %v, want 30m", cfg.Cache.DefaultTTL)
	}
	if cfg.Storage.Fallback.Driver != "redis" {
		t.Fatalf("fallback driver = %q, want redis", cfg.Storage.Fallback.Driver)
	}
}

func TestLoadFromBytesValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown fallback driver", yaml: "storage:\n  fallback:\n    driver: floppy\n"},
		{name: "unknown hash algorithm", yaml: "hash:\n  algorithm: md5\n"},
		{name: "key length too short", yaml: "cache:\n  key_length: 4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadFromBytes([]byte(tt.yaml))
			if !types.IsError(err, types.ErrConfigValidateFailed) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLoadFromBytesMalformedYAML(t *testing.T) {
	_, err := NewLoader().LoadFromBytes([]byte("name: [unterminated"))
	if !types.IsError(err, types.ErrConfigParseFailed) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestConfigurationManagerFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cm, err := NewConfigurationManager(context.Background(), path)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := cm.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = cm.Stop() }()

	if got := cm.GetValue("storage.fallback.driver", ""); got != "memory" {
		t.Fatalf("storage.fallback.driver = %v, want memory", got)
	}
	if got := cm.GetValue("storage.missing", "fallback"); got != "fallback" {
		t.Fatalf("expected default for missing path, got %v", got)
	}

	var primary types.PrimaryStoreConfig
	if err := cm.GetAs("storage.primary", &primary); err != nil {
		t.Fatalf("get as: %v", err)
	}
	if primary.Path != "/tmp/courtroom.db" {
		t.Fatalf("primary path = %q", primary.Path)
	}
}

func TestNewConfigurationManagerMissingFile(t *testing.T) {
	_, err := NewConfigurationManager(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNewStaticManagerRejectsInvalid(t *testing.T) {
	cfg := Defaults()
	cfg.Hash.Algorithm = "crc"
	if _, err := NewStaticManager(context.Background(), cfg); err == nil {
		t.Fatal("expected validation error")
	}
}
