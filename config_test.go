package overlay

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.toml")
	profile := `
members = 8
ladder_ms = [50, 200]

[logging]
sinks = ["console", "json"]
min_severity = "debug"
`
	if err := os.WriteFile(path, []byte(profile), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Members != 8 {
		t.Fatalf("expected members 8, got %d", cfg.Members)
	}
	if cfg.PendingCapacity != 64 {
		t.Fatalf("expected default pending capacity 64, got %d", cfg.PendingCapacity)
	}
	if len(cfg.Logging.Sinks) != 2 || cfg.Logging.Sinks[1] != "json" {
		t.Fatalf("unexpected sinks: %v", cfg.Logging.Sinks)
	}
	ladder := cfg.ladder()
	if len(ladder) != 2 || ladder[0] != 50*time.Millisecond || ladder[1] != 200*time.Millisecond {
		t.Fatalf("unexpected ladder: %v", ladder)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv(envMembers, "6")
	t.Setenv(envPendingCapacity, "16")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Members != 6 {
		t.Fatalf("expected env override members 6, got %d", cfg.Members)
	}
	if cfg.PendingCapacity != 16 {
		t.Fatalf("expected env override capacity 16, got %d", cfg.PendingCapacity)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero members", func(c *Config) { c.Members = 0 }},
		{"zero capacity", func(c *Config) { c.PendingCapacity = 0 }},
		{"negative ladder rung", func(c *Config) { c.LadderMS = []int{100, -1} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestConfigSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.toml")
	want := DefaultConfig()
	want.Members = 3
	want.VisibilityDriver = false
	if err := want.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Members != 3 || got.VisibilityDriver {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestEmptyLadderFallsBackToDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LadderMS = nil
	ladder := cfg.ladder()
	want := defaultLadder()
	if len(ladder) != len(want) {
		t.Fatalf("expected %d rungs, got %d", len(want), len(ladder))
	}
	for i := range want {
		if ladder[i] != want[i] {
			t.Fatalf("rung %d: expected %v, got %v", i, want[i], ladder[i])
		}
	}
}
