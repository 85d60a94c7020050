package overlay

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	envMembers         = "OVERLAY_MEMBERS"
	envPendingCapacity = "OVERLAY_PENDING_CAPACITY"
)

// Config tunes the engine. It round-trips through TOML for on-disk profiles
// and through JSON for the generated schema.
type Config struct {
	// Members is the number of dynamic-existence slots besides "self".
	Members int `toml:"members" json:"members"`
	// PendingCapacity bounds the deferred-mutation buffer.
	PendingCapacity int `toml:"pending_capacity" json:"pendingCapacity"`
	// LadderMS lists the safety-net delays, in milliseconds, relative to
	// the triggering event.
	LadderMS []int `toml:"ladder_ms" json:"ladderMs"`
	// DriftMissesPerTenThousand is the resolution-miss ratio that trips
	// the drift policy.
	DriftMissesPerTenThousand int `toml:"drift_misses_per_ten_thousand" json:"driftMissesPerTenThousand"`
	// VisibilityDriver delegates member-slot visibility to host-evaluated
	// existence expressions.
	VisibilityDriver bool `toml:"visibility_driver" json:"visibilityDriver"`
	// Preview starts the engine on the self-managed pool.
	Preview bool `toml:"preview" json:"preview"`

	Logging     LogConfig  `toml:"logging" json:"logging"`
	Diagnostics DiagConfig `toml:"diagnostics" json:"diagnostics"`
}

// LogConfig selects sinks for the event router.
type LogConfig struct {
	Sinks       []string `toml:"sinks" json:"sinks"`
	MinSeverity string   `toml:"min_severity" json:"minSeverity"`
	JSONPath    string   `toml:"json_path" json:"jsonPath,omitempty"`
}

// DiagConfig configures the WebSocket diagnostics stream.
type DiagConfig struct {
	Addr       string `toml:"addr" json:"addr,omitempty"`
	IntervalMS int    `toml:"interval_ms" json:"intervalMs"`
}

// DefaultConfig returns the tuning the engine ships with.
func DefaultConfig() Config {
	return Config{
		Members:                   4,
		PendingCapacity:           64,
		LadderMS:                  []int{100, 400, 1000},
		DriftMissesPerTenThousand: defaultMissThresholdPerTenThousand,
		VisibilityDriver:          true,
		Logging: LogConfig{
			Sinks:       []string{"console"},
			MinSeverity: "info",
		},
		Diagnostics: DiagConfig{
			IntervalMS: 1000,
		},
	}
}

// LoadConfig reads a TOML profile over the defaults and applies environment
// overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration as TOML.
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if raw := os.Getenv(envMembers); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			c.Members = v
		}
	}
	if raw := os.Getenv(envPendingCapacity); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			c.PendingCapacity = v
		}
	}
}

// Validate rejects configurations that cannot produce a working engine.
func (c Config) Validate() error {
	if c.Members < 1 {
		return fmt.Errorf("%w: members must be at least 1, got %d", ErrInvalidConfig, c.Members)
	}
	if c.PendingCapacity < 1 {
		return fmt.Errorf("%w: pending_capacity must be at least 1, got %d", ErrInvalidConfig, c.PendingCapacity)
	}
	for _, ms := range c.LadderMS {
		if ms <= 0 {
			return fmt.Errorf("%w: ladder delays must be positive, got %d", ErrInvalidConfig, ms)
		}
	}
	return nil
}

func (c Config) ladder() []time.Duration {
	if len(c.LadderMS) == 0 {
		return defaultLadder()
	}
	ladder := make([]time.Duration, 0, len(c.LadderMS))
	for _, ms := range c.LadderMS {
		ladder = append(ladder, time.Duration(ms)*time.Millisecond)
	}
	return ladder
}
