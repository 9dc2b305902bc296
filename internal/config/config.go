// Package config loads kpath settings from defaults, a JSONC file and
// KPATH_* environment variables, in that order of precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/muhammadmuzzammil1998/jsonc"
)

// Config holds all kpath configuration.
type Config struct {
	// DBPath is the SQLite database file. Empty means the default location.
	DBPath string `json:"db"`
	// LogMode selects the logger: "dev" or "prod".
	LogMode string `json:"log"`

	Graph GraphConfig `json:"graph"`
	Paths PathConfig  `json:"paths"`
	Redis RedisConfig `json:"redis"`
	Neo4j Neo4jConfig `json:"neo4j"`
	HTTP  HTTPConfig  `json:"http"`
}

// GraphConfig bounds graph building.
type GraphConfig struct {
	MaxCycleLength    int `json:"max_cycle_length"`     // 0 = unbounded
	MaxCyclesPerRound int `json:"max_cycles_per_round"` // 0 = unbounded; defaults to 10000
	Concurrency       int `json:"concurrency"`          // parallel unit builds
}

// PathConfig controls path persistence.
type PathConfig struct {
	Keep         int  `json:"keep"` // paths retained per learner
	TrackMastery bool `json:"track_mastery"`
}

// RedisConfig enables cross-process learner locks when Addr is set.
type RedisConfig struct {
	Addr    string   `json:"addr"`
	LockTTL Duration `json:"lock_ttl"`
}

// Neo4jConfig enables graph export when URI is set.
type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// Duration is a time.Duration that reads "30s"-style strings from JSON.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogMode: "dev",
		Graph: GraphConfig{
			MaxCyclesPerRound: 10000,
			Concurrency:       4,
		},
		Paths: PathConfig{
			Keep:         20,
			TrackMastery: true,
		},
		Redis: RedisConfig{
			LockTTL: Duration{30 * time.Second},
		},
		Neo4j: Neo4jConfig{
			User:     "neo4j",
			Database: "neo4j",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// LoadFile overlays the JSONC file at path onto cfg.
func LoadFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(b), cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays KPATH_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	str := map[string]*string{
		"KPATH_DB":             &cfg.DBPath,
		"KPATH_LOG":            &cfg.LogMode,
		"KPATH_REDIS_ADDR":     &cfg.Redis.Addr,
		"KPATH_NEO4J_URI":      &cfg.Neo4j.URI,
		"KPATH_NEO4J_USER":     &cfg.Neo4j.User,
		"KPATH_NEO4J_PASSWORD": &cfg.Neo4j.Password,
		"KPATH_NEO4J_DATABASE": &cfg.Neo4j.Database,
		"KPATH_HTTP_ADDR":      &cfg.HTTP.Addr,
	}
	for key, dst := range str {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"KPATH_MAX_CYCLE_LENGTH":     &cfg.Graph.MaxCycleLength,
		"KPATH_MAX_CYCLES_PER_ROUND": &cfg.Graph.MaxCyclesPerRound,
		"KPATH_BUILD_CONCURRENCY":    &cfg.Graph.Concurrency,
		"KPATH_KEEP_PATHS":           &cfg.Paths.Keep,
	}
	for key, dst := range ints {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	if v := strings.TrimSpace(os.Getenv("KPATH_TRACK_MASTERY")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("KPATH_TRACK_MASTERY: %w", err)
		}
		cfg.Paths.TrackMastery = b
	}
	if v := strings.TrimSpace(os.Getenv("KPATH_LOCK_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("KPATH_LOCK_TTL: %w", err)
		}
		cfg.Redis.LockTTL = Duration{d}
	}
	return nil
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for unset values.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	err := ApplyEnv(&cfg)
	return cfg, err
}

// Load resolves the full configuration: defaults, then the file at path
// (skipped when empty), then the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := LoadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and reports every problem found.
func (c Config) Validate() error {
	var errs []string
	switch c.LogMode {
	case "dev", "development", "prod", "production":
	default:
		errs = append(errs, fmt.Sprintf("log mode must be dev or prod, got %q", c.LogMode))
	}
	if c.Graph.MaxCycleLength < 0 {
		errs = append(errs, fmt.Sprintf("graph.max_cycle_length must be >= 0, got %d", c.Graph.MaxCycleLength))
	}
	if c.Graph.MaxCyclesPerRound < 0 {
		errs = append(errs, fmt.Sprintf("graph.max_cycles_per_round must be >= 0, got %d", c.Graph.MaxCyclesPerRound))
	}
	if c.Graph.Concurrency < 1 {
		errs = append(errs, fmt.Sprintf("graph.concurrency must be > 0, got %d", c.Graph.Concurrency))
	}
	if c.Paths.Keep < 0 {
		errs = append(errs, fmt.Sprintf("paths.keep must be >= 0, got %d", c.Paths.Keep))
	}
	if c.Redis.Addr != "" && c.Redis.LockTTL.Duration <= 0 {
		errs = append(errs, "redis.lock_ttl must be positive when redis.addr is set")
	}
	if c.Neo4j.URI != "" && c.Neo4j.User == "" {
		errs = append(errs, "neo4j.user is required when neo4j.uri is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
