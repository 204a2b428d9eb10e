// Package config loads selectorcache's YAML configuration, applying
// environment-variable overrides on top of sane defaults, and locates the
// workspace root the same way the rest of the ambient stack (logging, the
// sqlite cache root) expects it to be found.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheConfig configures the Bidirectional Cache (spec §4.2, §3.3).
type CacheConfig struct {
	SelectorTTL            time.Duration `yaml:"selector_ttl"`
	SnapshotDefaultTTL     time.Duration `yaml:"snapshot_default_ttl"`
	MaxVariationsPerSelector int         `yaml:"max_variations_per_selector"`
	ReverseCandidateLimit  int           `yaml:"reverse_candidate_limit"`
	FuzzyCandidateLimit    int           `yaml:"fuzzy_candidate_limit"`
	FuzzyRecencyWindow     time.Duration `yaml:"fuzzy_recency_window"`
	CleanupInterval        time.Duration `yaml:"cleanup_interval"`
}

// DefaultCacheConfig mirrors the thresholds named throughout spec.md §4.2.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		SelectorTTL:              30 * 24 * time.Hour,
		SnapshotDefaultTTL:       24 * time.Hour,
		MaxVariationsPerSelector: 10,
		ReverseCandidateLimit:    10,
		FuzzyCandidateLimit:      20,
		FuzzyRecencyWindow:       time.Hour,
		CleanupInterval:          10 * time.Minute,
	}
}

// ScenarioConfig configures the Test Scenario Store (spec §4.4).
type ScenarioConfig struct {
	DefaultSimilarityLimit int           `yaml:"default_similarity_limit"`
	ConfidenceDecayFactor  float64       `yaml:"confidence_decay_factor"`
	ConfidenceDecayAfter   time.Duration `yaml:"confidence_decay_after"`
	ConfidenceFloor        float64       `yaml:"confidence_floor"`
}

func DefaultScenarioConfig() ScenarioConfig {
	return ScenarioConfig{
		DefaultSimilarityLimit: 10,
		ConfidenceDecayFactor:  0.9,
		ConfidenceDecayAfter:   7 * 24 * time.Hour,
		ConfidenceFloor:        0.1,
	}
}

// BreakerConfig configures the Circuit Breaker (spec §4.5, defaults verbatim).
type BreakerConfig struct {
	FailureThreshold       float64       `yaml:"failure_threshold"`
	Timeout                time.Duration `yaml:"timeout"`
	MonitoringWindow       time.Duration `yaml:"monitoring_window"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
	InitialBackoffDelay    time.Duration `yaml:"initial_backoff_delay"`
	MaxBackoffDelay        time.Duration `yaml:"max_backoff_delay"`
	BackoffMultiplier      float64       `yaml:"backoff_multiplier"`
	HalfOpenThreshold      int           `yaml:"half_open_threshold"`
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:       0.5,
		Timeout:                30 * time.Second,
		MonitoringWindow:       60 * time.Second,
		MaxConsecutiveFailures: 5,
		InitialBackoffDelay:    1 * time.Second,
		MaxBackoffDelay:        60 * time.Second,
		BackoffMultiplier:      2,
		HalfOpenThreshold:      3,
	}
}

// ValidatorConfig configures the Protocol Validator (spec §4.7).
type ValidatorConfig struct {
	MaxRecoveryAttempts int `yaml:"max_recovery_attempts"`
	MaxStringLength     int `yaml:"max_string_length"`
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{MaxRecoveryAttempts: 3, MaxStringLength: 4096}
}

// DegradationConfig configures the Degradation Manager (spec §4.6).
type DegradationConfig struct {
	ConsecutiveHealthFailuresToDowngrade int `yaml:"consecutive_health_failures_to_downgrade"`
}

func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{ConsecutiveHealthFailuresToDowngrade: 3}
}

// LoggingConfig configures the ambient logging facade.
type LoggingConfig struct {
	DebugMode  bool   `yaml:"debug_mode"`
	Level      string `yaml:"level"`
	JSONFormat bool   `yaml:"json_format"`
}

func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{DebugMode: false, Level: "info", JSONFormat: false}
}

// Config is the top-level selectorcache configuration.
type Config struct {
	CacheRoot   string            `yaml:"cache_root"`
	BaseURL     string            `yaml:"base_url"`
	Cache       CacheConfig       `yaml:"cache"`
	Scenario    ScenarioConfig    `yaml:"scenario"`
	Breaker     BreakerConfig     `yaml:"breaker"`
	Validator   ValidatorConfig   `yaml:"validator"`
	Degradation DegradationConfig `yaml:"degradation"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Default returns the full default configuration tree.
func Default() Config {
	return Config{
		Cache:       DefaultCacheConfig(),
		Scenario:    DefaultScenarioConfig(),
		Breaker:     DefaultBreakerConfig(),
		Validator:   DefaultValidatorConfig(),
		Degradation: DefaultDegradationConfig(),
		Logging:     DefaultLoggingConfig(),
	}
}

// FindWorkspaceRoot walks up from the working directory looking for a
// .selectorcache marker directory, falling back to the nearest go.mod, and
// finally to the original working directory.
func FindWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	original := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, ".selectorcache")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return original, nil
}

// Load reads YAML config from path (if it exists) layered on top of
// Default(), then applies environment-variable overrides. A missing file is
// not an error: defaults plus env overrides are a complete configuration on
// their own.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if cfg.CacheRoot == "" {
		root, err := FindWorkspaceRoot()
		if err != nil {
			return nil, err
		}
		cfg.CacheRoot = filepath.Join(root, ".selectorcache", "cache.db")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("SELECTORCACHE_BASE_URL")
	}

	return &cfg, nil
}

// applyEnvOverrides layers SELECTORCACHE_* environment variables onto cfg.
// Every field in §4.5's defaults table is independently overridable so a
// container deployment can tune the breaker without shipping a new image.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SELECTORCACHE_CACHE_ROOT"); v != "" {
		c.CacheRoot = v
	}
	if v := os.Getenv("SELECTORCACHE_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("SELECTORCACHE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
	if v := os.Getenv("SELECTORCACHE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SELECTORCACHE_BREAKER_FAILURE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Breaker.FailureThreshold = f
		}
	}
	if v := os.Getenv("SELECTORCACHE_BREAKER_MAX_CONSECUTIVE_FAILURES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Breaker.MaxConsecutiveFailures = n
		}
	}
	if v := os.Getenv("SELECTORCACHE_BREAKER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Breaker.Timeout = d
		}
	}
	if v := os.Getenv("SELECTORCACHE_BREAKER_MONITORING_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Breaker.MonitoringWindow = d
		}
	}
	if v := os.Getenv("SELECTORCACHE_BREAKER_INITIAL_BACKOFF_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Breaker.InitialBackoffDelay = d
		}
	}
	if v := os.Getenv("SELECTORCACHE_BREAKER_MAX_BACKOFF_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Breaker.MaxBackoffDelay = d
		}
	}
	if v := os.Getenv("SELECTORCACHE_BREAKER_BACKOFF_MULTIPLIER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Breaker.BackoffMultiplier = f
		}
	}
	if v := os.Getenv("SELECTORCACHE_BREAKER_HALF_OPEN_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Breaker.HalfOpenThreshold = n
		}
	}
	if v := os.Getenv("SELECTORCACHE_CACHE_MAX_VARIATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.MaxVariationsPerSelector = n
		}
	}
	if v := os.Getenv("SELECTORCACHE_CACHE_SELECTOR_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cache.SelectorTTL = d
		}
	}
}
