// Package config provides configuration loading and validation for the interview agent.
//
// Values are layered: built-in defaults, then an optional YAML or JSON file, then
// environment variables. CLI flags are applied last by cmd.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/interview-coach/internal/llm"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
)

// Duration is a time.Duration that reads as "30s" from YAML and JSON.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML accepts a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.parse(value.Value)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Interview InterviewConfig `json:"interview" yaml:"interview"`
	Auth      AuthConfig      `json:"auth" yaml:"auth"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int      `json:"port,omitempty" yaml:"port,omitempty"`
	ReadTimeout     Duration `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
	WriteTimeout    Duration `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty"`
	ShutdownTimeout Duration `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
	AllowedOrigin   string   `json:"allowed_origin,omitempty" yaml:"allowed_origin,omitempty"`
}

// ModelsConfig overrides the model used per tier.
type ModelsConfig struct {
	Lite     string `json:"lite,omitempty" yaml:"lite,omitempty"`
	Standard string `json:"standard,omitempty" yaml:"standard,omitempty"`
	Advanced string `json:"advanced,omitempty" yaml:"advanced,omitempty"`
}

// LLMConfig selects and configures the generation provider.
type LLMConfig struct {
	Provider string       `json:"provider,omitempty" yaml:"provider,omitempty"`
	APIKey   string       `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Models   ModelsConfig `json:"models,omitempty" yaml:"models,omitempty"`
	Timeout  Duration     `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// StoreConfig selects the thread store.
type StoreConfig struct {
	Driver        string   `json:"driver,omitempty" yaml:"driver,omitempty"`
	DatabaseURL   string   `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	RedisAddr     string   `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string   `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int      `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	RedisTTL      Duration `json:"redis_ttl,omitempty" yaml:"redis_ttl,omitempty"`
	SQLitePath    string   `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
}

// InterviewConfig tunes the stages and the controller.
type InterviewConfig struct {
	ScorecardMinText   int `json:"scorecard_min_text,omitempty" yaml:"scorecard_min_text,omitempty"`
	EvaluationAttempts int `json:"evaluation_attempts,omitempty" yaml:"evaluation_attempts,omitempty"`
	MaxConcurrentTurns int `json:"max_concurrent_turns,omitempty" yaml:"max_concurrent_turns,omitempty"`
	// DisableJobFetch turns off fetching job posting links pasted during intake.
	DisableJobFetch bool     `json:"disable_job_fetch,omitempty" yaml:"disable_job_fetch,omitempty"`
	MaxFetchURLs    int      `json:"max_fetch_urls,omitempty" yaml:"max_fetch_urls,omitempty"`
	MaxPostingRunes int      `json:"max_posting_runes,omitempty" yaml:"max_posting_runes,omitempty"`
	FetchCacheTTL   Duration `json:"fetch_cache_ttl,omitempty" yaml:"fetch_cache_ttl,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(300 * time.Second), // Turns can chain three generation calls
			ShutdownTimeout: Duration(30 * time.Second),
			AllowedOrigin:   "*",
		},
		LLM: LLMConfig{
			Provider: string(llm.ProviderGemini),
			Timeout:  Duration(60 * time.Second),
		},
		Store: StoreConfig{
			Driver:     DriverMemory,
			RedisAddr:  "localhost:6379",
			SQLitePath: "interview-threads.db",
		},
		Interview: InterviewConfig{
			ScorecardMinText:   50,
			EvaluationAttempts: 2,
			MaxConcurrentTurns: 16,
			MaxFetchURLs:       2,
			MaxPostingRunes:    6000,
			FetchCacheTTL:      Duration(time.Hour),
		},
		Auth: AuthConfig{
			ExpirationHours: 24,
		},
	}
}

// LoadConfig loads configuration from a YAML (.yaml, .yml) or JSON (.json) file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}

	return &cfg, nil
}

// Load builds the effective configuration from defaults, the optional file at path,
// and the process environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg.MergeWithDefaults(cfg)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' must be between 0 and 65535, got %d", c.Server.Port)
	}
	if _, err := llm.ParseProvider(c.LLM.Provider); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("config error: 'llm.timeout' must be non-negative")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("config error: 'store.database_url' is required for the postgres driver")
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("config error: 'store.redis_addr' is required for the redis driver")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("config error: 'store.sqlite_path' is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config error: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.RedisTTL < 0 {
		return fmt.Errorf("config error: 'store.redis_ttl' must be non-negative")
	}

	iv := c.Interview
	if iv.ScorecardMinText < 0 {
		return fmt.Errorf("config error: 'interview.scorecard_min_text' must be non-negative")
	}
	if iv.EvaluationAttempts < 1 {
		return fmt.Errorf("config error: 'interview.evaluation_attempts' must be at least 1")
	}
	if iv.MaxConcurrentTurns < 0 || iv.MaxFetchURLs < 0 || iv.MaxPostingRunes < 0 {
		return fmt.Errorf("config error: interview limits must be non-negative")
	}

	if c.Auth.Enabled {
		if _, err := c.Auth.JWT(); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
// Bool fields cannot distinguish unset from false and are taken as-is.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	mergeString(&result.Server.AllowedOrigin, defaults.Server.AllowedOrigin)
	mergeInt(&result.Server.Port, defaults.Server.Port)
	mergeDuration(&result.Server.ReadTimeout, defaults.Server.ReadTimeout)
	mergeDuration(&result.Server.WriteTimeout, defaults.Server.WriteTimeout)
	mergeDuration(&result.Server.ShutdownTimeout, defaults.Server.ShutdownTimeout)

	mergeString(&result.LLM.Provider, defaults.LLM.Provider)
	mergeString(&result.LLM.APIKey, defaults.LLM.APIKey)
	mergeString(&result.LLM.Models.Lite, defaults.LLM.Models.Lite)
	mergeString(&result.LLM.Models.Standard, defaults.LLM.Models.Standard)
	mergeString(&result.LLM.Models.Advanced, defaults.LLM.Models.Advanced)
	mergeDuration(&result.LLM.Timeout, defaults.LLM.Timeout)

	mergeString(&result.Store.Driver, defaults.Store.Driver)
	mergeString(&result.Store.DatabaseURL, defaults.Store.DatabaseURL)
	mergeString(&result.Store.RedisAddr, defaults.Store.RedisAddr)
	mergeString(&result.Store.RedisPassword, defaults.Store.RedisPassword)
	mergeInt(&result.Store.RedisDB, defaults.Store.RedisDB)
	mergeDuration(&result.Store.RedisTTL, defaults.Store.RedisTTL)
	mergeString(&result.Store.SQLitePath, defaults.Store.SQLitePath)

	mergeInt(&result.Interview.ScorecardMinText, defaults.Interview.ScorecardMinText)
	mergeInt(&result.Interview.EvaluationAttempts, defaults.Interview.EvaluationAttempts)
	mergeInt(&result.Interview.MaxConcurrentTurns, defaults.Interview.MaxConcurrentTurns)
	mergeInt(&result.Interview.MaxFetchURLs, defaults.Interview.MaxFetchURLs)
	mergeInt(&result.Interview.MaxPostingRunes, defaults.Interview.MaxPostingRunes)
	mergeDuration(&result.Interview.FetchCacheTTL, defaults.Interview.FetchCacheTTL)

	mergeString(&result.Auth.Secret, defaults.Auth.Secret)
	mergeString(&result.Auth.Issuer, defaults.Auth.Issuer)
	mergeInt(&result.Auth.ExpirationHours, defaults.Auth.ExpirationHours)

	return result
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func mergeDuration(dst *Duration, def Duration) {
	if *dst == 0 {
		*dst = def
	}
}

// LLMClientConfig returns the llm package configuration: provider defaults with per-tier overrides.
func (c *Config) LLMClientConfig() (*llm.Config, error) {
	provider, err := llm.ParseProvider(c.LLM.Provider)
	if err != nil {
		return nil, err
	}
	cfg := llm.DefaultConfigFor(provider)
	for tier, model := range map[llm.ModelTier]string{
		llm.TierLite:     c.LLM.Models.Lite,
		llm.TierStandard: c.LLM.Models.Standard,
		llm.TierAdvanced: c.LLM.Models.Advanced,
	} {
		if model != "" {
			cfg = cfg.WithModel(tier, model)
		}
	}
	return cfg, nil
}
