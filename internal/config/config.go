// Package config provides configuration loading and validation for the CLI
// and the HTTP server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Limits enforced by Validate.
const (
	MaxTasksPerLesson    = 20
	MaxCommitConcurrency = 50
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values come from the environment, then
// from Defaults. CLI flags override everything.
type Config struct {
	// Connections
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	RedisAddr   string `json:"redis_addr,omitempty"`   // Redis address for the progress bus; empty uses in-memory

	// Generation
	Model              string `json:"model,omitempty"`               // Gemini model override for task generation
	TasksPerLesson     int    `json:"tasks_per_lesson,omitempty"`    // Tasks requested per lesson
	CommitConcurrency  int    `json:"commit_concurrency,omitempty"`  // Simultaneous task writes
	IncludeUnpublished *bool  `json:"include_unpublished,omitempty"` // Scan unpublished lessons too
	DefaultXP          int    `json:"default_xp,omitempty"`          // XP for tasks the generator left unscored

	// Service
	LogMode string `json:"log_mode,omitempty"` // "dev" or "prod"
	Port    int    `json:"port,omitempty"`     // HTTP port for serve
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	include := true
	return Config{
		TasksPerLesson:     5,
		CommitConcurrency:  5,
		IncludeUnpublished: &include,
		DefaultXP:          100,
		LogMode:            "dev",
		Port:               8080,
	}
}

// LoadConfig loads configuration from a JSON file.
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
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those depend on the
// command being run.
func (c *Config) Validate() error {
	if c.TasksPerLesson < 0 {
		return fmt.Errorf("config error: 'tasks_per_lesson' must be non-negative")
	}
	if c.TasksPerLesson > MaxTasksPerLesson {
		return fmt.Errorf("config error: 'tasks_per_lesson' must be at most %d", MaxTasksPerLesson)
	}
	if c.CommitConcurrency < 0 {
		return fmt.Errorf("config error: 'commit_concurrency' must be non-negative")
	}
	if c.CommitConcurrency > MaxCommitConcurrency {
		return fmt.Errorf("config error: 'commit_concurrency' must be at most %d", MaxCommitConcurrency)
	}
	if c.DefaultXP < 0 {
		return fmt.Errorf("config error: 'default_xp' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	switch strings.ToLower(c.LogMode) {
	case "", "dev", "development", "prod", "production":
	default:
		return fmt.Errorf("config error: 'log_mode' must be dev or prod, got %q", c.LogMode)
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.RedisAddr == "" {
		result.RedisAddr = defaults.RedisAddr
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.LogMode == "" {
		result.LogMode = defaults.LogMode
	}

	// Int fields: use default if zero
	if result.TasksPerLesson == 0 {
		result.TasksPerLesson = defaults.TasksPerLesson
	}
	if result.CommitConcurrency == 0 {
		result.CommitConcurrency = defaults.CommitConcurrency
	}
	if result.DefaultXP == 0 {
		result.DefaultXP = defaults.DefaultXP
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Pointer bools distinguish unset from false
	if result.IncludeUnpublished == nil && defaults.IncludeUnpublished != nil {
		include := *defaults.IncludeUnpublished
		result.IncludeUnpublished = &include
	}

	return result
}

// ApplyEnv fills empty connection and logging fields from the environment.
func (c *Config) ApplyEnv() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.RedisAddr == "" {
		c.RedisAddr = os.Getenv("REDIS_ADDR")
	}
	if c.LogMode == "" {
		c.LogMode = os.Getenv("LOG_MODE")
	}
}

// ShouldIncludeUnpublished reports the include_unpublished setting, treating
// unset as true.
func (c *Config) ShouldIncludeUnpublished() bool {
	return c.IncludeUnpublished == nil || *c.IncludeUnpublished
}

// Resolve loads the config file at path (when non-empty), applies the
// environment and fills the remaining fields from Defaults.
func Resolve(path string) (Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return Config{}, err
	}
	return merged, nil
}
