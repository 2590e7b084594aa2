// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port             string
	FrontendURL      string
	DBPath           string
	SessionRetention time.Duration // 0 disables the retention sweeper
	Engine           EngineConfig
	Transcript       TranscriptConfig
}

// EngineConfig holds Workers AI generation settings.
type EngineConfig struct {
	AccountID   string
	APIToken    string
	Model       string
	BaseURL     string // override for local gateways; empty means the public API
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// TranscriptConfig controls NDJSON transcript logging.
type TranscriptConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8787"),
		FrontendURL:      getEnv("FRONTEND_URL", ""),
		DBPath:           getEnv("DB_PATH", "./data/planner.db"),
		SessionRetention: getEnvDuration("SESSION_RETENTION", 0),
		Engine: EngineConfig{
			AccountID:   getEnv("CF_ACCOUNT_ID", ""),
			APIToken:    getEnv("CF_API_TOKEN", ""),
			Model:       getEnv("CF_MODEL", "@cf/meta/llama-3.3-70b-instruct-fp8-fast"),
			BaseURL:     getEnv("CF_API_BASE", ""),
			Temperature: getEnvFloat("GEN_TEMPERATURE", 0.6),
			MaxTokens:   getEnvInt("GEN_MAX_TOKENS", 600),
			Timeout:     getEnvDuration("GEN_TIMEOUT", 60*time.Second),
		},
		Transcript: TranscriptConfig{
			Enabled:   getEnvBool("TRANSCRIPT_LOG_ENABLED", false),
			Dir:       getEnv("TRANSCRIPT_LOG_DIR", "./data/logs/transcripts"),
			QueueSize: getEnvInt("TRANSCRIPT_LOG_QUEUE_SIZE", 1000),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Engine.AccountID == "" {
		return fmt.Errorf("CF_ACCOUNT_ID is required")
	}
	if c.Engine.APIToken == "" {
		return fmt.Errorf("CF_API_TOKEN is required")
	}
	if c.Engine.Model == "" {
		return fmt.Errorf("CF_MODEL cannot be empty")
	}
	if c.Engine.MaxTokens <= 0 {
		return fmt.Errorf("GEN_MAX_TOKENS must be > 0")
	}
	if c.Engine.Temperature < 0 || c.Engine.Temperature > 2 {
		return fmt.Errorf("GEN_TEMPERATURE must be between 0 and 2")
	}
	if c.Transcript.Enabled && c.Transcript.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_LOG_DIR cannot be empty when transcript logging is enabled")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origin list: the configured frontend URL,
// or a wildcard in development.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
