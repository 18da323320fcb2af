// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend strategy names.
const (
	BackendThread     = "thread"
	BackendCompletion = "completion"
)

// Config holds all application configuration. It is loaded once at startup
// and treated as immutable afterwards.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	CatalogPath string

	// Backend selects the completion strategy: "thread" keeps conversation
	// state server-side, "completion" ships history on every turn.
	Backend string

	// DevUserID, when set, is the fallback identity used for requests that
	// carry no identity cookie. Intended for local development only.
	DevUserID string

	LLM    LLMConfig
	Stream StreamConfig
}

// LLMConfig holds completion-backend settings shared by both strategies.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	AssistantID string
}

// StreamConfig bounds streaming behavior.
type StreamConfig struct {
	TurnTimeout        time.Duration
	ThreadLockTimeout  time.Duration
	MaxRequestBodySize int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/questline.db"),
		CatalogPath: getEnv("CATALOG_PATH", ""),
		Backend:     getEnv("LLM_BACKEND", BackendCompletion),
		DevUserID:   getEnv("DEV_USER_ID", ""),
		LLM: LLMConfig{
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			AssistantID: getEnv("LLM_ASSISTANT_ID", ""),
		},
		Stream: StreamConfig{
			TurnTimeout:        getEnvDuration("STREAM_TURN_TIMEOUT", 2*time.Minute),
			ThreadLockTimeout:  getEnvDuration("THREAD_LOCK_TIMEOUT", 30*time.Second),
			MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
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
	switch c.Backend {
	case BackendThread:
		if c.LLM.AssistantID == "" {
			return fmt.Errorf("LLM_ASSISTANT_ID is required for the thread backend")
		}
	case BackendCompletion:
	default:
		return fmt.Errorf("LLM_BACKEND must be %q or %q, got %q", BackendThread, BackendCompletion, c.Backend)
	}
	if c.Stream.TurnTimeout <= 0 {
		return fmt.Errorf("STREAM_TURN_TIMEOUT must be > 0")
	}
	if c.Stream.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
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
