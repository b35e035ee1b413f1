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
	Port         string
	FrontendURL  string
	DBPath       string
	MCPServerURL string

	// Idle sessions older than SessionTTL are evicted by the sweeper,
	// which runs every SweepInterval.
	SessionTTL    time.Duration
	SweepInterval time.Duration

	// DispatchTimeout bounds the authenticate and tool-dispatch calls.
	DispatchTimeout time.Duration

	RateLimitMessages int
	RateLimitWindow   time.Duration

	// Channel profile values, immutable for the process lifetime.
	WhatsAppChunkLimit int
	WebChunkLimit      int

	Twilio TwilioConfig
}

// TwilioConfig holds WhatsApp delivery credentials. The WhatsApp channel
// is only mounted when all three fields are set.
type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	WhatsAppNumber string
}

// Enabled reports whether the WhatsApp channel can be served.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.WhatsAppNumber != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		FrontendURL:        getEnv("FRONTEND_URL", ""),
		DBPath:             getEnv("DB_PATH", "./data/conversations.db"),
		MCPServerURL:       getEnv("MCP_SERVER_URL", "http://localhost:8000/mcp"),
		SessionTTL:         getEnvDuration("SESSION_TTL", 60*time.Minute),
		SweepInterval:      getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
		DispatchTimeout:    getEnvDuration("DISPATCH_TIMEOUT", 30*time.Second),
		RateLimitMessages:  getEnvInt("RATE_LIMIT_MESSAGES", 10),
		RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		WhatsAppChunkLimit: getEnvInt("WHATSAPP_CHUNK_LIMIT", 1600),
		WebChunkLimit:      getEnvInt("WEB_CHUNK_LIMIT", 8000),
		Twilio: TwilioConfig{
			AccountSID:     getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:      getEnv("TWILIO_AUTH_TOKEN", ""),
			WhatsAppNumber: getEnv("TWILIO_WHATSAPP_NUMBER", ""),
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
	if c.MCPServerURL == "" {
		return fmt.Errorf("MCP_SERVER_URL cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if c.RateLimitMessages <= 0 {
		return fmt.Errorf("RATE_LIMIT_MESSAGES must be > 0")
	}
	if c.WhatsAppChunkLimit <= 0 {
		return fmt.Errorf("WHATSAPP_CHUNK_LIMIT must be > 0")
	}
	if c.WebChunkLimit <= 0 {
		return fmt.Errorf("WEB_CHUNK_LIMIT must be > 0")
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
