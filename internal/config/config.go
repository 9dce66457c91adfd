// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration // drain window before open streams are canceled

	// Customer record API (Nessie).
	RecordBaseURL string
	RecordAPIKey  string
	RecordTimeout time.Duration

	// Reasoning engine settings.
	EngineURL     string
	EngineAPIKeys []string // Rotated round-robin, one per session.
	ModelID       string
	MCPServers    []string // Remote tool servers the engine runs for us.
	MaxSteps      int

	// Rate limiting for /adjudicate, per client IP.
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	// Inbound authentication. With neither set, authentication is off.
	JWTPublicKeyPath string
	APIKeyHashes     []string // Argon2id hashes from scripts/genkey.

	CORSAllowedOrigins []string

	// OTEL settings.
	OTELEndpoint string
	ServiceName  string
	OTELInsecure bool

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
// Every malformed variable is reported, not just the first.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := Config{
		RecordBaseURL:      envStr("NESSIE_BASE_URL", "http://api.nessieisreal.com"),
		RecordAPIKey:       envStr("NESSIE_API_KEY", ""),
		EngineURL:          envStr("KANSHI_ENGINE_URL", "https://api.dedaluslabs.ai"),
		ModelID:            envStr("KANSHI_MODEL_ID", "anthropic/claude-opus-4-5"),
		MCPServers:         envList("KANSHI_MCP_SERVERS", []string{"tsion/exa"}),
		JWTPublicKeyPath:   envStr("KANSHI_JWT_PUBLIC_KEY", ""),
		APIKeyHashes:       envList("KANSHI_API_KEY_HASHES", nil),
		CORSAllowedOrigins: envList("KANSHI_CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		OTELEndpoint:       envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:        envStr("OTEL_SERVICE_NAME", "kanshi"),
		LogLevel:           envStr("KANSHI_LOG_LEVEL", "info"),
	}

	// The engine SDK convention is a single DEDALUS_API_KEY.
	cfg.EngineAPIKeys = envList("KANSHI_ENGINE_API_KEYS", nil)
	if len(cfg.EngineAPIKeys) == 0 {
		cfg.EngineAPIKeys = envList("DEDALUS_API_KEY", nil)
	}

	var err error
	cfg.Port, err = envInt("KANSHI_PORT", 8080)
	collect(err)
	cfg.ReadTimeout, err = envDuration("KANSHI_READ_TIMEOUT", 30*time.Second)
	collect(err)
	cfg.WriteTimeout, err = envDuration("KANSHI_WRITE_TIMEOUT", 30*time.Second)
	collect(err)
	cfg.ShutdownTimeout, err = envDuration("KANSHI_SHUTDOWN_TIMEOUT", 10*time.Second)
	collect(err)
	cfg.RecordTimeout, err = envDuration("KANSHI_RECORD_TIMEOUT", 10*time.Second)
	collect(err)
	cfg.MaxSteps, err = envInt("KANSHI_MAX_STEPS", 10)
	collect(err)
	cfg.RateLimitEnabled, err = envBool("KANSHI_RATE_LIMIT_ENABLED", true)
	collect(err)
	cfg.RateLimitRPS, err = envFloat("KANSHI_RATE_LIMIT_RPS", 1)
	collect(err)
	cfg.RateLimitBurst, err = envInt("KANSHI_RATE_LIMIT_BURST", 5)
	collect(err)
	cfg.OTELInsecure, err = envBool("KANSHI_OTEL_INSECURE", false)
	collect(err)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and in range. An
// empty engine key list is not an error: the credential pool degrades to a
// sentinel key instead.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: KANSHI_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("config: KANSHI_MAX_STEPS must be positive")
	}
	if c.RecordTimeout <= 0 {
		return fmt.Errorf("config: KANSHI_RECORD_TIMEOUT must be positive")
	}
	for name, raw := range map[string]string{"NESSIE_BASE_URL": c.RecordBaseURL, "KANSHI_ENGINE_URL": c.EngineURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: %s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.ModelID == "" {
		return fmt.Errorf("config: KANSHI_MODEL_ID is required")
	}
	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0) {
		return fmt.Errorf("config: KANSHI_RATE_LIMIT_RPS and KANSHI_RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

// envList splits a comma-separated variable, dropping blank entries.
func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
