package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Provider      ProviderConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host             string
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration // zero leaves provider round-trips unbounded
	ShutdownTimeout  time.Duration
	AllowedOrigins   []string
	AllowCredentials bool
}

// ProviderConfig holds the image-generation provider configuration.
// The API key is not configured here: callers send their own per request.
type ProviderConfig struct {
	Name            string
	BaseURL         string
	GenerationsPath string
	EditsPath       string
	Timeout         time.Duration // zero keeps the transport default
	ProbeModel      string
	ProbePrompt     string
	EditModel       string
	EditMode        string // multipart or json

	MaxImageBytes         int64
	MaxResponseBytes      int64
	MaxErrorMessageLength int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

const (
	EditModeMultipart = "multipart"
	EditModeJSON      = "json"
)

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:             getEnv("SERVER_HOST", "0.0.0.0"),
			Port:             getPort(),
			ReadTimeout:      getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:     getEnvAsDuration("SERVER_WRITE_TIMEOUT", 0),
			ShutdownTimeout:  getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:   getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
		},
		Provider: ProviderConfig{
			Name:                  getEnv("IMAGE_PROVIDER", "aimlapi"),
			BaseURL:               getEnv("IMAGE_PROVIDER_BASE_URL", "https://api.aimlapi.com/v1"),
			GenerationsPath:       getEnv("IMAGE_PROVIDER_GENERATIONS_PATH", "/images/generations/"),
			EditsPath:             getEnv("IMAGE_PROVIDER_EDITS_PATH", "/images/edits"),
			Timeout:               getEnvAsDuration("IMAGE_PROVIDER_TIMEOUT", 0),
			ProbeModel:            getEnv("IMAGE_PROBE_MODEL", "flux/schnell"),
			ProbePrompt:           getEnv("IMAGE_PROBE_PROMPT", "test connection"),
			EditModel:             getEnv("IMAGE_EDIT_MODEL", "openai/gpt-image-1"),
			EditMode:              strings.ToLower(getEnv("IMAGE_EDIT_MODE", EditModeMultipart)),
			MaxImageBytes:         getEnvAsInt64("IMAGE_MAX_BYTES", 20<<20),
			MaxResponseBytes:      getEnvAsInt64("IMAGE_PROVIDER_MAX_RESPONSE_BYTES", 32<<20),
			MaxErrorMessageLength: getEnvAsInt("UPSTREAM_ERROR_MAX_LENGTH", 300),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("image provider base URL is required")
	}
	if !strings.HasPrefix(c.Provider.BaseURL, "http://") && !strings.HasPrefix(c.Provider.BaseURL, "https://") {
		return fmt.Errorf("image provider base URL must be http or https: %s", c.Provider.BaseURL)
	}

	switch c.Provider.EditMode {
	case EditModeMultipart, EditModeJSON:
	default:
		return fmt.Errorf("unsupported image edit mode %q (want %s or %s)", c.Provider.EditMode, EditModeMultipart, EditModeJSON)
	}

	if c.Provider.EditMode == EditModeJSON && c.Provider.EditModel == "" {
		return fmt.Errorf("image edit model is required in json edit mode")
	}

	if c.Provider.ProbeModel == "" {
		return fmt.Errorf("probe model is required")
	}

	if c.Provider.MaxImageBytes <= 0 {
		return fmt.Errorf("max image bytes must be positive")
	}

	if c.Provider.MaxResponseBytes <= 0 {
		return fmt.Errorf("max provider response bytes must be positive")
	}

	if c.Provider.MaxErrorMessageLength <= 0 {
		return fmt.Errorf("upstream error max length must be positive")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice splits a comma-separated value, dropping empty items
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
