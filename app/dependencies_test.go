package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/imagegen-proxy/config"
	"github.com/upb/imagegen-proxy/services/providers"
	"go.uber.org/zap/zaptest"
)

func TestNewDependencies(t *testing.T) {
	t.Run("successful initialization with all components", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig()
		logger := zaptest.NewLogger(t)

		deps, err := NewDependencies(ctx, cfg, logger)
		require.NoError(t, err)
		require.NotNil(t, deps)

		// Verify infrastructure
		assert.NotNil(t, deps.Config)
		assert.NotNil(t, deps.Logger)

		// Verify provider
		assert.NotNil(t, deps.ProviderRegistry)
		assert.Equal(t, []string{"aimlapi"}, deps.ProviderRegistry.List())
		assert.Equal(t, "aimlapi", deps.Provider.Name())
		assert.NotNil(t, deps.Fetcher)

		// Verify services and handlers
		assert.NotNil(t, deps.GenerateService)
		assert.NotNil(t, deps.GenerateHandler)
		assert.NotNil(t, deps.HealthHandler)

		// Cleanup
		err = deps.Close(ctx)
		assert.NoError(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := testConfig()
		cfg.Provider.Name = "stability"

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.ErrorIs(t, err, providers.ErrProviderNotFound)
		assert.Contains(t, err.Error(), "failed to initialize provider")
	})
}

func TestProviderConfig(t *testing.T) {
	cfg := testConfig().Provider

	got := ProviderConfig(cfg)

	assert.Equal(t, cfg.BaseURL, got.BaseURL)
	assert.Equal(t, cfg.GenerationsPath, got.GenerationsPath)
	assert.Equal(t, cfg.EditsPath, got.EditsPath)
	assert.Equal(t, cfg.Timeout, got.Timeout)
	assert.Equal(t, cfg.ProbeModel, got.ProbeModel)
	assert.Equal(t, cfg.ProbePrompt, got.ProbePrompt)
	assert.Equal(t, cfg.EditModel, got.EditModel)
	assert.Equal(t, providers.EditModeJSON, got.EditMode)
	assert.Equal(t, cfg.MaxResponseBytes, got.MaxResponseBytes)
	assert.NotNil(t, got.Headers)
}

// Test helpers

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Provider: config.ProviderConfig{
			Name:                  "aimlapi",
			BaseURL:               "http://localhost:9999/v1",
			GenerationsPath:       "/images/generations/",
			EditsPath:             "/images/edits",
			ProbeModel:            "flux/schnell",
			ProbePrompt:           "test connection",
			EditModel:             "openai/gpt-image-1",
			EditMode:              config.EditModeJSON,
			MaxImageBytes:         1 << 20,
			MaxResponseBytes:      1 << 20,
			MaxErrorMessageLength: 300,
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "error",
			LogFormat: "json",
		},
	}
}
