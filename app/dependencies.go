package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/upb/imagegen-proxy/config"
	"github.com/upb/imagegen-proxy/handlers"
	"github.com/upb/imagegen-proxy/services/generate"
	"github.com/upb/imagegen-proxy/services/imaging"
	"github.com/upb/imagegen-proxy/services/providers"
	"github.com/upb/imagegen-proxy/services/providers/aimlapi"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Provider
	ProviderRegistry *providers.Registry
	Provider         providers.ImageProvider
	Fetcher          *imaging.Fetcher

	// Services
	GenerateService *generate.Service

	// Handlers
	GenerateHandler *handlers.GenerateHandler
	HealthHandler   *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize provider
	if err := deps.initProvider(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize provider: %w", err)
	}

	// Initialize image fetcher
	deps.Fetcher = imaging.NewFetcher(&http.Client{Timeout: cfg.Provider.Timeout}, cfg.Provider.MaxImageBytes)

	// Initialize services
	deps.GenerateService = generate.NewService(deps.Provider, deps.Fetcher, generate.Options{
		MaxErrorMessageLength: cfg.Provider.MaxErrorMessageLength,
	}, logger)

	// Initialize handlers
	deps.GenerateHandler = handlers.NewGenerateHandler(deps.GenerateService, logger)
	deps.HealthHandler = handlers.NewHealthHandler(logger)

	logger.Info("all dependencies initialized successfully",
		zap.String("provider", deps.Provider.Name()),
		zap.String("base_url", cfg.Provider.BaseURL),
		zap.String("edit_mode", cfg.Provider.EditMode))
	return deps, nil
}

// initProvider builds the configured image provider from the registry
func (d *Dependencies) initProvider(cfg *config.Config) error {
	registry := providers.NewRegistry()
	if err := registry.Register(aimlapi.ProviderName, aimlapi.Factory); err != nil {
		return err
	}

	provider, err := registry.New(cfg.Provider.Name, ProviderConfig(cfg.Provider))
	if err != nil {
		return err
	}

	d.ProviderRegistry = registry
	d.Provider = provider
	d.Logger.Info("provider registered", zap.String("provider", provider.Name()))
	return nil
}

// ProviderConfig maps the process configuration onto the provider layer
func ProviderConfig(cfg config.ProviderConfig) providers.ProviderConfig {
	return providers.ProviderConfig{
		BaseURL:          cfg.BaseURL,
		GenerationsPath:  cfg.GenerationsPath,
		EditsPath:        cfg.EditsPath,
		Timeout:          cfg.Timeout,
		ProbeModel:       cfg.ProbeModel,
		ProbePrompt:      cfg.ProbePrompt,
		EditModel:        cfg.EditModel,
		EditMode:         providers.EditMode(cfg.EditMode),
		MaxResponseBytes: cfg.MaxResponseBytes,
		Headers:          make(map[string]string),
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return nil
}
