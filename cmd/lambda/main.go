package main

import (
	"context"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/upb/imagegen-proxy/app"
	"github.com/upb/imagegen-proxy/config"
	"github.com/upb/imagegen-proxy/internal/observability"
	"github.com/upb/imagegen-proxy/pkg/lambda"
	"github.com/upb/imagegen-proxy/routes"
)

var handler *lambda.Handler

func init() {
	ctx := context.Background()

	cfg, err := config.New(ctx)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger, err := observability.NewLogger(observability.LoggerConfig{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		panic("Failed to initialize dependencies: " + err.Error())
	}

	handler = lambda.NewHandler(routes.SetupRoutes(deps), logger)
}

func main() {
	awslambda.Start(handler.Handle)
}
