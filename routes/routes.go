package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/imagegen-proxy/app"
	"github.com/upb/imagegen-proxy/middleware"
	"github.com/upb/imagegen-proxy/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Core middleware. No request timeout: provider calls run as long as
	// the provider takes.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog(deps.Logger))
	r.Use(chimiddleware.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: deps.Config.Server.AllowCredentials,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)

	// Image operations. Registered for every method; the handler answers
	// non-POST requests with 405.
	r.HandleFunc("/generate", deps.GenerateHandler.HandleGenerate)
	r.HandleFunc("/api/generate", deps.GenerateHandler.HandleGenerate)

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteMethodNotAllowed(w, r.Method, http.MethodGet)
	})

	return r
}
