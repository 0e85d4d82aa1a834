package server

import (
	"context"
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/appid"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/observability"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/server/handlers"
)

func (s *Server) registerRoutes() {
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)

	// Proxies the exporter so one port serves API and scrape traffic.
	s.router.Get("/metrics", MetricsHandler)

	s.router.Route("/api/v1", func(r chi.Router) {
		api := s.api

		r.Post("/prompts/synthesize", api.Synthesize)
		r.Post("/prompts/decompose", api.Decompose)
		r.Post("/prompts/fields", api.Fields)
		r.Post("/options/suggest", api.SuggestOptions)
		r.Post("/documents/translate", api.Translate)
		r.Post("/images", api.GenerateImage)

		r.Get("/history", api.ListHistory)
		r.Delete("/history/{id}", api.DeleteHistory)

		r.Get("/styles", api.ListStyles)
		r.Post("/styles", api.SaveStyle)
		r.Delete("/styles/{id}", api.DeleteStyle)

		r.Get("/templates", api.ListTemplates)
		r.Post("/templates", api.SaveTemplate)
		r.Delete("/templates/{id}", api.DeleteTemplate)
	})

	s.registerAdminEndpoint()
}

const (
	adminSignalPath      = "/admin/signal"
	adminSignalRateLimit = 10 // per minute
	adminSignalBurst     = 5
)

// registerAdminEndpoint mounts the gofulmen signal handler when
// <PREFIX>ADMIN_TOKEN is set. Requests need the token as a bearer credential.
func (s *Server) registerAdminEndpoint() {
	tokenVar := appid.Resolve(context.Background()).EnvPrefix + "ADMIN_TOKEN"
	token := os.Getenv(tokenVar)
	logger := observability.ServerLogger

	if token == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled", zap.String("env", tokenVar))
		}
		return
	}

	s.router.Post(adminSignalPath, signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: token,
		RateLimit: adminSignalRateLimit,
		RateBurst: adminSignalBurst,
	}).ServeHTTP)

	if logger == nil {
		return
	}
	logger.Warn("Admin signal endpoint enabled; keep this server off public networks",
		zap.String("path", adminSignalPath),
		zap.Int("rate_limit_per_min", adminSignalRateLimit),
		zap.Int("burst", adminSignalBurst))
}
