// Package router assembles the HTTP surface of the reception agent.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/smiledental/reception-agent/internal/chat"
	httpmiddleware "github.com/smiledental/reception-agent/internal/http/middleware"
	"github.com/smiledental/reception-agent/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *chat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-IP rate limiting for the public chat endpoints. Zero disables it.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handleHealth)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ChatHandler != nil {
		r.Group(func(public chi.Router) {
			if cfg.RateLimitPerSecond > 0 {
				public.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
			}
			public.Route("/api/chat", func(r chi.Router) {
				r.Post("/session", cfg.ChatHandler.HandleStartSession)
				r.Post("/message", cfg.ChatHandler.HandleMessage)
				r.Post("/reset", cfg.ChatHandler.HandleReset)
				r.Post("/end", cfg.ChatHandler.HandleEndSession)
				r.Get("/history", cfg.ChatHandler.HandleHistory)
			})
			public.Get("/ws/chat", cfg.ChatHandler.HandleWebSocket)
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "service": "reception-agent"})
}
