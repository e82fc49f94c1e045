package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)

	// Public.
	r.Get("/health", s.handleHealth())
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	// Admin endpoints. Not mounted if no auth configured.
	if s.cfg.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(s.cfg.Auth, s.logger))
			r.Get("/status", s.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/sessions", s.handleListSessions())
				r.Delete("/sessions/{chatID}", s.handleClearSession())
				r.Post("/sessions/{chatID}/resume", s.handleResume())
				r.Get("/history", s.handleActiveHistory())
				r.Get("/history/{chatID}", s.handleChatHistory())
				r.Delete("/history/{chatID}", s.handleClearHistory())
				r.Get("/config", s.handleGetConfig())
			})
		})
	}

	return r
}
