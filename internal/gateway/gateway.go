// Package gateway provides the admin HTTP API over live sessions and the
// conversation history. It binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/convo/internal/config"
	"github.com/flemzord/convo/internal/history"
	"github.com/flemzord/convo/internal/session"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Sessions is the subset of session.Manager served by the gateway.
type Sessions interface {
	Len() int
	Range(fn func(session.ChatID, session.Session) bool)
	Session(chatID session.ChatID) (session.Session, bool)
	ClearSession(chatID session.ChatID) bool
	ResumeSession(chatID session.ChatID, conversationID string) (session.Session, bool)
	ResumeLastSession(chatID session.ChatID) (session.Session, bool)
	SessionHistory(chatID session.ChatID, limit int) []history.Entry
}

// History is the subset of history.Store served by the gateway.
type History interface {
	AllActiveSessions() map[history.ChatID]history.Entry
	ClearHistory(chatID history.ChatID)
}

// Compile-time interface checks.
var (
	_ Sessions = (*session.Manager)(nil)
	_ History  = (*history.Store)(nil)
)

// Server is the admin HTTP gateway.
type Server struct {
	cfg      config.GatewayConfig
	sessions Sessions
	history  History
	metrics  http.Handler
	tracer   trace.Tracer
	logger   *slog.Logger
	snapshot *config.Config

	server    *http.Server
	startedAt time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithTracerProvider wraps every request in a server span.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		if tp != nil {
			s.tracer = tp.Tracer("github.com/flemzord/convo/internal/gateway")
		}
	}
}

// WithConfig exposes cfg, with secrets redacted, on GET /api/config.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) { s.snapshot = cfg }
}

// New creates a gateway. cfg must have defaults applied.
func New(cfg config.GatewayConfig, sessions Sessions, hist History, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		sessions:  sessions,
		history:   hist,
		tracer:    noop.NewTracerProvider().Tracer(""),
		logger:    slog.Default(),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.Auth.IsConfigured() {
		s.logger.Warn("gateway: no auth configured, admin API is not mounted")
	}

	s.startedAt = time.Now()
	s.server = &http.Server{
		Addr:         s.cfg.Bind,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	go func() {
		s.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway serve error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("gateway shutting down")
	return s.server.Shutdown(shutdownCtx)
}
