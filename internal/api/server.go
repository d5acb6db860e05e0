// Package api exposes the sync engine over HTTP.
//
//	POST /v1/sync/push     apply a batch of operations
//	POST /v1/sync/pull     fetch changes after a cursor
//	POST /v1/sync/full     push, then pull from the request cursor
//	GET  /v1/sync/changes  websocket change notifications
//	GET  /v1/stats         per-account counts and latency averages
//	GET  /healthz          liveness
//
// Every /v1 route requires an authenticated account and is rate limited
// per account. Per-operation failures are reported inside a 200 push
// response; only request-level failures use error statuses.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/engine"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/monitor"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/notify"
)

// Config holds transport settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	MaxBodyBytes int64
}

// DefaultConfig returns the settings used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		CORSOrigins:  []string{"*"},
		MaxBodyBytes: 10 << 20,
	}
}

// Server is the HTTP front end of an Engine.
type Server struct {
	engine  *engine.Engine
	auth    Authenticator
	cfg     Config
	limiter *RateLimiter
	hub     *notify.Hub
	monitor *monitor.Monitor
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimiter enables per-account rate limiting.
func WithRateLimiter(l *RateLimiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithHub enables the websocket change feed.
func WithHub(h *notify.Hub) Option {
	return func(s *Server) {
		s.hub = h
	}
}

// WithMonitor records request latency in m.
func WithMonitor(m *monitor.Monitor) Option {
	return func(s *Server) {
		s.monitor = m
	}
}

// NewServer creates a Server. Zero fields of cfg take DefaultConfig values.
func NewServer(eng *engine.Engine, auth Authenticator, cfg Config, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}

	s := &Server{engine: eng, auth: auth, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.monitor == nil {
		s.monitor = monitor.New(0)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("POST /v1/sync/push", s.withAuth(s.handlePush))
	mux.Handle("POST /v1/sync/pull", s.withAuth(s.handlePull))
	mux.Handle("POST /v1/sync/full", s.withAuth(s.handleFull))
	mux.Handle("GET /v1/stats", s.withAuth(s.handleStats))
	if s.hub != nil {
		mux.Handle("GET /v1/sync/changes", s.withAuth(s.handleChanges))
	}
	s.handler = s.withCORS(mux)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("sync server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("sync server stopped")
	return nil
}

// withAuth resolves the account, applies its rate limit and stores it in
// the request context.
func (s *Server) withAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, err := s.auth.Authenticate(r)
		if err != nil || account == "" {
			fail(w, http.StatusUnauthorized, ErrorDetail{
				Code:    string(engine.ErrCodeUnauthorized),
				Message: ErrUnauthenticated.Error(),
			})
			return
		}
		if s.limiter != nil && !s.limiter.Allow(account) {
			w.Header().Set("Retry-After", "60")
			fail(w, http.StatusTooManyRequests, ErrorDetail{Code: CodeRateLimited, Message: "rate limit exceeded"})
			return
		}
		next(w, r.WithContext(WithAccount(r.Context(), account)))
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.cfg.CORSOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
