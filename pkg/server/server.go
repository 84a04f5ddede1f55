package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"tally-hq/tally/pkg/config"
	"tally-hq/tally/pkg/limits/admission"
	"tally-hq/tally/pkg/limits/ratelimit"
	"tally-hq/tally/pkg/queue"
	"tally-hq/tally/pkg/telemetry/health"
)

// StatsSources collects the live snapshot functions surfaced on /statsz.
// Nil fields are omitted from the response.
type StatsSources struct {
	Admission   func() admission.Stats
	ChatLimiter func() ratelimit.Stats
	UserLimiter func() ratelimit.Stats
	Queue       func() queue.Stats
	Runtime     func() health.RuntimeStats
}

// AdminServer serves the operator endpoints.
type AdminServer struct {
	cfg     config.AdminConfig
	logger  *slog.Logger
	checker *health.Checker
	metrics http.Handler
	stats   StatsSources
	version string

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates an admin server. metricsHandler may be nil when metrics are
// disabled; /metrics then returns 404.
func New(cfg config.AdminConfig, logger *slog.Logger, checker *health.Checker,
	metricsHandler http.Handler, stats StatsSources, version string) *AdminServer {

	if logger == nil {
		logger = slog.Default()
	}
	if checker == nil {
		checker = health.NewChecker()
	}
	return &AdminServer{
		cfg:     cfg,
		logger:  logger,
		checker: checker,
		metrics: metricsHandler,
		stats:   stats,
		version: version,
	}
}

// Run listens and serves until ctx is cancelled, then shuts down gracefully
// within the configured timeout.
func (s *AdminServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", s.cfg.ListenAddress, err)
	}

	httpServer := &http.Server{
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = httpServer
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening", slog.String("address", listener.Addr().String()))
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("admin server shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	return <-errCh
}

// Addr returns the bound address, for tests that listen on port 0.
func (s *AdminServer) Addr() string {
	return s.cfg.ListenAddress
}

func (s *AdminServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthz", s.checker.LivenessHandler())
	mux.Handle("/readyz", s.checker.ReadinessHandler())
	mux.HandleFunc("/statsz", s.handleStats)
	mux.HandleFunc("/version", s.handleVersion)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

func (s *AdminServer) handleStats(w http.ResponseWriter, _ *http.Request) {
	body := make(map[string]any)
	if s.stats.Admission != nil {
		body["admission"] = s.stats.Admission()
	}
	if s.stats.ChatLimiter != nil {
		body["chat_limiter"] = s.stats.ChatLimiter()
	}
	if s.stats.UserLimiter != nil {
		body["user_limiter"] = s.stats.UserLimiter()
	}
	if s.stats.Queue != nil {
		body["queue"] = s.stats.Queue()
	}
	if s.stats.Runtime != nil {
		body["runtime"] = s.stats.Runtime()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode stats", slog.Any("error", err))
	}
}

func (s *AdminServer) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"version": s.version})
}
