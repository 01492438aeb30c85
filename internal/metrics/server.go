package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TokenState is the view of the token lifecycle the status endpoint reports on.
type TokenState interface {
	ExpiresIn() time.Duration
	IsExpired() bool
	Running() bool
	Err() error
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status           string `json:"status"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
	AutoRefresh      bool   `json:"autoRefresh"`
	Error            string `json:"error,omitempty"`
}

// NewRouter returns the status routes: GET /healthz and GET /metrics.
func NewRouter(state TokenState, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status:           "ok",
			ExpiresInSeconds: int64(state.ExpiresIn() / time.Second),
			AutoRefresh:      state.Running(),
		}
		code := http.StatusOK

		if err := state.Err(); err != nil {
			resp.Status = "refresh_abandoned"
			resp.Error = err.Error()
			code = http.StatusServiceUnavailable
		} else if state.IsExpired() {
			resp.Status = "expired"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// Server serves the status routes until its context ends.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
}

// Listen binds addr. Use "127.0.0.1:0" for an ephemeral port.
func Listen(addr string, handler http.Handler, logger *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &Server{
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
		logger:   logger,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(s.listener)
	}()

	s.logger.Info("Status server listening", "addr", s.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("status server shutdown: %w", err)
		}
		return nil
	}
}
