// Package metrics serves the Prometheus scrape endpoint on its own listener,
// separate from the gateway's client-facing port.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	Enabled bool
	Addr    string
	Path    string
}

type Server struct {
	cfg    Config
	logger *slog.Logger
	srv    *http.Server
}

func NewServer(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	return &Server{
		cfg:    cfg,
		logger: logger,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the scrape handler for mounting on an existing router.
func Handler() http.Handler { return promhttp.Handler() }

// Run serves the scrape endpoint until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("metrics server listening", "addr", s.cfg.Addr, "path", s.cfg.Path)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
