package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/oobkit/oobkit/pkg/duration"
)

// Path is where the metrics endpoint is mounted.
const Path = "/metrics"

// Server exposes a Collector over HTTP until Close is called.
type Server struct {
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Serve starts serving c on addr (e.g. ":9464") in the background.
func Serve(addr string, c *Collector, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(Path, c.Handler())

	s := &Server{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: duration.MetricsReadHeader,
		},
		listener: ln,
		logger:   logger,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()

	logger.Info("metrics server listening", slog.String("addr", s.Addr()))
	return s, nil
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// URL returns the full metrics endpoint URL.
func (s *Server) URL() string {
	return "http://" + s.Addr() + Path
}

// Close shuts down the metrics server.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), duration.TelemetryShutdown)
	defer cancel()
	return s.server.Shutdown(ctx)
}
