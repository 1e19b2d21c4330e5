package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Timeouts for the metrics listener.
const (
	scrapeReadHeaderTimeout = 10 * time.Second
	scrapeShutdownTimeout   = 5 * time.Second
)

// Server serves the Prometheus scrape endpoint and a liveness probe on a
// plain HTTP port, separate from the TLS application listener.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// New builds the metrics server for the given port.
func New(port int, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthz)

	return &Server{
		srv: &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(port)),
			Handler:           mux,
			ReadHeaderTimeout: scrapeReadHeaderTimeout,
		},
		log: logger.Named("metrics_server"),
	}
}

// Start begins serving in a background goroutine and returns immediately.
// Use Shutdown to stop the listener.
func (s *Server) Start() {
	s.log.Info("metrics listener starting", zap.String("address", s.srv.Addr))

	go func() {
		err := s.srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics listener failed", zap.Error(err))
		}
	}()
}

// Shutdown drains in-flight scrapes and closes the listener.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), scrapeShutdownTimeout)
	defer cancel()

	s.log.Info("metrics listener stopping")
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Error("metrics listener shutdown failed", zap.Error(err))
	}
}
