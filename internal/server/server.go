// Package server runs the HTTPS listener and ties its lifetime to a context.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// readHeaderTimeout bounds how long a client may take to send request headers.
const readHeaderTimeout = 10 * time.Second

// Config carries the listen address and the drain deadline for shutdown.
type Config struct {
	ShutdownTimeout time.Duration
	Address         string
}

// Server serves HTTPS on one address until its context ends, then drains
// in-flight requests within the configured shutdown timeout.
type Server struct {
	httpServer      *http.Server
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

// New creates a server for handler with the given TLS acceptor
// configuration. Handshake failures are logged by the http package through
// ErrorLog and never stop the accept loop.
func New(cfg Config, tlsConfig *tls.Config, handler http.Handler, logger *zap.Logger) *Server {
	log := logger.Named("https_server")

	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          zap.NewStdLog(log),
	}

	return &Server{
		logger:          log,
		httpServer:      httpServer,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Start listens on the configured address and blocks until the server stops,
// either because ctx ended or because serving failed.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	s.logger.Info("serving HTTPS", zap.String("address", s.httpServer.Addr))

	serveErr := make(chan error, 1)
	go func() {
		// Serving material comes from TLSConfig, so the file arguments stay empty.
		serveErr <- s.httpServer.ServeTLS(listener, "", "")
	}()

	select {
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPS server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
		return s.drain()
	}
}

// drain stops accepting and waits for in-flight requests, falling back to a
// hard close when the shutdown timeout passes first.
func (s *Server) drain() error {
	s.logger.Info("draining connections", zap.Duration("timeout", s.shutdownTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if err == nil {
		s.logger.Info("drain complete")
		return nil
	}

	s.logger.Warn("drain timed out, closing connections")
	if closeErr := s.httpServer.Close(); closeErr != nil {
		return fmt.Errorf("forced close failed: %w", closeErr)
	}
	return fmt.Errorf("shutdown timed out: %w", err)
}

// Stop immediately stops the server, dropping active connections.
func (s *Server) Stop() {
	s.logger.Info("closing HTTPS server")
	_ = s.httpServer.Close()
}
