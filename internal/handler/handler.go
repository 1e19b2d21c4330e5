// Package handler provides the HTTP handlers served by the HTTPS server.
package handler

import (
	"net/http"

	"go.uber.org/zap"
)

// Response bodies.
const (
	helloBody    = "Hello world!"
	notFoundBody = "Not Found"
)

// Handler bundles the HTTP handlers with their logger.
type Handler struct {
	logger *zap.Logger
}

// New creates a new Handler instance.
func New(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger.Named("handler"),
	}
}

// Hello handles GET /hello. Any other method on the path falls through to
// NotFound rather than answering 405, the same treatment every unmatched
// request gets.
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.NotFound(w, r)
		return
	}

	h.logger.Debug("received hello request",
		zap.String("remote_addr", r.RemoteAddr),
	)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(helloBody))
}

// NotFound answers unmatched requests with 404 and a plain text body.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("no route matched",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)

	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(notFoundBody))
}

// NewMux builds the route table: /hello plus a catch-all for everything else.
// Note "/hello/" and deeper paths fall to the catch-all, not the hello route.
func (h *Handler) NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/hello", h.Hello)
	mux.HandleFunc("/", h.NotFound)
	return mux
}
