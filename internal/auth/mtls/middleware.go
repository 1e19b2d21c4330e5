package mtls

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/https-example/internal/auth"
	"github.com/vyrodovalexey/https-example/internal/metrics"
)

// Middleware returns HTTP middleware that validates client certificates.
// Requests without a verified certificate matching the configured
// restrictions are rejected with 401.
func Middleware(cfg Config, logger *zap.Logger) func(http.Handler) http.Handler {
	log := logger.Named("mtls_auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := ValidateClientCertificate(r, cfg)
			if err != nil {
				metrics.AuthAttemptsTotal.WithLabelValues("mtls", "failure").Inc()
				log.Warn("mTLS authentication failed",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				http.Error(w, "mTLS authentication failed", http.StatusUnauthorized)
				return
			}

			metrics.AuthAttemptsTotal.WithLabelValues("mtls", "success").Inc()
			log.Debug("mTLS authentication successful",
				zap.String("path", r.URL.Path),
				zap.Stringer("identity", identity),
			)

			next.ServeHTTP(w, r.WithContext(auth.NewContext(r.Context(), identity)))
		})
	}
}
