package oidc

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/https-example/internal/auth"
	"github.com/vyrodovalexey/https-example/internal/config"
	"github.com/vyrodovalexey/https-example/internal/metrics"
)

// Middleware returns HTTP middleware that validates OIDC bearer tokens.
// Requests whose token fails verification, audience or required-claim
// checks are rejected with 401.
func Middleware(provider Provider, cfg config.AuthConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	log := logger.Named("oidc_auth")
	requiredClaims := ParseRequiredClaims(cfg.OIDCRequiredClaims)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := ValidateToken(r, provider, cfg)
			if err == nil && len(requiredClaims) > 0 {
				err = ValidateRequiredClaims(identity.Claims, requiredClaims)
			}
			if err != nil {
				metrics.AuthAttemptsTotal.WithLabelValues("oidc", "failure").Inc()
				log.Warn("OIDC authentication failed",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				http.Error(w, "OIDC authentication failed", http.StatusUnauthorized)
				return
			}

			metrics.AuthAttemptsTotal.WithLabelValues("oidc", "success").Inc()
			log.Debug("OIDC authentication successful",
				zap.String("path", r.URL.Path),
				zap.String("subject", identity.Subject),
				zap.String("issuer", identity.Issuer),
			)

			next.ServeHTTP(w, r.WithContext(auth.NewContext(r.Context(), identity)))
		})
	}
}
