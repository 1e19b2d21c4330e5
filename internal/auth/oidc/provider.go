package oidc

import (
	"context"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/https-example/internal/config"
	"github.com/vyrodovalexey/https-example/internal/retry"
)

// Provider hands out token verifiers bound to a discovered issuer.
type Provider interface {
	Verifier() TokenVerifier
}

// TokenVerifier checks a raw ID token and returns its parsed form.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*gooidc.IDToken, error)
}

// discoveredProvider carries the verifier built during issuer discovery. The
// verifier caches the issuer's JWKS and refetches it on unknown key IDs.
type discoveredProvider struct {
	verifier TokenVerifier
}

func (p *discoveredProvider) Verifier() TokenVerifier { return p.verifier }

// NewProvider runs OIDC discovery against the configured issuer. Discovery is
// retried with backoff, since the issuer often comes up later than this
// server in orchestrated environments.
func NewProvider(ctx context.Context, cfg config.AuthConfig, logger *zap.Logger) (Provider, error) {
	log := logger.Named("oidc_provider")

	var discovered *gooidc.Provider
	err := retry.Do(ctx, retry.DefaultConfig(), log, "OIDC discovery", func() error {
		var provErr error
		discovered, provErr = gooidc.NewProvider(ctx, cfg.OIDCIssuerURL)
		return provErr
	})
	if err != nil {
		return nil, err
	}

	log.Info("OIDC provider initialized",
		zap.String("issuer", cfg.OIDCIssuerURL), zap.String("client_id", cfg.OIDCClientID))

	return &discoveredProvider{
		verifier: discovered.Verifier(&gooidc.Config{ClientID: cfg.OIDCClientID}),
	}, nil
}
