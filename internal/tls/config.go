package tls

import (
	"crypto/tls"
	"fmt"

	"github.com/vyrodovalexey/https-example/internal/config"
)

// BuildServerConfig assembles the server's *tls.Config from loaded serving
// material. In mTLS mode clients must present a certificate signed by the
// configured CA.
func BuildServerConfig(material *Material, cfg config.TLSConfig) (*tls.Config, error) {
	clientAuth, err := clientAuthType(cfg.ClientAuth)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{material.Certificate()},
		MinVersion:   tls.VersionTLS12,
		ClientAuth:   clientAuth,
	}

	if cfg.Mode != config.TLSModeMTLS {
		return tlsConfig, nil
	}

	// With Vault the client CA pool may be attached later from the PKI
	// engine's CA endpoint instead of a file.
	if cfg.CAPath == "" && !cfg.VaultEnabled {
		return nil, fmt.Errorf("CA certificate path is required for mTLS mode")
	}

	if cfg.CAPath != "" {
		pool, err := LoadCACertPool(cfg.CAPath)
		if err != nil {
			return nil, fmt.Errorf("loading CA certificate for mTLS: %w", err)
		}
		tlsConfig.ClientCAs = pool
	}

	// mTLS with the default client auth still has to demand a certificate.
	if cfg.ClientAuth == config.ClientAuthNone {
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsConfig, nil
}

func clientAuthType(s string) (tls.ClientAuthType, error) {
	switch s {
	case config.ClientAuthNone:
		return tls.NoClientCert, nil
	case config.ClientAuthRequest:
		return tls.RequestClientCert, nil
	case config.ClientAuthRequire:
		return tls.RequireAndVerifyClientCert, nil
	default:
		return 0, fmt.Errorf("unsupported client auth type: %s", s)
	}
}
