package tls

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/https-example/internal/config"
	"github.com/vyrodovalexey/https-example/internal/retry"
)

// vaultClientTimeout bounds each Vault HTTP round trip.
const vaultClientTimeout = 30 * time.Second

// PKIClient issues serving material from a Vault PKI secrets engine.
type PKIClient interface {
	// IssueMaterial requests a fresh certificate and key for commonName.
	IssueMaterial(ctx context.Context, commonName string) (*Material, error)
	// CACertificate fetches the engine's CA into a cert pool.
	CACertificate(ctx context.Context) (*x509.CertPool, error)
}

type pkiClient struct {
	client *vault.Client
	logger *zap.Logger

	// mount and role name the PKI engine and its issuing role; ttl is the
	// requested certificate lifetime in Vault's duration syntax.
	mount string
	role  string
	ttl   string
}

// NewPKIClient builds a client for the PKI engine named in cfg.
func NewPKIClient(cfg config.TLSConfig, logger *zap.Logger) (PKIClient, error) {
	if cfg.VaultAddr == "" {
		return nil, errors.New("vault address is required")
	}

	client, err := newVaultAPIClient(cfg)
	if err != nil {
		return nil, err
	}

	return &pkiClient{
		client: client,
		logger: logger.Named("vault_pki"),
		mount:  cfg.VaultPKIPath,
		role:   cfg.VaultPKIRole,
		ttl:    cfg.VaultPKITTL.String(),
	}, nil
}

func newVaultAPIClient(cfg config.TLSConfig) (*vault.Client, error) {
	apiCfg := vault.DefaultConfig()
	apiCfg.Timeout = vaultClientTimeout
	apiCfg.Address = cfg.VaultAddr

	client, err := vault.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("building vault api client: %w", err)
	}
	client.SetToken(cfg.VaultToken)
	return client, nil
}

// request runs one logical operation with exponential backoff retry and
// rejects empty responses, which Vault signals with a 204 and a nil secret.
func (c *pkiClient) request(ctx context.Context, op, what string, call func(ctx context.Context) (*vault.Secret, error)) (*vault.Secret, error) {
	var secret *vault.Secret
	if err := retry.Do(ctx, retry.DefaultConfig(), c.logger, op, func() error {
		var callErr error
		secret, callErr = call(ctx)
		return callErr
	}); err != nil {
		return nil, err
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault returned no data for %s", what)
	}
	return secret, nil
}

// IssueMaterial issues new serving material from the PKI role. The issued
// leaf and any CA chain returned by Vault go through the same parsing paths
// as file-loaded material.
func (c *pkiClient) IssueMaterial(ctx context.Context, commonName string) (*Material, error) {
	secret, err := c.request(ctx, "vault PKI request", "certificate issuance",
		func(ctx context.Context) (*vault.Secret, error) {
			return c.client.Logical().WriteWithContext(ctx, c.mount+"/issue/"+c.role, map[string]any{
				"common_name": commonName,
				"ttl":         c.ttl,
			})
		})
	if err != nil {
		return nil, err
	}

	return c.materialFromSecret(secret)
}

// CACertificate retrieves the engine's CA, including any intermediates
// the engine is configured with.
func (c *pkiClient) CACertificate(ctx context.Context) (*x509.CertPool, error) {
	secret, err := c.request(ctx, "vault CA retrieval", "CA certificate",
		func(ctx context.Context) (*vault.Secret, error) {
			return c.client.Logical().ReadWithContext(ctx, c.mount+"/cert/ca")
		})
	if err != nil {
		return nil, err
	}

	caData, ok := secret.Data["certificate"].(string)
	if !ok {
		return nil, errors.New("certificate field missing from vault CA response")
	}

	cas, err := parseCertificateChain([]byte(caData))
	if err != nil {
		return nil, fmt.Errorf("parsing vault CA certificate: %w", err)
	}

	caPool := x509.NewCertPool()
	for _, ca := range cas {
		caPool.AddCert(ca)
	}

	c.logger.Info("fetched vault CA bundle", zap.Int("certificates", len(cas)))
	return caPool, nil
}

func issuedField(secret *vault.Secret, name string) (string, error) {
	s, ok := secret.Data[name].(string)
	if !ok {
		return "", fmt.Errorf("%s field missing from vault response", name)
	}
	return s, nil
}

// materialFromSecret turns a PKI issue response into Material. Vault puts
// the issued leaf in "certificate" and any intermediates in "ca_chain";
// concatenating in that order keeps the chain leaf-first.
func (c *pkiClient) materialFromSecret(secret *vault.Secret) (*Material, error) {
	certPEM, err := issuedField(secret, "certificate")
	if err != nil {
		return nil, err
	}
	keyPEM, err := issuedField(secret, "private_key")
	if err != nil {
		return nil, err
	}

	pemData := []byte(certPEM)
	if caChain, ok := secret.Data["ca_chain"].([]any); ok {
		for _, entry := range caChain {
			if s, ok := entry.(string); ok {
				pemData = append(pemData, '\n')
				pemData = append(pemData, s...)
			}
		}
	}

	chain, err := parseCertificateChain(pemData)
	if err != nil {
		return nil, fmt.Errorf("parsing vault certificate chain: %w", err)
	}

	key, algorithm, err := parsePrivateKey([]byte(keyPEM))
	if err != nil {
		return nil, fmt.Errorf("parsing vault issued private key: %w", err)
	}

	c.logger.Info("vault issued serving certificate",
		zap.String("pki_path", c.mount),
		zap.String("pki_role", c.role),
		zap.String("key_algorithm", algorithm))

	return &Material{
		CertificateChain: chain,
		PrivateKey:       key,
		KeyAlgorithm:     algorithm,
	}, nil
}
