// Package config loads and validates server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Auth modes decide which authentication middleware guards the routes.
const (
	AuthModeNone = "none" // no identity check
	AuthModeMTLS = "mtls" // client certificate required
	AuthModeOIDC = "oidc" // bearer token required
	AuthModeBoth = "both" // certificate and token
)

// TLS modes. The server never starts without TLS, so there is no "none".
const (
	TLSModeTLS  = "tls"  // server certificate only
	TLSModeMTLS = "mtls" // server certificate plus client verification
)

// Client auth modes map onto crypto/tls ClientAuthType values.
const (
	ClientAuthNone    = "none"    // tls.NoClientCert
	ClientAuthRequest = "request" // tls.RequestClientCert
	ClientAuthRequire = "require" // tls.RequireAndVerifyClientCert
)

const (
	defaultAddress         = "127.0.0.1:3000"
	defaultMetricsPort     = 9090
	defaultLogLevel        = "info"
	defaultShutdownTimeout = 30 * time.Second
	defaultCertPath        = "cert.pem"
	defaultKeyPath         = "key.pem"
	defaultVaultPKITTL     = 24 * time.Hour
	defaultVaultCommonName = "localhost"

	portMin = 1
	portMax = 65535

	// masked hides credentials in String output.
	masked = "****"
)

// Environment variable names.
const (
	envAddress             = "SERVER_ADDRESS"
	envWorkers             = "NUM_WORKERS"
	envMetricsPort         = "METRICS_PORT"
	envLogLevel            = "LOG_LEVEL"
	envShutdownTimeout     = "SHUTDOWN_TIMEOUT"
	envTLSMode             = "TLS_MODE"
	envTLSCertPath         = "CERT_FILE"
	envTLSKeyPath          = "KEY_FILE"
	envTLSCAPath           = "TLS_CA_PATH"
	envTLSClientAuth       = "TLS_CLIENT_AUTH"
	envVaultEnabled        = "VAULT_ENABLED"
	envVaultAddr           = "VAULT_ADDR"
	envVaultToken          = "VAULT_TOKEN"
	envVaultTokenFilePath  = "VAULT_TOKEN_FILE"
	envVaultPKIPath        = "VAULT_PKI_PATH"
	envVaultPKIRole        = "VAULT_PKI_ROLE"
	envVaultPKITTL         = "VAULT_PKI_TTL"
	envVaultCommonName     = "VAULT_PKI_CN"
	envOIDCEnabled         = "OIDC_ENABLED"
	envOIDCIssuerURL       = "OIDC_ISSUER_URL"
	envOIDCClientID        = "OIDC_CLIENT_ID"
	envOIDCClientSecret    = "OIDC_CLIENT_SECRET" //nolint:gosec // names the variable, not a credential
	envOIDCAudience        = "OIDC_AUDIENCE"
	envOIDCRequiredClaims  = "OIDC_REQUIRED_CLAIMS"
	envAuthMode            = "AUTH_MODE"
	envMTLSAllowedSubjects = "MTLS_ALLOWED_SUBJECTS"
	envMTLSAllowedSANs     = "MTLS_ALLOWED_SANS"
	envMTLSAllowedOUs      = "MTLS_ALLOWED_OUS"
	envOTELEnabled         = "OTEL_ENABLED"
	envOTELEndpoint        = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTELServiceName     = "OTEL_SERVICE_NAME"
)

// Config collects every runtime setting the server reads at startup.
type Config struct {
	Address         string
	Workers         int
	MetricsPort     int
	LogLevel        string
	ShutdownTimeout time.Duration
	TLS             TLSConfig
	Auth            AuthConfig
	OTEL            OTELConfig
}

// TLSConfig holds transport security settings. Certificates come either
// from PEM files on disk or from a Vault PKI engine.
type TLSConfig struct {
	Mode       string // "tls", "mtls"
	ClientAuth string // "none", "request" or "require"

	// Disk-based certificate material.
	CertPath string
	KeyPath  string
	CAPath   string

	// Vault PKI issuance, used instead of the disk paths when enabled.
	VaultEnabled    bool
	VaultAddr       string
	VaultToken      string
	VaultPKIPath    string
	VaultPKIRole    string
	VaultPKITTL     time.Duration
	VaultCommonName string
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Mode               string // "none", "mtls", "oidc", "both"
	OIDCEnabled        bool
	OIDCIssuerURL      string
	OIDCClientID       string
	OIDCClientSecret   string
	OIDCAudience       string
	OIDCRequiredClaims string

	// mTLS identity restrictions. Empty lists allow any client the CA trusts.
	MTLSAllowedSubjects []string
	MTLSAllowedSANs     []string
	MTLSAllowedOUs      []string
}

// OTELConfig holds OpenTelemetry tracing settings.
type OTELConfig struct {
	Enabled     bool
	Endpoint    string // OTLP HTTP collector address
	ServiceName string // reported as the service.name resource attribute
}

// Errors reported by Validate.
var (
	ErrInvalidAddress         = errors.New("invalid server address: must be host:port with port between 1 and 65535")
	ErrInvalidWorkers         = errors.New("invalid worker count: must be positive")
	ErrInvalidMetricsPort     = errors.New("invalid metrics port: not in range 1-65535")
	ErrInvalidLogLevel        = errors.New("invalid log level: want debug, info, warn or error")
	ErrInvalidShutdownTimeout = errors.New("invalid shutdown timeout: must be greater than zero")
	ErrPortConflict           = errors.New("server port and metrics port must be different")
	ErrMissingTLSCert         = errors.New("TLS certificate path is required when Vault is disabled")
	ErrMissingTLSKey          = errors.New("TLS key path is required when Vault is disabled")
	ErrMissingClientCA        = errors.New("client CA path is required for mtls")
	ErrMissingOIDCIssuer      = errors.New("OIDC issuer URL is required for discovery")
	ErrMissingOIDCClientID    = errors.New("OIDC client ID is required for token verification")
	ErrInvalidTLSMode         = errors.New("invalid TLS mode: want tls or mtls")
	ErrInvalidClientAuth      = errors.New("invalid client auth: want none, request or require")
	ErrInvalidAuthMode        = errors.New("invalid auth mode: want none, mtls, oidc or both")
)

// Load builds the configuration from defaults overlaid with environment
// variables, then validates it.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if err := cfg.fromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Address: defaultAddress,
		// Workers falls back to the number of logical CPUs.
		Workers:         runtime.NumCPU(),
		MetricsPort:     defaultMetricsPort,
		LogLevel:        defaultLogLevel,
		ShutdownTimeout: defaultShutdownTimeout,
		TLS: TLSConfig{
			Mode:            TLSModeTLS,
			CertPath:        defaultCertPath,
			KeyPath:         defaultKeyPath,
			ClientAuth:      ClientAuthNone,
			VaultPKITTL:     defaultVaultPKITTL,
			VaultCommonName: defaultVaultCommonName,
		},
		Auth: AuthConfig{
			Mode: AuthModeNone,
		},
	}
}

// envSet overlays environment variables onto config fields. Unset and empty
// variables leave the target untouched. The first parse failure sticks and
// short-circuits later typed lookups.
type envSet struct {
	err error
}

func (e *envSet) stringVar(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (e *envSet) intVar(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" || e.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("parsing %s: %w", key, err)
		return
	}
	*dst = n
}

func (e *envSet) boolVar(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" || e.err != nil {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.err = fmt.Errorf("parsing %s: %w", key, err)
		return
	}
	*dst = b
}

func (e *envSet) durationVar(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" || e.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.err = fmt.Errorf("parsing %s: %w", key, err)
		return
	}
	*dst = d
}

func (e *envSet) listVar(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = splitList(v)
	}
}

func (c *Config) fromEnv() error {
	var e envSet

	e.stringVar(&c.Address, envAddress)
	e.intVar(&c.Workers, envWorkers)
	e.intVar(&c.MetricsPort, envMetricsPort)
	e.stringVar(&c.LogLevel, envLogLevel)
	e.durationVar(&c.ShutdownTimeout, envShutdownTimeout)

	e.stringVar(&c.TLS.Mode, envTLSMode)
	e.stringVar(&c.TLS.CertPath, envTLSCertPath)
	e.stringVar(&c.TLS.KeyPath, envTLSKeyPath)
	e.stringVar(&c.TLS.CAPath, envTLSCAPath)
	e.stringVar(&c.TLS.ClientAuth, envTLSClientAuth)

	e.boolVar(&c.TLS.VaultEnabled, envVaultEnabled)
	e.stringVar(&c.TLS.VaultAddr, envVaultAddr)
	e.stringVar(&c.TLS.VaultPKIPath, envVaultPKIPath)
	e.stringVar(&c.TLS.VaultPKIRole, envVaultPKIRole)
	e.durationVar(&c.TLS.VaultPKITTL, envVaultPKITTL)
	e.stringVar(&c.TLS.VaultCommonName, envVaultCommonName)

	e.boolVar(&c.Auth.OIDCEnabled, envOIDCEnabled)
	e.stringVar(&c.Auth.OIDCIssuerURL, envOIDCIssuerURL)
	e.stringVar(&c.Auth.OIDCClientID, envOIDCClientID)
	e.stringVar(&c.Auth.OIDCClientSecret, envOIDCClientSecret)
	e.stringVar(&c.Auth.OIDCAudience, envOIDCAudience)
	e.stringVar(&c.Auth.OIDCRequiredClaims, envOIDCRequiredClaims)

	e.stringVar(&c.Auth.Mode, envAuthMode)
	e.listVar(&c.Auth.MTLSAllowedSubjects, envMTLSAllowedSubjects)
	e.listVar(&c.Auth.MTLSAllowedSANs, envMTLSAllowedSANs)
	e.listVar(&c.Auth.MTLSAllowedOUs, envMTLSAllowedOUs)

	e.boolVar(&c.OTEL.Enabled, envOTELEnabled)
	e.stringVar(&c.OTEL.Endpoint, envOTELEndpoint)
	e.stringVar(&c.OTEL.ServiceName, envOTELServiceName)

	if e.err != nil {
		return e.err
	}

	return c.loadVaultToken()
}

// loadVaultToken prefers VAULT_TOKEN and falls back to reading the file
// named by VAULT_TOKEN_FILE, as written by Vault agent sidecars.
func (c *Config) loadVaultToken() error {
	if v := os.Getenv(envVaultToken); v != "" {
		c.TLS.VaultToken = v
		return nil
	}

	path := os.Getenv(envVaultTokenFilePath)
	if path == "" {
		return nil
	}

	path = filepath.Clean(path)
	token, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return fmt.Errorf("reading vault token file %s: %w", path, err)
	}
	c.TLS.VaultToken = strings.TrimSpace(string(token))

	return nil
}

// splitList splits a comma-separated value into trimmed entries, dropping
// empty ones.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	for _, check := range []func() error{c.validateServer, c.validateTLS, c.validateAuth} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	port, err := addressPort(c.Address)
	if err != nil {
		return ErrInvalidAddress
	}

	switch {
	case c.Workers < 1:
		return ErrInvalidWorkers
	case c.MetricsPort < portMin || c.MetricsPort > portMax:
		return ErrInvalidMetricsPort
	case port == c.MetricsPort:
		return ErrPortConflict
	case c.ShutdownTimeout <= 0:
		return ErrInvalidShutdownTimeout
	case !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel):
		return ErrInvalidLogLevel
	}
	return nil
}

func (c *Config) validateTLS() error {
	switch {
	case c.TLS.Mode != TLSModeTLS && c.TLS.Mode != TLSModeMTLS:
		return ErrInvalidTLSMode
	case !slices.Contains([]string{ClientAuthNone, ClientAuthRequest, ClientAuthRequire}, c.TLS.ClientAuth):
		return ErrInvalidClientAuth
	case c.TLS.VaultEnabled:
		// Vault issues the certificate, the key and the CA bundle.
		return nil
	case c.TLS.CertPath == "":
		return ErrMissingTLSCert
	case c.TLS.KeyPath == "":
		return ErrMissingTLSKey
	case c.TLS.Mode == TLSModeMTLS && c.TLS.CAPath == "":
		return ErrMissingClientCA
	}
	return nil
}

func (c *Config) validateAuth() error {
	if !slices.Contains([]string{AuthModeNone, AuthModeMTLS, AuthModeOIDC, AuthModeBoth}, c.Auth.Mode) {
		return ErrInvalidAuthMode
	}
	if c.Auth.OIDCEnabled {
		switch {
		case c.Auth.OIDCIssuerURL == "":
			return ErrMissingOIDCIssuer
		case c.Auth.OIDCClientID == "":
			return ErrMissingOIDCClientID
		}
	}
	return nil
}

// addressPort extracts and range-checks the port of a host:port address.
func addressPort(address string) (int, error) {
	_, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return 0, err
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, err
	}

	if port < portMin || port > portMax {
		return 0, fmt.Errorf("port %d out of range", port)
	}

	return port, nil
}

// String renders the configuration for startup logs with credentials and
// identity-provider details masked.
func (c *Config) String() string {
	parts := []string{
		fmt.Sprintf("Address: %s", c.Address),
		fmt.Sprintf("Workers: %d", c.Workers),
		fmt.Sprintf("MetricsPort: %d", c.MetricsPort),
		fmt.Sprintf("LogLevel: %s", c.LogLevel),
		fmt.Sprintf("ShutdownTimeout: %s", c.ShutdownTimeout),
		fmt.Sprintf("TLSMode: %s", c.TLS.Mode),
		fmt.Sprintf("CertPath: %s", c.TLS.CertPath),
		fmt.Sprintf("KeyPath: %s", c.TLS.KeyPath),
	}

	if c.TLS.VaultEnabled {
		parts = append(parts,
			"VaultAddr: "+masked,
			"VaultToken: "+masked)
	}

	parts = append(parts, fmt.Sprintf("AuthMode: %s", c.Auth.Mode))

	if c.Auth.OIDCEnabled {
		parts = append(parts,
			"OIDC: enabled",
			"OIDCIssuer: "+masked,
			"OIDCClientID: "+masked,
			"OIDCClientSecret: "+masked)
	}
	if c.OTEL.Enabled {
		parts = append(parts,
			"OTEL: enabled",
			"OTELEndpoint: "+c.OTEL.Endpoint,
			"OTELServiceName: "+c.OTEL.ServiceName)
	}

	return "Config{" + strings.Join(parts, ", ") + "}"
}
