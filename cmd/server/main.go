// Package main provides the entry point for the HTTPS server.
package main

import (
	"context"
	"crypto/x509"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/https-example/internal/auth/mtls"
	"github.com/vyrodovalexey/https-example/internal/auth/oidc"
	"github.com/vyrodovalexey/https-example/internal/config"
	"github.com/vyrodovalexey/https-example/internal/handler"
	"github.com/vyrodovalexey/https-example/internal/logger"
	"github.com/vyrodovalexey/https-example/internal/metrics"
	"github.com/vyrodovalexey/https-example/internal/server"
	"github.com/vyrodovalexey/https-example/internal/telemetry"
	tlspkg "github.com/vyrodovalexey/https-example/internal/tls"
)

func main() {
	// Load environment variables from a .env file when present.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// The structured logger is not up yet at this point.
		startupLog, _ := zap.NewProduction()
		startupLog.Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		startupLog, _ := zap.NewProduction()
		startupLog.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync(log)

	log.Info("starting HTTPS server", zap.String("config", cfg.String()))

	// Cap scheduler parallelism at the configured worker count.
	runtime.GOMAXPROCS(cfg.Workers)

	// Stop on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := telemetry.InitTracer(ctx, telemetry.Config{
		Enabled:     cfg.OTEL.Enabled,
		Endpoint:    cfg.OTEL.Endpoint,
		ServiceName: cfg.OTEL.ServiceName,
	}, log); err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer telemetry.ShutdownTracer(log)

	// Load TLS serving material
	material, clientCAs, err := loadMaterial(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to load TLS material", zap.Error(err))
	}

	log.Info("TLS material loaded",
		zap.String("key_algorithm", material.KeyAlgorithm),
		zap.Int("chain_length", len(material.CertificateChain)),
	)

	tlsConfig, err := tlspkg.BuildServerConfig(material, cfg.TLS)
	if err != nil {
		log.Fatal("failed to build TLS config", zap.Error(err))
	}
	if clientCAs != nil {
		tlsConfig.ClientCAs = clientCAs
	}

	// Build the handler chain: routes, then auth, then metrics and tracing.
	root, err := buildHandler(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to build handler chain", zap.Error(err))
	}

	metricsServer := metrics.New(cfg.MetricsPort, log)
	metricsServer.Start()
	defer metricsServer.Shutdown()

	srv := server.New(server.Config{
		Address:         cfg.Address,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, tlsConfig, root, log)

	if err := srv.Start(ctx); err != nil {
		log.Error("server stopped", zap.Error(err))
		cancel()
		return
	}

	log.Info("shutdown complete")
}

// loadMaterial obtains TLS serving material from Vault PKI when enabled,
// otherwise from the configured certificate and key files. For Vault-backed
// mTLS without a CA file on disk, the client CA pool from the PKI mount is
// returned alongside the material.
func loadMaterial(ctx context.Context, cfg *config.Config, log *zap.Logger) (*tlspkg.Material, *x509.CertPool, error) {
	if !cfg.TLS.VaultEnabled {
		material, err := tlspkg.LoadMaterial(cfg.TLS.CertPath, cfg.TLS.KeyPath)
		return material, nil, err
	}

	vaultClient, err := tlspkg.NewPKIClient(cfg.TLS, log)
	if err != nil {
		return nil, nil, err
	}

	material, err := vaultClient.IssueMaterial(ctx, cfg.TLS.VaultCommonName)
	if err != nil {
		return nil, nil, err
	}

	var clientCAs *x509.CertPool
	if cfg.TLS.Mode == config.TLSModeMTLS && cfg.TLS.CAPath == "" {
		clientCAs, err = vaultClient.CACertificate(ctx)
		if err != nil {
			return nil, nil, err
		}
	}

	return material, clientCAs, nil
}

// buildHandler assembles the middleware chain around the route table.
func buildHandler(ctx context.Context, cfg *config.Config, log *zap.Logger) (http.Handler, error) {
	var root http.Handler = handler.New(log).NewMux()

	if cfg.Auth.Mode == config.AuthModeOIDC || cfg.Auth.Mode == config.AuthModeBoth {
		oidcProvider, err := oidc.NewProvider(ctx, cfg.Auth, log)
		if err != nil {
			return nil, err
		}
		root = oidc.Middleware(oidcProvider, cfg.Auth, log)(root)
	}

	if cfg.Auth.Mode == config.AuthModeMTLS || cfg.Auth.Mode == config.AuthModeBoth {
		mtlsCfg := mtls.Config{
			AllowedSubjects: cfg.Auth.MTLSAllowedSubjects,
			AllowedSANs:     cfg.Auth.MTLSAllowedSANs,
			AllowedOUs:      cfg.Auth.MTLSAllowedOUs,
		}
		root = mtls.Middleware(mtlsCfg, log)(root)
	}

	root = metrics.Middleware(root)
	root = telemetry.Middleware(root, "https-server")

	return root, nil
}
