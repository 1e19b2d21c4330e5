//go:build performance

// Package performance measures request throughput and handshake cost across
// the transport and authentication tiers the server supports.
package performance

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/https-example/internal/auth/mtls"
	authoidc "github.com/vyrodovalexey/https-example/internal/auth/oidc"
	"github.com/vyrodovalexey/https-example/internal/config"
	"github.com/vyrodovalexey/https-example/internal/handler"
)

const (
	requestTimeout = 30 * time.Second
	certLifetime   = 24 * time.Hour
)

// benchSerial hands out distinct certificate serials within the process.
var benchSerial atomic.Int64

func nextSerial() *big.Int {
	return big.NewInt(benchSerial.Add(1))
}

// benchPKI is a throwaway CA shared by the server and clients of one test.
type benchPKI struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
	pool *x509.CertPool
}

func newBenchPKI() (*benchPKI, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating bench CA key: %w", err)
	}
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          nextSerial(),
		Subject:               pkix.Name{CommonName: "hello-bench-root"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(certLifetime),
		KeyUsage:              x509.KeyUsageCertSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("self-signing bench CA: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parsing bench CA: %w", err)
	}

	pki := &benchPKI{cert: cert, key: key, pool: x509.NewCertPool()}
	pki.pool.AddCert(cert)

	return pki, nil
}

func (p *benchPKI) signLeaf(template *x509.Certificate) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generating leaf key: %w", err)
	}

	now := time.Now()
	template.SerialNumber = nextSerial()
	template.NotBefore = now.Add(-time.Hour)
	template.NotAfter = now.Add(certLifetime)
	template.KeyUsage = x509.KeyUsageDigitalSignature

	der, err := x509.CreateCertificate(rand.Reader, template, p.cert, &key.PublicKey, p.key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("signing leaf: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("marshalling leaf key: %w", err)
	}

	return tls.X509KeyPair(
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	)
}

// serverCert carries the loopback SANs every client in this package dials.
func (p *benchPKI) serverCert() (tls.Certificate, error) {
	return p.signLeaf(&x509.Certificate{
		Subject:     pkix.Name{CommonName: "localhost"},
		DNSNames:    []string{"localhost"},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1")},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
}

func (p *benchPKI) clientCert(cn string) (tls.Certificate, error) {
	return p.signLeaf(&x509.Certificate{
		Subject:     pkix.Name{CommonName: cn},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	})
}

// routes is the handler every benchmark server mounts.
func routes() http.Handler {
	return handler.New(zap.NewNop()).NewMux()
}

// serve starts a server on a loopback port and returns its base URL plus a
// stop function. A nil tls.Config serves plain HTTP.
func serve(tb testing.TB, h http.Handler, tlsCfg *tls.Config) (string, func()) {
	tb.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("listen: %v", err)
	}

	srv := &http.Server{
		Handler:           h,
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 5 * time.Second,
	}

	scheme := "http"
	if tlsCfg != nil {
		scheme = "https"
		go func() { _ = srv.ServeTLS(lis, "", "") }()
	} else {
		go func() { _ = srv.Serve(lis) }()
	}

	return scheme + "://" + lis.Addr().String(), func() { _ = srv.Close() }
}

// plainServer is the no-overhead baseline: no TLS, no auth.
func plainServer(tb testing.TB) (string, func()) {
	tb.Helper()
	return serve(tb, routes(), nil)
}

func tlsServer(tb testing.TB, pki *benchPKI) (string, func()) {
	tb.Helper()

	cert, err := pki.serverCert()
	if err != nil {
		tb.Fatalf("issue server certificate: %v", err)
	}

	return serve(tb, routes(), &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	})
}

func mtlsServer(tb testing.TB, pki *benchPKI) (string, func()) {
	tb.Helper()

	cert, err := pki.serverCert()
	if err != nil {
		tb.Fatalf("issue server certificate: %v", err)
	}

	authed := mtls.Middleware(mtls.Config{}, zap.NewNop())(routes())

	return serve(tb, authed, &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pki.pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
	})
}

// staticProvider hands back the same pre-built token for any bearer value, so
// every request takes the token-validation path without a live issuer.
type staticProvider struct {
	token *gooidc.IDToken
}

func (p staticProvider) Verifier() authoidc.TokenVerifier { return p }

func (p staticProvider) Verify(context.Context, string) (*gooidc.IDToken, error) {
	return p.token, nil
}

// setIDTokenClaims injects raw claims into a go-oidc token. The claims field
// is unexported, so this reaches through reflection.
func setIDTokenClaims(token *gooidc.IDToken, claims []byte) {
	f := reflect.ValueOf(token).Elem().FieldByName("claims")
	*(*[]byte)(unsafe.Pointer(f.UnsafeAddr())) = claims //nolint:gosec // test-only
}

// oidcServer serves plain HTTP behind bearer validation. Token checking does
// not depend on the transport, so its overhead is measured without TLS in
// the way.
func oidcServer(tb testing.TB) (string, func()) {
	tb.Helper()

	token := &gooidc.IDToken{
		Issuer:   "https://sso.bench.internal",
		Subject:  "perf-client",
		Audience: []string{"perf-api"},
	}
	setIDTokenClaims(token, []byte(`{"sub":"perf-client"}`))

	authed := authoidc.Middleware(staticProvider{token: token}, config.AuthConfig{
		OIDCEnabled:  true,
		OIDCClientID: "perf-api",
	}, zap.NewNop())(routes())

	return serve(tb, authed, nil)
}

func plainClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// tlsClient trusts the bench CA. Pass a certificate to authenticate as a
// client, or none for server-only TLS.
func tlsClient(pool *x509.CertPool, certs ...tls.Certificate) *http.Client {
	tlsCfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		RootCAs:      pool,
		Certificates: certs,
	}
	return &http.Client{
		Timeout:   requestTimeout,
		Transport: &http.Transport{TLSClientConfig: tlsCfg},
	}
}

// getHello fetches /hello, optionally with a bearer token, and checks for the
// canonical response. Failures come back as errors so load loops can count
// them instead of aborting.
func getHello(client *http.Client, baseURL, token string) error {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/hello", nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set(authoidc.AuthorizationHeader, authoidc.BearerPrefix+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK || string(body) != "Hello world!" {
		return fmt.Errorf("got %d %q from %s", resp.StatusCode, body, baseURL)
	}
	return nil
}
