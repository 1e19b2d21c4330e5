//go:build e2e

package e2e

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A Vault-issued certificate plus a fresh Keycloak token satisfies every
// deployable auth mode, so this must always succeed.
func TestE2E_Combined_CertificateAndToken(t *testing.T) {
	skipWithoutServices(t, "vault", "keycloak", "https-server")

	client := vaultIssuedClient(t)
	defer client.CloseIdleConnections()

	token := keycloakToken(t)

	code, body := doGet(t, client, "/hello", token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Hello world!", body)
}

// With a valid certificate but an unusable bearer value the outcome depends
// on the deployed mode: servers that verify tokens answer 401, mTLS-only
// servers let the request through.
func TestE2E_Combined_CertificateWithoutUsableToken(t *testing.T) {
	skipWithoutServices(t, "vault", "keycloak", "https-server")

	client := vaultIssuedClient(t)
	defer client.CloseIdleConnections()

	tokens := map[string]string{
		"no token":      "",
		"garbage token": "completely-invalid-token",
	}

	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			code, _ := doGet(t, client, "/hello", token)

			if code != http.StatusOK {
				assert.Equal(t, http.StatusUnauthorized, code)
			}
		})
	}
}

// One TLS session carrying a different freshly issued token on each request.
func TestE2E_Combined_FreshTokenPerRequest(t *testing.T) {
	skipWithoutServices(t, "vault", "keycloak", "https-server")

	client := vaultIssuedClient(t)
	defer client.CloseIdleConnections()

	for i := range 5 {
		token := keycloakToken(t)

		code, body := doGet(t, client, "/hello", token)
		require.Equal(t, http.StatusOK, code, "request %d failed", i)
		assert.Equal(t, "Hello world!", body)
	}
}
