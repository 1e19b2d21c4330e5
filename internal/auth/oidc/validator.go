package oidc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"

	"github.com/vyrodovalexey/https-example/internal/auth"
	"github.com/vyrodovalexey/https-example/internal/config"
)

// ValidateToken verifies the bearer token on r against the provider and
// builds the caller's Identity from the token claims. When cfg names an
// audience, the token must list it.
func ValidateToken(r *http.Request, provider Provider, cfg config.AuthConfig) (*auth.Identity, error) {
	raw, err := extractBearerToken(r)
	if err != nil {
		return nil, err
	}

	idToken, err := provider.Verifier().Verify(r.Context(), raw)
	if err != nil {
		return nil, fmt.Errorf("verifying bearer token: %w", err)
	}

	if cfg.OIDCAudience != "" && !slices.Contains(idToken.Audience, cfg.OIDCAudience) {
		return nil, fmt.Errorf("token audience %v does not contain required audience %q",
			idToken.Audience, cfg.OIDCAudience)
	}

	return identityFromToken(idToken)
}

func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(AuthorizationHeader)
	if header == "" {
		return "", errors.New("missing authorization header")
	}

	token, found := strings.CutPrefix(header, BearerPrefix)
	switch {
	case !found:
		return "", errors.New("authorization header is not a Bearer token")
	case token == "":
		return "", errors.New("bearer token is empty")
	}

	return token, nil
}

// identityFromToken decodes the verified token's claims into the string map
// the Identity carries. Non-string values keep their fmt rendering, so JSON
// arrays stay recognizable for the claim matcher.
func identityFromToken(idToken *gooidc.IDToken) (*auth.Identity, error) {
	var raw map[string]any
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("decoding token claims: %w", err)
	}

	claims := make(map[string]string, len(raw))
	for k, v := range raw {
		claims[k] = fmt.Sprintf("%v", v)
	}

	return &auth.Identity{
		Subject:    idToken.Subject,
		Issuer:     idToken.Issuer,
		AuthMethod: "oidc",
		Claims:     claims,
	}, nil
}

// ValidateRequiredClaims checks that every required key is present with a
// matching value. A claim holding a JSON array matches when the required
// value appears among its elements.
func ValidateRequiredClaims(claims, required map[string]string) error {
	for key, want := range required {
		have, ok := claims[key]
		if !ok {
			return fmt.Errorf("required claim %q missing from token", key)
		}
		if err := matchClaim(key, have, want); err != nil {
			return err
		}
	}
	return nil
}

func matchClaim(key, have, want string) error {
	if arr, ok := decodeJSONArray(have); ok {
		for _, item := range arr {
			if fmt.Sprintf("%v", item) == want {
				return nil
			}
		}
		return fmt.Errorf("required claim %q: %q not present in %s", key, want, have)
	}

	if have != want {
		return fmt.Errorf("required claim %q: want %q, have %q", key, want, have)
	}
	return nil
}

func decodeJSONArray(s string) ([]any, bool) {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, false
	}
	var arr []any
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		return nil, false
	}
	return arr, true
}
