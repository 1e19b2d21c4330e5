// Package oidc provides OpenID Connect bearer token authentication for the
// HTTPS server.
package oidc

import "strings"

const (
	// AuthorizationHeader carries the bearer token on incoming requests.
	AuthorizationHeader = "Authorization"

	// BearerPrefix precedes the token inside the authorization header.
	BearerPrefix = "Bearer "
)

// ParseRequiredClaims turns a comma-separated list of key:value pairs into
// a map, e.g. "scope:api:read,role:admin". Only the first colon splits the
// pair, so claim values may themselves contain colons.
func ParseRequiredClaims(s string) map[string]string {
	claims := make(map[string]string)
	for pair := range strings.SplitSeq(s, ",") {
		key, value, found := strings.Cut(pair, ":")
		if !found {
			continue
		}
		if key = strings.TrimSpace(key); key != "" {
			claims[key] = strings.TrimSpace(value)
		}
	}
	return claims
}
