// Package auth carries the identity of an authenticated client from the
// authentication middlewares to anything downstream that wants to know who
// is calling.
package auth

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Identity describes an authenticated client. AuthMethod records which
// mechanism produced it, "mtls" or "oidc".
type Identity struct {
	AuthMethod string
	Subject    string
	Issuer     string
	Claims     map[string]string
}

// String renders the identity for log output. Claims print in sorted key
// order so repeated lines for the same identity compare equal.
func (i *Identity) String() string {
	if i == nil {
		return "identity<nil>"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s subject=%q issuer=%q", i.AuthMethod, i.Subject, i.Issuer)

	if len(i.Claims) > 0 {
		pairs := make([]string, 0, len(i.Claims))
		for _, k := range slices.Sorted(maps.Keys(i.Claims)) {
			pairs = append(pairs, k+"="+i.Claims[k])
		}
		fmt.Fprintf(&sb, " claims={%s}", strings.Join(pairs, " "))
	}

	return sb.String()
}
