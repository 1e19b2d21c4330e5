package auth

import "context"

type ctxKey int

const identityCtxKey ctxKey = iota

// NewContext returns a copy of ctx carrying the authenticated identity.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// FromContext returns the identity stored by NewContext. The second return
// is false when the context holds no identity, including one stored as nil.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityCtxKey).(*Identity)
	if !ok || id == nil {
		return nil, false
	}
	return id, true
}
