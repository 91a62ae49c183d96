package catalog

import "context"

type identityKey struct{}

// WithIdentity returns a context carrying the caller identity recorded as the
// owner of items it adds.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller identity, or "" when none is set.
func IdentityFromContext(ctx context.Context) string {
	id, _ := ctx.Value(identityKey{}).(string)
	return id
}
