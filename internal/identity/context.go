package identity

import "context"

type principalKey struct{}

// WithPrincipal stores a verified principal in the context. Only the auth
// middleware writes this; it is the single chokepoint that decides whose data
// a request may touch.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the verified principal from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}
