package auth

import "context"

// Principal represents the authenticated identity of a caller.
type Principal struct {
	// ID is the stable user id (the token subject).
	ID string
	// Email is the account email carried in the token.
	Email string
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by Require, or nil.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
