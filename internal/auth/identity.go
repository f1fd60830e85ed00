// Package auth issues and verifies access tokens and carries the caller identity.
package auth

import "context"

// Identity is the outcome of verifying a request's bearer token.
// The zero value is an anonymous caller.
type Identity struct {
	UserID        uint
	Email         string
	Authenticated bool
}

// Anonymous returns the identity attached when no valid token was presented.
func Anonymous() Identity {
	return Identity{}
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored in ctx, or Anonymous.
func IdentityFromContext(ctx context.Context) Identity {
	if ctx == nil {
		return Anonymous()
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok {
		return Anonymous()
	}
	return id
}
