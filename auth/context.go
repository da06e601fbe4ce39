// Package auth verifies bearer tokens and carries the authenticated owner
// through request contexts.
package auth

import (
	"context"

	"todoflow/domain/repository"
)

type ownerKey struct{}

// WithOwner returns a context carrying owner
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext returns the owner stored by WithOwner
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok && owner != ""
}

// ContextIdentity reads the current owner from the call's context
type ContextIdentity struct{}

var _ repository.IdentityProvider = ContextIdentity{}

func (ContextIdentity) CurrentOwner(ctx context.Context) (string, bool) {
	return OwnerFromContext(ctx)
}
