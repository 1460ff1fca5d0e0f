// Package identity resolves the calling principal and its group membership.
// The ledger treats identity as an external collaborator with a narrow
// contract; this package provides the production implementation (signed
// bearer tokens plus the membership table) behind that contract.
package identity

import (
	"context"
	"fmt"

	"pockets/internal/core"
)

// Principal is the authenticated caller.
type Principal struct {
	ID          string
	Email       string
	ActiveGroup string // the group the caller currently operates in, may be empty
}

// Provider is the identity contract consumed by the services.
type Provider interface {
	// CurrentPrincipal returns the caller attached to ctx, or
	// ErrNotAuthenticated when there is none.
	CurrentPrincipal(ctx context.Context) (Principal, error)
	IsMember(ctx context.Context, p Principal, groupID string) (bool, error)
	RoleOf(ctx context.Context, p Principal, groupID string) (core.Role, error)
}

type contextKey struct{}

// WithPrincipal attaches an authenticated principal to the context. The HTTP
// middleware calls this after verifying the bearer token.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFrom extracts the principal attached by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// RoleStore looks up a member's role; satisfied by the storage repository.
type RoleStore interface {
	GroupRole(ctx context.Context, groupID, userID string) (core.Role, error)
}

// StoreProvider resolves principals from the request context and membership
// from the persistent store.
type StoreProvider struct {
	roles RoleStore
}

func NewStoreProvider(roles RoleStore) *StoreProvider {
	return &StoreProvider{roles: roles}
}

func (p *StoreProvider) CurrentPrincipal(ctx context.Context) (Principal, error) {
	principal, ok := PrincipalFrom(ctx)
	if !ok || principal.ID == "" {
		return Principal{}, fmt.Errorf("%w: no principal on request", core.ErrNotAuthenticated)
	}
	return principal, nil
}

func (p *StoreProvider) IsMember(ctx context.Context, principal Principal, groupID string) (bool, error) {
	role, err := p.roles.GroupRole(ctx, groupID, principal.ID)
	if err != nil {
		return false, err
	}
	return role != core.RoleNone, nil
}

func (p *StoreProvider) RoleOf(ctx context.Context, principal Principal, groupID string) (core.Role, error) {
	return p.roles.GroupRole(ctx, groupID, principal.ID)
}
