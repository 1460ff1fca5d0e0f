package services

import (
	"context"
	"fmt"

	"pockets/internal/core"
	"pockets/internal/identity"
)

// requireMember resolves the caller and checks membership in groupID.
func requireMember(ctx context.Context, ids identity.Provider, groupID string) (identity.Principal, error) {
	principal, err := ids.CurrentPrincipal(ctx)
	if err != nil {
		return identity.Principal{}, err
	}
	ok, err := ids.IsMember(ctx, principal, groupID)
	if err != nil {
		return identity.Principal{}, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return identity.Principal{}, fmt.Errorf("%w: %s is not a member of group %s", core.ErrForbidden, principal.ID, groupID)
	}
	return principal, nil
}

// requireOwner resolves the caller and checks for the owner role in groupID.
func requireOwner(ctx context.Context, ids identity.Provider, groupID string) (identity.Principal, error) {
	principal, err := ids.CurrentPrincipal(ctx)
	if err != nil {
		return identity.Principal{}, err
	}
	role, err := ids.RoleOf(ctx, principal, groupID)
	if err != nil {
		return identity.Principal{}, fmt.Errorf("check role: %w", err)
	}
	if role != core.RoleOwner {
		return identity.Principal{}, fmt.Errorf("%w: %s is not the owner of group %s", core.ErrForbidden, principal.ID, groupID)
	}
	return principal, nil
}
