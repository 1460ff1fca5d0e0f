package services

import (
	"context"
	"fmt"
	"log/slog"

	"pockets/internal/core"
	"pockets/internal/identity"
	"pockets/internal/storage"
)

// RegistryService manages groups, memberships and categories.
type RegistryService struct {
	storage *storage.SQLiteRepository
	ids     identity.Provider
}

func NewRegistryService(storage *storage.SQLiteRepository, ids identity.Provider) *RegistryService {
	return &RegistryService{storage: storage, ids: ids}
}

// CreateGroup creates a group owned by the caller.
func (s *RegistryService) CreateGroup(ctx context.Context, name string) (storage.Group, error) {
	principal, err := s.ids.CurrentPrincipal(ctx)
	if err != nil {
		return storage.Group{}, err
	}

	group, err := s.storage.CreateGroup(ctx, name, principal.ID)
	if err != nil {
		return storage.Group{}, fmt.Errorf("create group: %w", err)
	}

	slog.InfoContext(ctx, "Created group", "group_id", group.ID, "owner", principal.ID)
	return group, nil
}

// AddMember adds a user to a group. Only the group owner can invite.
func (s *RegistryService) AddMember(ctx context.Context, groupID, userID string) error {
	if _, err := requireOwner(ctx, s.ids, groupID); err != nil {
		return err
	}

	if err := s.storage.AddMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("add member: %w", err)
	}

	slog.InfoContext(ctx, "Added member", "group_id", groupID, "user_id", userID)
	return nil
}

// LeaveGroup removes the caller from the group. The caller's personal
// categories and their allocations are pruned; expenses stay in the ledger.
// The group owner cannot leave.
func (s *RegistryService) LeaveGroup(ctx context.Context, groupID string) error {
	principal, err := requireMember(ctx, s.ids, groupID)
	if err != nil {
		return err
	}

	if err := s.storage.RemoveMember(ctx, groupID, principal.ID); err != nil {
		return fmt.Errorf("leave group: %w", err)
	}

	slog.InfoContext(ctx, "Member left group", "group_id", groupID, "user_id", principal.ID)
	return nil
}

// CreateCategory registers a new spending pocket. Shared categories can be
// created by any member. Personal categories additionally require the caller
// to have the group as their active group, and the caller becomes the owner.
func (s *RegistryService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	principal, err := requireMember(ctx, s.ids, c.GroupID)
	if err != nil {
		return core.Category{}, err
	}

	if c.IsPersonal() {
		if principal.ActiveGroup != c.GroupID {
			return core.Category{}, fmt.Errorf("%w: personal categories require %s as the active group", core.ErrForbidden, c.GroupID)
		}
		c.OwnerID = principal.ID
	}

	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	created, err := s.storage.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Created category",
		"category_id", created.ID,
		"group_id", created.GroupID,
		"scope", created.Scope)
	return created, nil
}

// ListCategories returns every category of the group, shared and personal
// alike. Personal pockets stay visible to all members.
func (s *RegistryService) ListCategories(ctx context.Context, groupID string) ([]core.Category, error) {
	if _, err := requireMember(ctx, s.ids, groupID); err != nil {
		return nil, err
	}
	return s.storage.ListCategories(ctx, groupID)
}

// DeleteCategory removes a category that no expense or allocation references.
// Personal categories can be deleted only by their owner; shared ones only by
// the group owner.
func (s *RegistryService) DeleteCategory(ctx context.Context, categoryID string) error {
	category, err := s.storage.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}

	if category.IsPersonal() {
		principal, err := requireMember(ctx, s.ids, category.GroupID)
		if err != nil {
			return err
		}
		if principal.ID != category.OwnerID {
			return fmt.Errorf("%w: only the owner can delete a personal category", core.ErrForbidden)
		}
	} else {
		if _, err := requireOwner(ctx, s.ids, category.GroupID); err != nil {
			return err
		}
	}

	if err := s.storage.DeleteCategory(ctx, categoryID); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Deleted category", "category_id", categoryID, "group_id", category.GroupID)
	return nil
}
