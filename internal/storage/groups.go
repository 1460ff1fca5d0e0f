package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pockets/internal/core"
)

// Group is a household sharing a ledger.
type Group struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

func (r *SQLiteRepository) CreateGroup(ctx context.Context, name, ownerID string) (Group, error) {
	g := Group{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO groups (id, name, created_at) VALUES (?, ?, ?)`,
			g.ID, g.Name, unixColumn(g.CreatedAt)); err != nil {
			return mapError(fmt.Errorf("insert group: %w", err))
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
			g.ID, ownerID, string(core.RoleOwner), unixColumn(g.CreatedAt)); err != nil {
			return mapError(fmt.Errorf("insert owner membership: %w", err))
		}
		return nil
	})
	if err != nil {
		return Group{}, err
	}
	return g, nil
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, id string) (Group, error) {
	var (
		g         Group
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &createdAt)
	if err != nil {
		return Group{}, mapError(fmt.Errorf("get group: %w", err))
	}
	g.CreatedAt = time.Unix(createdAt, 0).UTC()
	return g, nil
}

func (r *SQLiteRepository) AddMember(ctx context.Context, groupID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		groupID, userID, string(core.RoleMember), unixColumn(time.Now()))
	if err != nil {
		return mapError(fmt.Errorf("insert membership: %w", err))
	}
	return nil
}

// GroupRole returns the member's role, or RoleNone for non-members.
func (r *SQLiteRepository) GroupRole(ctx context.Context, groupID, userID string) (core.Role, error) {
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT role FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RoleNone, nil
	}
	if err != nil {
		return core.RoleNone, mapError(fmt.Errorf("query role: %w", err))
	}
	return core.Role(role), nil
}

// RemoveMember deletes a membership and prunes the member's personal
// categories and their allocations in the same transaction. Group owners
// cannot leave their own group.
func (r *SQLiteRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var role string
		err := tx.QueryRowContext(ctx,
			`SELECT role FROM group_members WHERE group_id = ? AND user_id = ?`,
			groupID, userID).Scan(&role)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: membership", core.ErrNotFound)
		}
		if err != nil {
			return mapError(fmt.Errorf("query role: %w", err))
		}
		if core.Role(role) == core.RoleOwner {
			return fmt.Errorf("%w: the group owner cannot leave the group", core.ErrForbidden)
		}

		// Personal allocations first, then the categories that anchor them.
		// Expenses recorded against a pruned category are kept: the ledger
		// history stays intact for the rest of the group.
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM allocations
			WHERE group_id = ? AND category_id IN
				(SELECT id FROM categories WHERE group_id = ? AND scope = 'personal' AND owner_id = ?)`,
			groupID, groupID, userID); err != nil {
			return mapError(fmt.Errorf("prune personal allocations: %w", err))
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM categories WHERE group_id = ? AND scope = 'personal' AND owner_id = ?`,
			groupID, userID); err != nil {
			return mapError(fmt.Errorf("prune personal categories: %w", err))
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`,
			groupID, userID); err != nil {
			return mapError(fmt.Errorf("delete membership: %w", err))
		}
		return nil
	})
}
