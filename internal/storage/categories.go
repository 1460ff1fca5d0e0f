package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pockets/internal/core"
)

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, group_id, name, scope, owner_id, limit_hint_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.GroupID, c.Name, string(c.Scope), c.OwnerID, toCents(c.LimitHint), unixColumn(c.CreatedAt))
	if err != nil {
		return core.Category{}, mapError(fmt.Errorf("insert category: %w", err))
	}
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, group_id, name, scope, owner_id, limit_hint_cents, created_at
		FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, mapError(fmt.Errorf("get category: %w", err))
	}
	return c, nil
}

// ListCategories returns every category in the group ordered by name. All
// scopes are included: personal categories stay visible to the whole group.
func (r *SQLiteRepository) ListCategories(ctx context.Context, groupID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, group_id, name, scope, owner_id, limit_hint_cents, created_at
		FROM categories WHERE group_id = ? ORDER BY name`, groupID)
	if err != nil {
		return nil, mapError(fmt.Errorf("list categories: %w", err))
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, mapError(fmt.Errorf("scan category: %w", err))
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(fmt.Errorf("iterate categories: %w", err))
	}
	return out, nil
}

// DeleteCategory removes a category with no dependent records. A category
// still referenced by expenses or allocations cannot be deleted.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var refs int
		err := tx.QueryRowContext(ctx, `
			SELECT (SELECT COUNT(*) FROM expenses WHERE category_id = ?)
			     + (SELECT COUNT(*) FROM allocations WHERE category_id = ?)`,
			id, id).Scan(&refs)
		if err != nil {
			return mapError(fmt.Errorf("count category references: %w", err))
		}
		if refs > 0 {
			return fmt.Errorf("%w: category has dependent records", core.ErrConflict)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			return mapError(fmt.Errorf("delete category: %w", err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: category", core.ErrNotFound)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c         core.Category
		scope     string
		limitHint int64
		createdAt int64
	)
	if err := row.Scan(&c.ID, &c.GroupID, &c.Name, &scope, &c.OwnerID, &limitHint, &createdAt); err != nil {
		return core.Category{}, err
	}
	c.Scope = core.Scope(scope)
	c.LimitHint = fromCents(limitHint)
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	return c, nil
}
