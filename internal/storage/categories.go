package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// CreateCategory inserts a new category row.
func (q *Queries) CreateCategory(ctx context.Context, c core.Category) error {
	const query = `
		INSERT INTO categories (id, owner_id, name, kind, color_hex, icon, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := q.db.ExecContext(ctx, query,
		c.ID, c.OwnerID, c.Name, string(c.Kind), c.ColorHex, c.Icon, c.CreatedAt.UTC())
	if err != nil {
		return translateErr(fmt.Errorf("create category: %w", err))
	}
	return nil
}

// GetCategory fetches one category scoped to its owner.
func (q *Queries) GetCategory(ctx context.Context, ownerID, id string) (core.Category, error) {
	const query = `
		SELECT id, owner_id, name, kind, color_hex, icon, created_at
		FROM categories WHERE id = ? AND owner_id = ?`
	c, err := scanCategoryRow(q.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	return c, err
}

// ListCategories returns every category for the owner, by name.
func (q *Queries) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	const query = `
		SELECT id, owner_id, name, kind, color_hex, icon, created_at
		FROM categories WHERE owner_id = ? ORDER BY name, id`
	rows, err := q.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, translateErr(fmt.Errorf("list categories: %w", err))
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategoryRow(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, translateErr(rows.Err())
}

// UpdateCategory changes name, kind, color and icon.
func (q *Queries) UpdateCategory(ctx context.Context, c core.Category) error {
	const query = `
		UPDATE categories SET name = ?, kind = ?, color_hex = ?, icon = ?
		WHERE id = ? AND owner_id = ?`
	res, err := q.db.ExecContext(ctx, query,
		c.Name, string(c.Kind), c.ColorHex, c.Icon, c.ID, c.OwnerID)
	if err != nil {
		return translateErr(fmt.Errorf("update category: %w", err))
	}
	return requireRow(res)
}

// DeleteCategory removes the category. Entries and templates referencing it
// are nulled, and its budgets cascade away (schema-level FK actions).
func (q *Queries) DeleteCategory(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM categories WHERE id = ? AND owner_id = ?`
	res, err := q.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return translateErr(fmt.Errorf("delete category: %w", err))
	}
	return requireRow(res)
}

func scanCategoryRow(row rowScanner) (core.Category, error) {
	var (
		c       core.Category
		kind    string
		created time.Time
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &kind, &c.ColorHex, &c.Icon, &created); err != nil {
		return core.Category{}, translateErr(err)
	}
	c.Kind = core.Kind(kind)
	c.CreatedAt = created
	return c, nil
}
