package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const categoryColumns = `id, outlet_id, name, sort_order, is_active, created_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.OutletID, &c.Name, &c.SortOrder, &c.IsActive, &c.CreatedAt)
	return c, err
}

const listCategoriesByOutlet = `
SELECT ` + categoryColumns + `
FROM categories
WHERE outlet_id = $1 AND is_active = true
ORDER BY sort_order ASC
`

func (q *Queries) ListCategoriesByOutlet(ctx context.Context, outletID uuid.UUID) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategoriesByOutlet, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

const createCategory = `
INSERT INTO categories (outlet_id, name, sort_order)
VALUES ($1, $2, (SELECT COUNT(*) FROM categories WHERE outlet_id = $1 AND is_active = true))
RETURNING ` + categoryColumns + `
`

type CreateCategoryParams struct {
	OutletID uuid.UUID
	Name     string
}

// CreateCategory appends the new category at the end of the display order.
func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, createCategory, arg.OutletID, arg.Name))
}

const updateCategory = `
UPDATE categories
SET name = $3
WHERE id = $1 AND outlet_id = $2 AND is_active = true
RETURNING ` + categoryColumns + `
`

type UpdateCategoryParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
	Name     string
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, updateCategory, arg.ID, arg.OutletID, arg.Name))
}

const softDeleteCategory = `
UPDATE categories
SET is_active = false
WHERE id = $1 AND outlet_id = $2 AND is_active = true
RETURNING id
`

type SoftDeleteCategoryParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) SoftDeleteCategory(ctx context.Context, arg SoftDeleteCategoryParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteCategory, arg.ID, arg.OutletID).Scan(&id)
	return id, err
}

const updateCategorySortOrder = `
UPDATE categories
SET sort_order = $3
WHERE id = $1 AND outlet_id = $2 AND is_active = true
RETURNING id
`

type UpdateCategorySortOrderParams struct {
	ID        uuid.UUID
	OutletID  uuid.UUID
	SortOrder int32
}

// UpdateCategorySortOrder sets one category's position. The reorder handler
// calls this inside a transaction for every id in the submitted list, so the
// outlet ends up with contiguous sort_order 0..N-1.
func (q *Queries) UpdateCategorySortOrder(ctx context.Context, arg UpdateCategorySortOrderParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, updateCategorySortOrder, arg.ID, arg.OutletID, arg.SortOrder).Scan(&id)
	return id, err
}
