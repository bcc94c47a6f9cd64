package category

import (
	"context"
	"database/sql"
	"fmt"

	"warchive/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// List returns all categories with a live image count per category.
func (r *Repo) List(ctx context.Context) ([]models.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, c.name, c.slug, c.icon, COALESCE(c.description, ''),
		       (SELECT COUNT(*) FROM images i WHERE i.category_id = c.id),
		       c.created_at
		FROM categories c
		ORDER BY c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Icon, &cat.Description, &cat.ImageCount, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		out = append(out, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// GetBySlug returns one category, or nil when the slug is unknown.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT c.id, c.name, c.slug, c.icon, COALESCE(c.description, ''),
		       (SELECT COUNT(*) FROM images i WHERE i.category_id = c.id),
		       c.created_at
		FROM categories c
		WHERE c.slug = ?
	`, slug)

	var cat models.Category
	if err := row.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Icon, &cat.Description, &cat.ImageCount, &cat.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &cat, nil
}

// IDBySlug resolves a slug to its row ID, returning nil for unknown slugs.
func (r *Repo) IDBySlug(ctx context.Context, slug string) (*int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT id FROM categories WHERE slug = ?`, slug).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve category slug: %w", err)
	}
	return &id, nil
}
