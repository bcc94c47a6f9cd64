package history

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

// Add records one executed search. categoryID may be nil.
func (r *Repo) Add(ctx context.Context, query string, resultsCount int, categoryID *int64) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO search_history (query, results_count, category_id)
		VALUES (?, ?, ?)
	`, query, resultsCount, categoryID)
	if err != nil {
		return fmt.Errorf("insert search history: %w", err)
	}
	return nil
}

// List returns the most recent searches, newest first.
func (r *Repo) List(ctx context.Context, limit int) ([]models.SearchHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, query, results_count, category_id, created_at
		FROM search_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}
	defer rows.Close()

	out := []models.SearchHistory{}
	for rows.Next() {
		var h models.SearchHistory
		var catID sql.NullInt64
		if err := rows.Scan(&h.ID, &h.Query, &h.ResultsCount, &catID, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if catID.Valid {
			h.CategoryID = &catID.Int64
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Clear deletes the whole history and reports how many rows went.
func (r *Repo) Clear(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM search_history`)
	if err != nil {
		return 0, fmt.Errorf("clear search history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
