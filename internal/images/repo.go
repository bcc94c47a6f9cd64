package images

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"warchive/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// UpsertRecords writes scraped records in one transaction, keyed on
// (source, source_id). Download state columns are never overwritten by
// a re-scrape.
func (r *Repo) UpsertRecords(ctx context.Context, recs []models.ImageRecord, categoryID *int64) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO images (title, description, source_url, thumbnail_url,
		                    width, height, file_size, mime_type,
		                    source, source_id, license, author, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, source_id) DO UPDATE SET
		  title = excluded.title,
		  description = excluded.description,
		  source_url = excluded.source_url,
		  thumbnail_url = excluded.thumbnail_url,
		  width = excluded.width,
		  height = excluded.height,
		  file_size = excluded.file_size,
		  mime_type = excluded.mime_type,
		  license = excluded.license,
		  author = excluded.author,
		  category_id = COALESCE(excluded.category_id, images.category_id)
	`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.ExecContext(
			ctx,
			rec.Title,
			rec.Description,
			rec.SourceURL,
			rec.ThumbnailURL,
			rec.Width,
			rec.Height,
			rec.FileSize,
			rec.MimeType,
			rec.Source,
			rec.SourceID,
			rec.License,
			rec.Author,
			categoryID,
		); err != nil {
			return fmt.Errorf("exec upsert for %s: %w", rec.SourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// MarkDownloaded records where an asset landed on disk.
func (r *Repo) MarkDownloaded(ctx context.Context, sourceURL, filePath, fileName string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE images
		SET is_downloaded = 1, file_path = ?, file_name = ?, download_date = CURRENT_TIMESTAMP
		WHERE source_url = ?
	`, filePath, fileName, sourceURL)
	if err != nil {
		return fmt.Errorf("mark downloaded: %w", err)
	}
	return nil
}

// ToggleFavorite flips the flag and returns the new value, or an
// ErrNoRows-wrapped error when the id is unknown.
func (r *Repo) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var fav bool
	if err := tx.QueryRowContext(ctx, `SELECT is_favorite FROM images WHERE id = ?`, id).Scan(&fav); err != nil {
		return false, fmt.Errorf("load favorite flag: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE images SET is_favorite = ? WHERE id = ?`, !fav, id); err != nil {
		return false, fmt.Errorf("update favorite flag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return !fav, nil
}

const imageColumns = `
	id, title, COALESCE(description, ''), source_url, COALESCE(thumbnail_url, ''),
	COALESCE(file_path, ''), COALESCE(file_name, ''),
	width, height, file_size, COALESCE(mime_type, ''),
	source, source_id, COALESCE(license, ''), COALESCE(author, ''),
	is_downloaded, is_favorite, download_date, category_id, created_at
`

func scanImageRow(rows *sql.Rows) (models.ImageRow, error) {
	var (
		img      models.ImageRow
		download sql.NullTime
		catID    sql.NullInt64
	)
	err := rows.Scan(
		&img.ID, &img.Title, &img.Description, &img.SourceURL, &img.ThumbnailURL,
		&img.FilePath, &img.FileName,
		&img.Width, &img.Height, &img.FileSize, &img.MimeType,
		&img.Source, &img.SourceID, &img.License, &img.Author,
		&img.IsDownloaded, &img.IsFavorite, &download, &catID, &img.CreatedAt,
	)
	if err != nil {
		return img, err
	}
	if download.Valid {
		t := download.Time
		img.DownloadDate = &t
	}
	if catID.Valid {
		img.CategoryID = &catID.Int64
	}
	return img, nil
}

func (r *Repo) queryRows(ctx context.Context, query string, args ...any) ([]models.ImageRow, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	out := []models.ImageRow{}
	for rows.Next() {
		img, err := scanImageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		out = append(out, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// ListByCategory returns stored images for one category, newest first.
func (r *Repo) ListByCategory(ctx context.Context, categoryID int64, limit int) ([]models.ImageRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return r.queryRows(ctx, `
		SELECT `+imageColumns+`
		FROM images
		WHERE category_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, categoryID, limit)
}

// ListFavorites returns all favorited images, newest first.
func (r *Repo) ListFavorites(ctx context.Context) ([]models.ImageRow, error) {
	return r.queryRows(ctx, `
		SELECT `+imageColumns+`
		FROM images
		WHERE is_favorite = 1
		ORDER BY created_at DESC, id DESC
	`)
}

// Stats summarizes the local collection.
type Stats struct {
	TotalImages int            `json:"total_images"`
	Downloaded  int            `json:"downloaded"`
	Favorites   int            `json:"favorites"`
	BySource    map[string]int `json:"by_source"`
	Searches    int            `json:"searches"`
	GeneratedAt time.Time      `json:"generated_at"`
}

func (r *Repo) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{BySource: map[string]int{}, GeneratedAt: time.Now().UTC()}

	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(is_downloaded), 0),
		       COALESCE(SUM(is_favorite), 0)
		FROM images
	`).Scan(&s.TotalImages, &s.Downloaded, &s.Favorites)
	if err != nil {
		return nil, fmt.Errorf("image totals: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `SELECT source, COUNT(*) FROM images GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("source counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		s.BySource[src] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_history`).Scan(&s.Searches); err != nil {
		return nil, fmt.Errorf("search count: %w", err)
	}
	return s, nil
}
