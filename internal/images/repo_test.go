package images

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warchive/pkg/database"
	"warchive/pkg/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedCategories(db))
	return db
}

func record(sourceID, title string) models.ImageRecord {
	return models.ImageRecord{
		SourceID:  sourceID,
		Title:     title,
		SourceURL: "https://upload.example/" + sourceID + ".jpg",
		Source:    "wikimedia",
		Width:     800,
		Height:    600,
		MimeType:  "image/jpeg",
	}
}

func TestUpsertRecordsIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	recs := []models.ImageRecord{record("wm_1", "First"), record("wm_2", "Second")}
	require.NoError(t, repo.UpsertRecords(ctx, recs, nil))

	// re-scrape with an updated title must not duplicate rows
	recs[0].Title = "First (renamed)"
	require.NoError(t, repo.UpsertRecords(ctx, recs, nil))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM images`).Scan(&count))
	assert.Equal(t, 2, count)

	var title string
	require.NoError(t, db.QueryRow(`SELECT title FROM images WHERE source_id = 'wm_1'`).Scan(&title))
	assert.Equal(t, "First (renamed)", title)
}

func TestUpsertKeepsDownloadState(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	rec := record("wm_1", "Tiger")
	require.NoError(t, repo.UpsertRecords(ctx, []models.ImageRecord{rec}, nil))
	require.NoError(t, repo.MarkDownloaded(ctx, rec.SourceURL, "/tmp/tiger.jpg", "tiger.jpg"))

	require.NoError(t, repo.UpsertRecords(ctx, []models.ImageRecord{rec}, nil))

	var downloaded bool
	var path string
	require.NoError(t, db.QueryRow(
		`SELECT is_downloaded, file_path FROM images WHERE source_id = 'wm_1'`,
	).Scan(&downloaded, &path))
	assert.True(t, downloaded, "re-scraping must not reset download state")
	assert.Equal(t, "/tmp/tiger.jpg", path)
}

func TestUpsertKeepsCategoryWhenRescrapeHasNone(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	var catID int64
	require.NoError(t, db.QueryRow(`SELECT id FROM categories WHERE slug = 'tanklar'`).Scan(&catID))

	rec := record("wm_1", "Tiger")
	require.NoError(t, repo.UpsertRecords(ctx, []models.ImageRecord{rec}, &catID))
	require.NoError(t, repo.UpsertRecords(ctx, []models.ImageRecord{rec}, nil))

	rows, err := repo.ListByCategory(ctx, catID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "wm_1", rows[0].SourceID)
}

func TestToggleFavorite(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertRecords(ctx, []models.ImageRecord{record("wm_1", "Tiger")}, nil))

	var id int64
	require.NoError(t, db.QueryRow(`SELECT id FROM images WHERE source_id = 'wm_1'`).Scan(&id))

	fav, err := repo.ToggleFavorite(ctx, id)
	require.NoError(t, err)
	assert.True(t, fav)

	favs, err := repo.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, id, favs[0].ID)

	fav, err = repo.ToggleFavorite(ctx, id)
	require.NoError(t, err)
	assert.False(t, fav)

	favs, err = repo.ListFavorites(ctx)
	require.NoError(t, err)
	assert.Empty(t, favs)

	_, err = repo.ToggleFavorite(ctx, 9999)
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	recs := []models.ImageRecord{record("wm_1", "A"), record("wm_2", "B")}
	naraRec := record("nara_1", "C")
	naraRec.Source = "nara"
	recs = append(recs, naraRec)
	require.NoError(t, repo.UpsertRecords(ctx, recs, nil))
	require.NoError(t, repo.MarkDownloaded(ctx, recs[0].SourceURL, "/tmp/a.jpg", "a.jpg"))

	s, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalImages)
	assert.Equal(t, 1, s.Downloaded)
	assert.Equal(t, 0, s.Favorites)
	assert.Equal(t, 2, s.BySource["wikimedia"])
	assert.Equal(t, 1, s.BySource["nara"])
}
