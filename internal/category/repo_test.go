package category

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warchive/pkg/database"
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

func TestListSeededCategories(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)

	cats, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 8)

	slugs := make([]string, len(cats))
	for i, c := range cats {
		slugs[i] = c.Slug
		assert.Zero(t, c.ImageCount)
	}
	assert.Contains(t, slugs, "tanklar")
	assert.Contains(t, slugs, "savas_sahneleri")
}

func TestGetBySlug(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	cat, err := repo.GetBySlug(ctx, "ucaklar")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, "ucaklar", cat.Slug)
	assert.NotEmpty(t, cat.Name)

	missing, err := repo.GetBySlug(ctx, "zeppelinler")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestImageCountTracksImagesTable(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	id, err := repo.IDBySlug(ctx, "gemiler")
	require.NoError(t, err)
	require.NotNil(t, id)

	_, err = db.Exec(`
		INSERT INTO images (title, source_url, source, source_id, category_id)
		VALUES ('Bismarck', 'https://x/b.jpg', 'wikimedia', 'wm_1', ?),
		       ('Yamato', 'https://x/y.jpg', 'wikimedia', 'wm_2', ?)
	`, *id, *id)
	require.NoError(t, err)

	cat, err := repo.GetBySlug(ctx, "gemiler")
	require.NoError(t, err)
	assert.Equal(t, 2, cat.ImageCount)

	missingID, err := repo.IDBySlug(ctx, "zeppelinler")
	require.NoError(t, err)
	assert.Nil(t, missingID)
}
