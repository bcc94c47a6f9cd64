package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.db")

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, Migrate(db))
	require.NoError(t, SeedCategories(db))
}

func TestOpenEnforcesForeignKeys(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	_, err = db.Exec(
		`INSERT INTO images (source, source_id, title, source_url, category_id)
		 VALUES ('wikimedia', 'wm_1', 'x', 'http://x', 9999)`)
	assert.Error(t, err, "an image row cannot reference a missing category")
}
