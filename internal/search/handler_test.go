package search

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warchive/internal/category"
	"warchive/internal/history"
	"warchive/internal/images"
	"warchive/internal/scraper"
	"warchive/pkg/database"
)

type testEnv struct {
	router *gin.Engine
	db     *sql.DB
}

func newTestEnv(t *testing.T, upstream string) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedCategories(db))

	wm := scraper.NewWikimedia()
	wm.BaseURL = upstream
	archive := scraper.NewArchiveOrg()
	archive.BaseURL = upstream
	agg := scraper.NewAggregator(wm)

	catRepo := category.NewRepo(db)
	histRepo := history.NewRepo(db)
	imgRepo := images.NewRepo(db)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(wm, archive, agg, histRepo, imgRepo, catRepo).RegisterRoutes(router.Group("/api"))

	return &testEnv{router: router, db: db}
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func wikimediaUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	var page int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page++
		fmt.Fprintf(w, `{"query":{"pages":{"%d":{
			"title": "File:Hit %d.jpg",
			"imageinfo": [{
				"url": "https://upload.example/%d.jpg",
				"thumburl": "https://upload.example/t/%d.jpg",
				"width": 800, "height": 600, "size": 1024,
				"mime": "image/jpeg", "extmetadata": {}
			}]
		}}}}`, page, page, page, page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchEndpointPersistsResultsAndHistory(t *testing.T) {
	env := newTestEnv(t, wikimediaUpstream(t).URL)

	rec := env.get(t, "/api/search?q=tiger&category=tanklar&limit=10")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res scraper.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Images)

	var imgCount int
	require.NoError(t, env.db.QueryRow(`SELECT COUNT(*) FROM images`).Scan(&imgCount))
	assert.Equal(t, len(res.Images), imgCount)

	var query string
	var catID sql.NullInt64
	require.NoError(t, env.db.QueryRow(
		`SELECT query, category_id FROM search_history ORDER BY id DESC LIMIT 1`,
	).Scan(&query, &catID))
	assert.Equal(t, "tiger", query)
	assert.True(t, catID.Valid, "category slug resolves to an id in history")
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	env := newTestEnv(t, wikimediaUpstream(t).URL)

	rec := env.get(t, "/api/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpointBadGatewayWhenUpstreamDies(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)

	env := newTestEnv(t, broken.URL)
	rec := env.get(t, "/api/search?q=tiger")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCategoryImagesUnknownSlugIs404(t *testing.T) {
	env := newTestEnv(t, wikimediaUpstream(t).URL)

	rec := env.get(t, "/api/category-images/zeppelinler")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClampQuery(t *testing.T) {
	assert.Equal(t, 100, clampQuery("", 100, 200))
	assert.Equal(t, 100, clampQuery("abc", 100, 200))
	assert.Equal(t, 100, clampQuery("-5", 100, 200))
	assert.Equal(t, 42, clampQuery("42", 100, 200))
	assert.Equal(t, 200, clampQuery("999", 100, 200))
}
