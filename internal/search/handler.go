package search

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"warchive/internal/category"
	"warchive/internal/history"
	"warchive/internal/images"
	"warchive/internal/scraper"
	"warchive/pkg/models"
)

// Handler exposes the scraping surface: free-text search, the merged
// all-sources search, category browsing, bulk harvesting and the
// archive.org video index. Results are written through to the images
// table and every query lands in search history.
type Handler struct {
	Wikimedia  *scraper.Wikimedia
	Archive    *scraper.ArchiveOrg
	Aggregator *scraper.Aggregator

	History    *history.Repo
	Images     *images.Repo
	Categories *category.Repo
}

func NewHandler(wm *scraper.Wikimedia, ao *scraper.ArchiveOrg, agg *scraper.Aggregator,
	hist *history.Repo, imgs *images.Repo, cats *category.Repo) *Handler {
	return &Handler{
		Wikimedia:  wm,
		Archive:    ao,
		Aggregator: agg,
		History:    hist,
		Images:     imgs,
		Categories: cats,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
	rg.GET("/search-all", h.searchAll)
	rg.GET("/category-images/:slug", h.categoryImages)
	rg.GET("/bulk-search/:slug", h.bulkSearch)
	rg.GET("/videos", h.videos)
	rg.GET("/videos/:category", h.categoryVideos)
}

func (h *Handler) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q required"})
		return
	}
	slug := strings.TrimSpace(c.Query("category"))
	limit := clampQuery(c.Query("limit"), 100, 200)
	minWidth := clampQuery(c.Query("min_width"), 600, 10000)

	res := h.Wikimedia.Search(c.Request.Context(), q, scraper.SearchOptions{
		CategorySlug: slug,
		Limit:        limit,
		MinWidth:     minWidth,
	})
	if !res.Success {
		c.JSON(http.StatusBadGateway, res)
		return
	}

	h.persist(c.Request.Context(), res.Images, slug)
	h.record(c.Request.Context(), q, len(res.Images), slug)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) searchAll(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q required"})
		return
	}
	limit := clampQuery(c.Query("limit"), 100, 300)

	res := h.Aggregator.SearchAll(c.Request.Context(), q, limit)
	if !res.Success {
		c.JSON(http.StatusBadGateway, gin.H{"error": "all sources failed", "query": q})
		return
	}

	h.persist(c.Request.Context(), res.Images, "")
	h.record(c.Request.Context(), q, len(res.Images), "")
	c.JSON(http.StatusOK, res)
}

func (h *Handler) categoryImages(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	limit := clampQuery(c.Query("limit"), 50, 100)

	res := h.Wikimedia.Browse(c.Request.Context(), slug, limit)
	if !res.Success {
		h.renderFailure(c, res)
		return
	}

	h.persist(c.Request.Context(), res.Images, slug)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) bulkSearch(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	limit := clampQuery(c.Query("limit"), 200, 500)

	res := h.Wikimedia.BulkSearch(c.Request.Context(), slug, limit)
	if !res.Success {
		h.renderFailure(c, res)
		return
	}

	h.persist(c.Request.Context(), res.Images, slug)
	h.record(c.Request.Context(), "bulk:"+slug, len(res.Images), slug)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) videos(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q required"})
		return
	}
	limit := clampQuery(c.Query("limit"), 30, 100)

	res := h.Archive.SearchVideos(c.Request.Context(), q, limit)
	if !res.Success {
		c.JSON(http.StatusBadGateway, res)
		return
	}

	h.record(c.Request.Context(), q, len(res.Images), "")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"videos":  res.Images,
		"total":   res.Total,
		"query":   res.Query,
	})
}

func (h *Handler) categoryVideos(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("category"))
	limit := clampQuery(c.Query("limit"), 30, 100)

	res := h.Archive.BrowseVideos(c.Request.Context(), slug, limit)
	if !res.Success {
		h.renderFailure(c, res)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"videos":  res.Images,
		"total":   res.Total,
	})
}

func (h *Handler) renderFailure(c *gin.Context, res scraper.Result) {
	if strings.Contains(res.Error, "category not found") {
		c.JSON(http.StatusNotFound, gin.H{"error": res.Error})
		return
	}
	c.JSON(http.StatusBadGateway, res)
}

// persist writes results into the images table; a storage error never
// fails the request that produced the results.
func (h *Handler) persist(ctx context.Context, recs []models.ImageRecord, slug string) {
	if len(recs) == 0 {
		return
	}
	var catID *int64
	if slug != "" {
		id, err := h.Categories.IDBySlug(ctx, slug)
		if err != nil {
			log.Printf("[search] resolve category %q: %v", slug, err)
		} else {
			catID = id
		}
	}
	if err := h.Images.UpsertRecords(ctx, recs, catID); err != nil {
		log.Printf("[search] persist results: %v", err)
	}
}

// record appends to search history, best effort.
func (h *Handler) record(ctx context.Context, q string, count int, slug string) {
	var catID *int64
	if slug != "" {
		id, err := h.Categories.IDBySlug(ctx, slug)
		if err != nil {
			log.Printf("[search] resolve category %q: %v", slug, err)
		} else {
			catID = id
		}
	}
	if err := h.History.Add(ctx, q, count, catID); err != nil {
		log.Printf("[search] record history: %v", err)
	}
}

func clampQuery(raw string, def, max int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
