package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"warchive/pkg/models"
)

const naraBase = "https://catalog.archives.gov/api/v1"

// NationalArchives searches the US National Archives Catalog. The
// catalog reports no dimensions or file sizes, so width gating does
// not apply; everything it serves is public domain.
type NationalArchives struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string

	limiter *rate.Limiter
}

func NewNationalArchives() *NationalArchives {
	return &NationalArchives{
		BaseURL:   naraBase,
		Client:    &http.Client{Timeout: 12 * time.Second},
		UserAgent: defaultUserAgent,
		limiter:   rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

func (s *NationalArchives) Name() string { return "nara" }

type naraResponse struct {
	Results struct {
		Result []naraItem `json:"result"`
	} `json:"results"`
}

type naraItem struct {
	NaID        flexString      `json:"naId"`
	Title       string          `json:"title"`
	Description naraDescription `json:"description"`
	Objects     struct {
		// single object or array, record dependent
		Object json.RawMessage `json:"object"`
	} `json:"objects"`
}

type naraDescription struct {
	Title               string          `json:"title"`
	ScopeAndContentNote string          `json:"scopeAndContentNote"`
	DigitalObject       json.RawMessage `json:"digitalObject"`
}

type naraObject struct {
	File struct {
		URL string `json:"@url"`
	} `json:"file"`
}

type naraDigital struct {
	ObjectURL string `json:"objectUrl"`
}

// Search runs a single "world war II {query}" search against the
// catalog, keeping only items with a resolvable image URL.
func (s *NationalArchives) Search(ctx context.Context, query string, opts SearchOptions) Result {
	limit := clampLimit(opts.Limit, 50)
	searchQuery := "world war II " + query

	params := url.Values{}
	params.Set("q", searchQuery)
	params.Set("resultTypes", "item")
	params.Set("rows", strconv.Itoa(min(limit, 100)))
	params.Set("description.fileUnit.mediaType", "image")

	resp, err := s.doSearch(ctx, params)
	if err != nil {
		res := failure(fmt.Sprintf("nara: %v", err))
		res.Query = searchQuery
		return res
	}

	images := make([]models.ImageRecord, 0, len(resp.Results.Result))
	for _, item := range resp.Results.Result {
		imageURL := extractNaraImageURL(item)
		if imageURL == "" {
			continue
		}
		id := string(item.NaID)
		if id == "" {
			continue
		}

		images = append(images, models.ImageRecord{
			SourceID:     "nara_" + id,
			Title:        cleanTitle(coalesce(item.Description.Title, item.Title)),
			Description:  cleanDescription(item.Description.ScopeAndContentNote),
			SourceURL:    imageURL,
			ThumbnailURL: imageURL,
			// the catalog reports no dimensions
			Width:    0,
			Height:   0,
			FileSize: 0,
			MimeType: "image/jpeg",
			License:  "Public Domain",
			Author:   "National Archives",
			Source:   "nara",
		})
	}

	total := len(images)
	if len(images) > limit {
		images = images[:limit]
	}
	return Result{Success: true, Images: images, Total: total, Query: searchQuery}
}

// Browse has no category tree to walk; it runs the slug's first three
// curated search phrases and merges the unique hits.
func (s *NationalArchives) Browse(ctx context.Context, categorySlug string, limit int) Result {
	queries, ok := naraTerms.SearchTerms[categorySlug]
	if !ok {
		return failure("category not found: " + categorySlug)
	}
	limit = clampLimit(limit, 50)
	queries = firstN(queries, 3)

	var (
		all       []models.ImageRecord
		seen      = make(map[string]struct{})
		succeeded int
	)

	for _, q := range queries {
		if len(all) >= limit {
			break
		}
		res := s.Search(ctx, q, SearchOptions{Limit: limit / len(queries)})
		if !res.Success {
			log.Printf("[scraper] nara query %q: %s", q, res.Error)
			continue
		}
		succeeded++
		all = mergeUnique(all, seen, res.Images)
	}

	if succeeded == 0 {
		return failure("nara: all category queries failed for " + categorySlug)
	}

	total := len(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return Result{Success: true, Images: all, Total: total}
}

func (s *NationalArchives) doSearch(ctx context.Context, params url.Values) (*naraResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var decoded naraResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return &decoded, nil
}

// extractNaraImageURL resolves an item's image URL, preferring the
// digitized file objects and falling back to the description's
// digitalObject entries.
func extractNaraImageURL(item naraItem) string {
	for _, obj := range rawList[naraObject](item.Objects.Object) {
		if u := obj.File.URL; u != "" && isImageURL(u) {
			return u
		}
	}
	for _, d := range rawList[naraDigital](item.Description.DigitalObject) {
		if d.ObjectURL != "" {
			return d.ObjectURL
		}
	}
	return ""
}

func isImageURL(u string) bool {
	u = strings.ToLower(u)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".tif", ".tiff"} {
		if strings.Contains(u, ext) {
			return true
		}
	}
	return false
}
