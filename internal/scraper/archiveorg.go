package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"warchive/pkg/models"
)

const archiveOrgBase = "https://archive.org"

// ArchiveOrg searches the Internet Archive. It is the only source
// serving both stills (mediatype:image) and film clips
// (mediatype:movies); derivative URLs are built from the item
// identifier rather than reported by the API.
type ArchiveOrg struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string

	limiter *rate.Limiter
}

func NewArchiveOrg() *ArchiveOrg {
	return &ArchiveOrg{
		BaseURL:   archiveOrgBase,
		Client:    &http.Client{Timeout: 12 * time.Second},
		UserAgent: defaultUserAgent,
		limiter:   rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

func (s *ArchiveOrg) Name() string { return "archive_org" }

type aoResponse struct {
	Response struct {
		NumFound int     `json:"numFound"`
		Docs     []aoDoc `json:"docs"`
	} `json:"response"`
}

// title, description and creator come back as a string or a list of
// strings depending on the item.
type aoDoc struct {
	Identifier  string     `json:"identifier"`
	Title       flexText   `json:"title"`
	Description flexText   `json:"description"`
	Year        flexString `json:"year"`
	Creator     flexText   `json:"creator"`
	Downloads   int        `json:"downloads"`
}

// Search queries the advanced search endpoint for still images,
// sorted by download count so well-known material surfaces first.
func (s *ArchiveOrg) Search(ctx context.Context, query string, opts SearchOptions) Result {
	limit := clampLimit(opts.Limit, 50)
	searchQuery := "world war II " + query + " AND mediatype:image"

	resp, err := s.doSearch(ctx, searchQuery, limit)
	if err != nil {
		res := failure(fmt.Sprintf("archive_org: %v", err))
		res.Query = query
		return res
	}

	images := make([]models.ImageRecord, 0, len(resp.Response.Docs))
	for _, doc := range resp.Response.Docs {
		if doc.Identifier == "" {
			continue
		}
		images = append(images, s.imageRecord(doc))
	}

	total := len(images)
	if len(images) > limit {
		images = images[:limit]
	}
	return Result{Success: true, Images: images, Total: total, Query: query}
}

// SearchVideos is the movies counterpart of Search. Records carry the
// details/embed page URLs so a client can play the clip in place.
func (s *ArchiveOrg) SearchVideos(ctx context.Context, query string, limit int) Result {
	limit = clampLimit(limit, 30)
	searchQuery := "world war II " + query + " AND mediatype:movies"

	resp, err := s.doSearch(ctx, searchQuery, limit)
	if err != nil {
		res := failure(fmt.Sprintf("archive_org: %v", err))
		res.Query = query
		return res
	}

	videos := make([]models.ImageRecord, 0, len(resp.Response.Docs))
	for _, doc := range resp.Response.Docs {
		if doc.Identifier == "" {
			continue
		}
		videos = append(videos, s.videoRecord(doc))
	}

	total := resp.Response.NumFound
	if total < len(videos) {
		total = len(videos)
	}
	if len(videos) > limit {
		videos = videos[:limit]
	}
	return Result{Success: true, Images: videos, Total: total, Query: query}
}

// Browse merges image searches for the slug's first two curated
// phrases.
func (s *ArchiveOrg) Browse(ctx context.Context, categorySlug string, limit int) Result {
	queries, ok := archiveOrgTerms.SearchTerms[categorySlug]
	if !ok {
		return failure("category not found: " + categorySlug)
	}
	limit = clampLimit(limit, 50)
	queries = firstN(queries, 2)

	merge := func(q string) Result { return s.Search(ctx, q, SearchOptions{Limit: limit / len(queries)}) }
	return s.browseWith(categorySlug, queries, limit, merge)
}

// BrowseVideos is Browse over the movies index.
func (s *ArchiveOrg) BrowseVideos(ctx context.Context, categorySlug string, limit int) Result {
	queries, ok := archiveOrgTerms.SearchTerms[categorySlug]
	if !ok {
		return failure("category not found: " + categorySlug)
	}
	limit = clampLimit(limit, 20)
	queries = firstN(queries, 2)

	merge := func(q string) Result { return s.SearchVideos(ctx, q, limit/len(queries)) }
	return s.browseWith(categorySlug, queries, limit, merge)
}

func (s *ArchiveOrg) browseWith(slug string, queries []string, limit int, search func(string) Result) Result {
	var (
		all       []models.ImageRecord
		seen      = make(map[string]struct{})
		succeeded int
	)

	for _, q := range queries {
		if len(all) >= limit {
			break
		}
		res := search(q)
		if !res.Success {
			log.Printf("[scraper] archive_org query %q: %s", q, res.Error)
			continue
		}
		succeeded++
		all = mergeUnique(all, seen, res.Images)
	}

	if succeeded == 0 {
		return failure("archive_org: all category queries failed for " + slug)
	}

	total := len(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return Result{Success: true, Images: all, Total: total}
}

func (s *ArchiveOrg) doSearch(ctx context.Context, query string, rows int) (*aoResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	for _, f := range []string{"identifier", "title", "description", "year", "creator", "downloads"} {
		params.Add("fl[]", f)
	}
	params.Set("sort[]", "downloads desc")
	params.Set("rows", strconv.Itoa(rows))
	params.Set("page", "1")
	params.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/advancedsearch.php?"+params.Encode(), nil)
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

	var decoded aoResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return &decoded, nil
}

func (s *ArchiveOrg) imageRecord(doc aoDoc) models.ImageRecord {
	id := doc.Identifier
	return models.ImageRecord{
		SourceID:     "archive_" + id,
		Title:        cleanTitle(string(doc.Title)),
		Description:  cleanDescription(string(doc.Description)),
		SourceURL:    fmt.Sprintf("%s/download/%s/%s.jpg", s.BaseURL, id, id),
		ThumbnailURL: fmt.Sprintf("%s/services/img/%s", s.BaseURL, id),
		Width:        0,
		Height:       0,
		FileSize:     0,
		MimeType:     "image/jpeg",
		License:      "Public Domain",
		Author:       coalesce(string(doc.Creator), "Unknown"),
		Source:       "archive_org",
	}
}

func (s *ArchiveOrg) videoRecord(doc aoDoc) models.ImageRecord {
	id := doc.Identifier
	return models.ImageRecord{
		SourceID:     "archive_" + id,
		Title:        cleanTitle(string(doc.Title)),
		Description:  cleanDescription(string(doc.Description)),
		SourceURL:    fmt.Sprintf("%s/download/%s", s.BaseURL, id),
		ThumbnailURL: fmt.Sprintf("%s/services/img/%s", s.BaseURL, id),
		License:      "Public Domain",
		Author:       coalesce(string(doc.Creator), "Unknown"),
		Source:       "archive_org",
		MediaType:    "video",
		Year:         string(doc.Year),
		PageURL:      fmt.Sprintf("%s/details/%s", s.BaseURL, id),
		EmbedURL:     fmt.Sprintf("%s/embed/%s", s.BaseURL, id),
	}
}
