package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"warchive/pkg/models"
)

// Wikimedia Commons API base (public)
const wikimediaBase = "https://commons.wikimedia.org/w/api.php"

// Wikimedia searches WW2 imagery on Wikimedia Commons. It is the
// richest source: free-text search plus a browsable category tree,
// with full dimension/license metadata on every hit.
type Wikimedia struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string

	limiter       *rate.Limiter
	maxSubQueries int
}

func NewWikimedia() *Wikimedia {
	return &Wikimedia{
		BaseURL:   wikimediaBase,
		Client:    &http.Client{Timeout: 12 * time.Second},
		UserAgent: defaultUserAgent,
		// one request per 300ms, calls to this source are serialized
		limiter:       rate.NewLimiter(rate.Every(300*time.Millisecond), 1),
		maxSubQueries: 6,
	}
}

func (s *Wikimedia) Name() string { return "wikimedia" }

type wmResponse struct {
	Query struct {
		Pages map[string]wmPage `json:"pages"`
	} `json:"query"`
}

type wmPage struct {
	Title     string        `json:"title"`
	ImageInfo []wmImageInfo `json:"imageinfo"`
}

type wmImageInfo struct {
	URL         string                 `json:"url"`
	ThumbURL    string                 `json:"thumburl"`
	Width       int                    `json:"width"`
	Height      int                    `json:"height"`
	Size        int64                  `json:"size"`
	Mime        string                 `json:"mime"`
	ExtMetadata map[string]wmMetaValue `json:"extmetadata"`
}

type wmMetaValue struct {
	Value string `json:"value"`
}

// Search expands the user query into up to maxSubQueries sub-queries
// (WW2 phrasing variants plus the category's term table) and
// accumulates deduplicated hits until the limit is reached. A failed
// sub-query is logged and skipped; the call fails only when every
// sub-query failed.
func (s *Wikimedia) Search(ctx context.Context, query string, opts SearchOptions) Result {
	limit := clampLimit(opts.Limit, 100)
	minWidth := opts.MinWidth
	if minWidth <= 0 {
		minWidth = 600
	}

	subQueries := []string{
		"World War II " + query,
		"WW2 " + query,
		"WWII " + query,
	}
	if terms, ok := wikimediaTerms.SearchTerms[opts.CategorySlug]; ok {
		for _, term := range firstN(terms, 5) {
			subQueries = append(subQueries, query+" "+term)
		}
	}
	subQueries = firstN(subQueries, s.maxSubQueries)

	var (
		all       []models.ImageRecord
		seen      = make(map[string]struct{})
		succeeded int
		lastErr   error
	)

	for _, sq := range subQueries {
		if len(all) >= limit {
			break
		}

		params := url.Values{}
		params.Set("action", "query")
		params.Set("format", "json")
		params.Set("generator", "search")
		params.Set("gsrsearch", "filetype:bitmap "+sq)
		params.Set("gsrlimit", strconv.Itoa(min(50, limit-len(all))))
		params.Set("gsrnamespace", "6")
		params.Set("prop", "imageinfo")
		params.Set("iiprop", "url|size|mime|extmetadata")
		params.Set("iiurlwidth", "400")

		resp, err := s.doQuery(ctx, params)
		if err != nil {
			log.Printf("[scraper] wikimedia sub-query %q: %v", sq, err)
			lastErr = err
			continue
		}
		succeeded++
		all = s.collect(resp, seen, minWidth, all)
	}

	if succeeded == 0 {
		res := failure(fmt.Sprintf("wikimedia: all sub-queries failed: %v", lastErr))
		res.Query = query
		return res
	}

	total := len(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return Result{Success: true, Images: all, Total: total, Query: query}
}

// Browse walks the slug's Commons categories, then tops the result up
// from the search index when the categories under-deliver.
func (s *Wikimedia) Browse(ctx context.Context, categorySlug string, limit int) Result {
	cats, ok := wikimediaTerms.Categories[categorySlug]
	if !ok {
		return failure("category not found: " + categorySlug)
	}
	limit = clampLimit(limit, 100)

	var (
		all       []models.ImageRecord
		seen      = make(map[string]struct{})
		succeeded int
		lastErr   error
	)

	for _, cat := range firstN(cats, 10) {
		if len(all) >= limit {
			break
		}

		params := url.Values{}
		params.Set("action", "query")
		params.Set("format", "json")
		params.Set("generator", "categorymembers")
		params.Set("gcmtitle", "Category:"+cat)
		params.Set("gcmtype", "file")
		params.Set("gcmlimit", "50")
		params.Set("prop", "imageinfo")
		params.Set("iiprop", "url|size|mime|extmetadata")
		params.Set("iiurlwidth", "400")

		resp, err := s.doQuery(ctx, params)
		if err != nil {
			log.Printf("[scraper] wikimedia category %q: %v", cat, err)
			lastErr = err
			continue
		}
		succeeded++
		all = s.collect(resp, seen, 600, all)
	}

	if len(all) < limit {
		for _, term := range firstN(wikimediaTerms.SearchTerms[categorySlug], 3) {
			if len(all) >= limit {
				break
			}
			res := s.Search(ctx, term, SearchOptions{Limit: 30, MinWidth: 600})
			if !res.Success {
				continue
			}
			succeeded++
			all = mergeUnique(all, seen, res.Images)
		}
	}

	if succeeded == 0 {
		return failure(fmt.Sprintf("wikimedia: category browse failed: %v", lastErr))
	}

	total := len(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return Result{Success: true, Images: all, Total: total}
}

// BulkSearch combines category browsing with the full search-term
// list to gather as many unique records as the limit allows.
func (s *Wikimedia) BulkSearch(ctx context.Context, categorySlug string, limit int) Result {
	if !wikimediaTerms.Known(categorySlug) {
		return failure("category not found: " + categorySlug)
	}
	limit = clampLimit(limit, 200)

	var all []models.ImageRecord
	seen := make(map[string]struct{})
	succeeded := 0

	if res := s.Browse(ctx, categorySlug, limit/2); res.Success {
		succeeded++
		all = mergeUnique(all, seen, res.Images)
	}

	for _, term := range wikimediaTerms.SearchTerms[categorySlug] {
		if len(all) >= limit {
			break
		}
		res := s.Search(ctx, term, SearchOptions{Limit: 30, MinWidth: 600})
		if !res.Success {
			continue
		}
		succeeded++
		all = mergeUnique(all, seen, res.Images)
	}

	if succeeded == 0 {
		return failure("wikimedia: bulk search failed for category " + categorySlug)
	}

	total := len(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return Result{Success: true, Images: all, Total: total}
}

func (s *Wikimedia) doQuery(ctx context.Context, params url.Values) (*wmResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+params.Encode(), nil)
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

	var decoded wmResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return &decoded, nil
}

// collect normalizes a page set into records, skipping pages already
// seen in this call and anything below the width gate or outside
// image mime types. Page IDs are walked in sorted order so output
// stays deterministic regardless of map iteration.
func (s *Wikimedia) collect(resp *wmResponse, seen map[string]struct{}, minWidth int, out []models.ImageRecord) []models.ImageRecord {
	ids := make([]string, 0, len(resp.Query.Pages))
	for id := range resp.Query.Pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		sourceID := "wm_" + id
		if _, ok := seen[sourceID]; ok {
			continue
		}
		seen[sourceID] = struct{}{}

		page := resp.Query.Pages[id]
		if len(page.ImageInfo) == 0 {
			continue
		}
		info := page.ImageInfo[0]

		if info.Width < minWidth {
			continue
		}
		if !strings.HasPrefix(info.Mime, "image/") {
			continue
		}

		out = append(out, models.ImageRecord{
			SourceID:     sourceID,
			Title:        cleanTitle(page.Title),
			Description:  cleanDescription(metaValue(info.ExtMetadata, "ImageDescription")),
			SourceURL:    info.URL,
			ThumbnailURL: coalesce(info.ThumbURL, info.URL),
			Width:        info.Width,
			Height:       info.Height,
			FileSize:     info.Size,
			MimeType:     info.Mime,
			License:      metaValue(info.ExtMetadata, "LicenseShortName"),
			Author:       metaValue(info.ExtMetadata, "Artist"),
			Source:       "wikimedia",
		})
	}
	return out
}

func metaValue(meta map[string]wmMetaValue, key string) string {
	if meta == nil {
		return ""
	}
	return stripHTML(meta[key].Value)
}
