package scraper

import (
	"context"
	"log"

	"warchive/pkg/models"
)

// defaultUserAgent identifies this client to the external archive APIs.
// All outbound requests must carry it (a courtesy convention for the
// public services, not a security mechanism).
const defaultUserAgent = "WW2ImageArchive/1.0 (Educational Project)"

// SearchOptions tunes a single adapter search call.
type SearchOptions struct {
	CategorySlug string // widens the query with the category's term table when set
	Limit        int    // max records to return; adapter default applies when <= 0
	MinWidth     int    // quality gate for sources that report dimensions
}

// Result is the outcome of one adapter call. Success is false only
// when the call produced nothing usable (every sub-query failed, or
// the category slug was unknown); partial success is still Success.
type Result struct {
	Success bool                 `json:"success"`
	Images  []models.ImageRecord `json:"images"`
	Total   int                  `json:"total"`
	Query   string               `json:"query,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func failure(err string) Result {
	return Result{Success: false, Error: err, Images: []models.ImageRecord{}}
}

// Source is implemented by each external archive adapter. Each source
// fetches its own wire format and maps it into ImageRecord.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, opts SearchOptions) Result
	Browse(ctx context.Context, categorySlug string, limit int) Result
}

// AllResult is the merged outcome of a search across every source.
type AllResult struct {
	Success bool                 `json:"success"`
	Images  []models.ImageRecord `json:"images"`
	Total   int                  `json:"total"`
	Sources []string             `json:"sources"`
	Query   string               `json:"query"`
}

// Aggregator fans a query out to all registered sources and merges
// the results in registration order.
type Aggregator struct {
	Sources []Source
}

func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{Sources: sources}
}

// SearchAll queries every source with an even split of the limit.
// A failing source is dropped from the contributing-sources list and
// never aborts the others. Merge order is registration order, not
// response order, so results stay deterministic.
func (a *Aggregator) SearchAll(ctx context.Context, query string, limit int) AllResult {
	out := AllResult{
		Images:  []models.ImageRecord{},
		Sources: []string{},
		Query:   query,
	}
	if len(a.Sources) == 0 {
		return out
	}

	// even split, remainder dropped; a limit below the source count
	// leaves every source a zero share, so no queries are issued and
	// the empty result still counts as a successful search
	perSource := limit / len(a.Sources)
	if perSource == 0 {
		out.Success = true
		return out
	}

	for _, src := range a.Sources {
		res := src.Search(ctx, query, SearchOptions{Limit: perSource})
		if !res.Success {
			log.Printf("[scraper] source %s failed: %s", src.Name(), res.Error)
			continue
		}
		out.Images = append(out.Images, res.Images...)
		out.Sources = append(out.Sources, src.Name())
	}

	out.Total = len(out.Images)
	if len(out.Images) > limit {
		out.Images = out.Images[:limit]
	}
	out.Success = len(out.Sources) > 0
	return out
}

func clampLimit(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

func firstN(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	return list[:n]
}

// mergeUnique appends records whose SourceID has not been seen in this
// call yet, recording each new ID in seen.
func mergeUnique(dst []models.ImageRecord, seen map[string]struct{}, recs []models.ImageRecord) []models.ImageRecord {
	for _, r := range recs {
		if _, ok := seen[r.SourceID]; ok {
			continue
		}
		seen[r.SourceID] = struct{}{}
		dst = append(dst, r)
	}
	return dst
}
