package models

import "time"

// ImageRecord is the normalized, internal form of an archive hit
// used by the scraper and download layers.
//
// All external sources are mapped into this structure first,
// then we write to the DB from this representation.
type ImageRecord struct {
	SourceID     string `json:"source_id"`               // source-scoped unique ID, e.g. "wm_12345"
	Title        string `json:"title"`                   // HTML-stripped, max 200 chars
	Description  string `json:"description"`             // HTML-stripped, max 500 chars
	SourceURL    string `json:"source_url"`              // direct asset URL
	ThumbnailURL string `json:"thumbnail_url"`           // may equal SourceURL
	Width        int    `json:"width"`                   // 0 means unknown
	Height       int    `json:"height"`                  // 0 means unknown
	FileSize     int64  `json:"file_size"`               // bytes, 0 means unknown
	MimeType     string `json:"mime_type"`               // e.g. "image/jpeg"
	License      string `json:"license"`                 // may be empty
	Author       string `json:"author"`                  // "Unknown" when the source omits it
	Source       string `json:"source"`                  // "wikimedia", "nara", "archive_org"
	MediaType    string `json:"media_type,omitempty"`    // "video" for archive.org clips, image otherwise
	Year         string `json:"year,omitempty"`          // archive.org only
	PageURL      string `json:"page_url,omitempty"`      // archive.org details page
	EmbedURL     string `json:"embed_url,omitempty"`     // archive.org embed player
}

// ImageRow is an image persisted in the local database.
type ImageRow struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	SourceURL    string     `json:"source_url"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	FilePath     string     `json:"file_path,omitempty"`
	FileName     string     `json:"file_name,omitempty"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	FileSize     int64      `json:"file_size"`
	MimeType     string     `json:"mime_type,omitempty"`
	Source       string     `json:"source"`
	SourceID     string     `json:"source_id"`
	License      string     `json:"license,omitempty"`
	Author       string     `json:"author,omitempty"`
	IsDownloaded bool       `json:"is_downloaded"`
	IsFavorite   bool       `json:"is_favorite"`
	DownloadDate *time.Time `json:"download_date,omitempty"`
	CategoryID   *int64     `json:"category_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
