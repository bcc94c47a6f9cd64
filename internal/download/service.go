package download

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"warchive/pkg/models"
)

// Image hosts (Wikimedia upload servers in particular) refuse requests
// without a browser-like user agent and a plausible referer.
const (
	downloadUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	downloadReferer   = "https://commons.wikimedia.org/"
)

const (
	chunkSize  = 8192
	batchDelay = 300 * time.Millisecond
)

// fallbackCategory receives downloads with no category.
const fallbackCategory = "diger"

var categoryDirs = []string{
	"tanklar", "ucaklar", "gemiler", "askerler",
	"haritalar", "savas_sahneleri", "posterler", "liderler",
	fallbackCategory,
}

// ProgressFunc receives percent complete for one download. It is only
// called when the server reported a content length.
type ProgressFunc func(percent int)

// BatchProgressFunc receives position updates during a batch run,
// before each item is attempted.
type BatchProgressFunc func(current, total int, title string)

// Service downloads assets into per-category directories under Root.
// The filesystem is the source of truth: an existing file is never
// re-downloaded, and concurrent requests for the same path are
// serialized so they cannot interleave writes.
type Service struct {
	Root   string
	Client *http.Client

	mu    sync.Mutex
	paths map[string]*sync.Mutex
}

func NewService(root string) (*Service, error) {
	s := &Service{
		Root:   root,
		Client: &http.Client{Timeout: 60 * time.Second},
		paths:  make(map[string]*sync.Mutex),
	}
	for _, cat := range categoryDirs {
		if err := os.MkdirAll(filepath.Join(root, cat), 0o755); err != nil {
			return nil, fmt.Errorf("create download dir %s: %w", cat, err)
		}
	}
	return s, nil
}

// Path returns the download directory for a category.
func (s *Service) Path(categorySlug string) string {
	if categorySlug == "" {
		categorySlug = fallbackCategory
	}
	return filepath.Join(s.Root, categorySlug)
}

func (s *Service) lockPath(path string) func() {
	s.mu.Lock()
	m, ok := s.paths[path]
	if !ok {
		m = &sync.Mutex{}
		s.paths[path] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// DownloadImage fetches url into the category directory. An empty
// filename is derived from the url. If the target file already exists
// the call succeeds without touching the network.
func (s *Service) DownloadImage(ctx context.Context, url, categorySlug, filename string, progress ProgressFunc) models.DownloadResult {
	if url == "" {
		return models.DownloadResult{Success: false, Error: "missing url"}
	}
	if filename == "" {
		filename = FilenameFromURL(url)
	}

	dir := s.Path(categorySlug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.DownloadResult{Success: false, Error: fmt.Sprintf("create dir: %v", err)}
	}
	filePath := filepath.Join(dir, filename)

	unlock := s.lockPath(filePath)
	defer unlock()

	if info, err := os.Stat(filePath); err == nil {
		return models.DownloadResult{
			Success:       true,
			FilePath:      filePath,
			Filename:      filename,
			FileSize:      info.Size(),
			AlreadyExists: true,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.DownloadResult{Success: false, Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("User-Agent", downloadUserAgent)
	req.Header.Set("Referer", downloadReferer)

	resp, err := s.Client.Do(req)
	if err != nil {
		return models.DownloadResult{Success: false, Error: fmt.Sprintf("request: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.DownloadResult{Success: false, Error: fmt.Sprintf("HTTP error: %d", resp.StatusCode)}
	}

	size, err := s.writeBody(filePath, resp, progress)
	if err != nil {
		// never leave a partial file behind, existence means downloaded
		os.Remove(filePath)
		return models.DownloadResult{Success: false, Error: err.Error()}
	}

	return models.DownloadResult{
		Success:  true,
		FilePath: filePath,
		Filename: filename,
		FileSize: size,
	}
}

func (s *Service) writeBody(filePath string, resp *http.Response, progress ProgressFunc) (int64, error) {
	f, err := os.Create(filePath)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	total := resp.ContentLength
	var written int64
	buf := make([]byte, chunkSize)

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return 0, fmt.Errorf("write file: %w", writeErr)
			}
			written += int64(n)
			if progress != nil && total > 0 {
				progress(int(written * 100 / total))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return 0, fmt.Errorf("read body: %w", readErr)
		}
	}
	return written, nil
}

// DownloadBatch downloads images sequentially, spacing requests with a
// short delay. Every input produces exactly one outcome entry, so
// Downloaded + Failed + Skipped always equals Total. itemProgress,
// when set, receives percent updates for the item being downloaded.
func (s *Service) DownloadBatch(ctx context.Context, images []models.ImageRecord, categorySlug string, progress BatchProgressFunc, itemProgress ProgressFunc) models.BatchReport {
	report := models.BatchReport{
		Total:   len(images),
		Details: []models.DownloadOutcome{},
	}

	for i, img := range images {
		title := img.Title
		if title == "" {
			title = "unknown"
		}
		if progress != nil {
			progress(i+1, len(images), title)
		}

		if img.SourceURL == "" {
			report.Failed++
			report.Details = append(report.Details, models.DownloadOutcome{
				Title:  title,
				Status: models.StatusFailed,
				Error:  "missing source url",
			})
			continue
		}

		res := s.DownloadImage(ctx, img.SourceURL, categorySlug, "", itemProgress)
		switch {
		case res.Success && res.AlreadyExists:
			report.Skipped++
			report.Details = append(report.Details, models.DownloadOutcome{
				Title:     title,
				Status:    models.StatusSkipped,
				SourceURL: img.SourceURL,
				FilePath:  res.FilePath,
			})
		case res.Success:
			report.Downloaded++
			report.Details = append(report.Details, models.DownloadOutcome{
				Title:     title,
				Status:    models.StatusSuccess,
				SourceURL: img.SourceURL,
				FilePath:  res.FilePath,
			})
		default:
			log.Printf("[download] %s: %s", title, res.Error)
			report.Failed++
			report.Details = append(report.Details, models.DownloadOutcome{
				Title:     title,
				Status:    models.StatusFailed,
				SourceURL: img.SourceURL,
				Error:     res.Error,
			})
		}

		if i < len(images)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(batchDelay):
			}
		}
	}

	return report
}

// DownloadedImages lists image files on disk, for one category or all.
func (s *Service) DownloadedImages(categorySlug string) []models.DownloadedFile {
	var categories []string
	if categorySlug != "" {
		categories = []string{categorySlug}
	} else {
		entries, err := os.ReadDir(s.Root)
		if err != nil {
			return []models.DownloadedFile{}
		}
		for _, e := range entries {
			if e.IsDir() {
				categories = append(categories, e.Name())
			}
		}
	}

	files := []models.DownloadedFile{}
	for _, cat := range categories {
		dir := filepath.Join(s.Root, cat)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !isImageFile(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			files = append(files, models.DownloadedFile{
				Filename: e.Name(),
				FilePath: filepath.Join(dir, e.Name()),
				URL:      "/downloads/" + cat + "/" + e.Name(),
				Category: cat,
				FileSize: info.Size(),
				Modified: info.ModTime().Format(time.RFC3339),
			})
		}
	}
	return files
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}
