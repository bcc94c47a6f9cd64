package models

// DownloadResult reports the outcome of a single download attempt.
// Exactly one of FilePath or Error carries information, depending on Success.
type DownloadResult struct {
	Success       bool   `json:"success"`
	FilePath      string `json:"file_path,omitempty"`
	Filename      string `json:"filename,omitempty"`
	FileSize      int64  `json:"file_size,omitempty"`
	AlreadyExists bool   `json:"already_exists"`
	Error         string `json:"error,omitempty"`
}

// Outcome status values used in batch reports.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// DownloadOutcome is the per-item entry of a BatchReport.
type DownloadOutcome struct {
	Title     string `json:"title"`
	Status    string `json:"status"` // success | failed | skipped
	SourceURL string `json:"source_url,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DownloadedFile describes one asset found on disk under the
// downloads root. The filesystem, not the database, is the source of
// truth for what has been downloaded.
type DownloadedFile struct {
	Filename string `json:"filename"`
	FilePath string `json:"file_path"`
	URL      string `json:"url"` // web path under the static /downloads mount
	Category string `json:"category"`
	FileSize int64  `json:"file_size"`
	Modified string `json:"modified"`
}

// BatchReport aggregates a batch download run.
// Invariant: Downloaded + Failed + Skipped == Total once the run completes.
type BatchReport struct {
	Total      int               `json:"total"`
	Downloaded int               `json:"downloaded"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	Details    []DownloadOutcome `json:"details"`
}
