package download

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"warchive/internal/images"
	"warchive/internal/progress"
	"warchive/pkg/models"
)

type Handler struct {
	Service *Service
	Images  *images.Repo
	Hub     *progress.Hub
}

func NewHandler(svc *Service, imgs *images.Repo, hub *progress.Hub) *Handler {
	return &Handler{Service: svc, Images: imgs, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/download", h.downloadOne)
	rg.POST("/download-batch", h.downloadBatch)
	rg.GET("/downloaded", h.listDownloaded)
}

type downloadReq struct {
	URL      string `json:"url"`
	Category string `json:"category"`
	Filename string `json:"filename"`
}

func (h *Handler) downloadOne(c *gin.Context) {
	// accept query parameters first, then a JSON body
	req := downloadReq{
		URL:      strings.TrimSpace(c.Query("url")),
		Category: strings.TrimSpace(c.Query("category")),
		Filename: strings.TrimSpace(c.Query("filename")),
	}
	if req.URL == "" {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	if strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url required"})
		return
	}

	res := h.Service.DownloadImage(c.Request.Context(), req.URL, req.Category, req.Filename, nil)
	if !res.Success {
		c.JSON(http.StatusBadGateway, res)
		return
	}

	if !res.AlreadyExists {
		if err := h.Images.MarkDownloaded(c.Request.Context(), req.URL, res.FilePath, res.Filename); err != nil {
			log.Printf("[download] mark downloaded: %v", err)
		}
	}
	c.JSON(http.StatusOK, res)
}

type batchReq struct {
	Images   []models.ImageRecord `json:"images"`
	Category string               `json:"category"`
}

// downloadBatch runs the batch inline and returns the full report.
// Connected websocket clients get a job id up front and per-item
// progress while the batch runs.
func (h *Handler) downloadBatch(c *gin.Context) {
	var req batchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.Images) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "images required"})
		return
	}

	jobID := uuid.NewString()
	h.Hub.Broadcast(progress.Event{
		Type:  progress.EventBatchStarted,
		JobID: jobID,
		Total: len(req.Images),
	})

	// the batch runs on this goroutine, so the item the percent
	// updates belong to is always the last batch_item announced
	var itemCurrent int
	var itemTitle string
	report := h.Service.DownloadBatch(c.Request.Context(), req.Images, req.Category,
		func(current, total int, title string) {
			itemCurrent, itemTitle = current, title
			h.Hub.Broadcast(progress.Event{
				Type:    progress.EventBatchItem,
				JobID:   jobID,
				Current: current,
				Total:   total,
				Title:   title,
			})
		},
		func(percent int) {
			h.Hub.Broadcast(progress.Event{
				Type:    progress.EventItemProgress,
				JobID:   jobID,
				Current: itemCurrent,
				Total:   len(req.Images),
				Percent: percent,
				Title:   itemTitle,
			})
		})

	for _, d := range report.Details {
		if d.Status != models.StatusSuccess {
			continue
		}
		if err := h.Images.MarkDownloaded(c.Request.Context(), d.SourceURL, d.FilePath, ""); err != nil {
			log.Printf("[download] mark downloaded: %v", err)
		}
	}

	h.Hub.Broadcast(progress.Event{
		Type:    progress.EventBatchCompleted,
		JobID:   jobID,
		Current: report.Total,
		Total:   report.Total,
	})

	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "report": report})
}

func (h *Handler) listDownloaded(c *gin.Context) {
	files := h.Service.DownloadedImages(strings.TrimSpace(c.Query("category")))
	c.JSON(http.StatusOK, gin.H{"images": files, "total": len(files)})
}
