package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warchive/pkg/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(t.TempDir())
	require.NoError(t, err)
	svc.Client = &http.Client{}
	return svc
}

func TestNewServiceCreatesCategoryDirs(t *testing.T) {
	svc := newTestService(t)
	for _, cat := range categoryDirs {
		info, err := os.Stat(filepath.Join(svc.Root, cat))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestDownloadImageWritesFile(t *testing.T) {
	payload := []byte("jpeg-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	svc := newTestService(t)
	res := svc.DownloadImage(context.Background(), srv.URL+"/tiger.jpg", "tanklar", "", nil)

	require.True(t, res.Success, res.Error)
	assert.False(t, res.AlreadyExists)
	assert.Equal(t, "tiger.jpg", res.Filename)
	assert.EqualValues(t, len(payload), res.FileSize)

	data, err := os.ReadFile(res.FilePath)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownloadImageIsIdempotent(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	svc := newTestService(t)
	url := srv.URL + "/same.jpg"

	first := svc.DownloadImage(context.Background(), url, "tanklar", "", nil)
	require.True(t, first.Success)

	second := svc.DownloadImage(context.Background(), url, "tanklar", "", nil)
	require.True(t, second.Success)
	assert.True(t, second.AlreadyExists)
	assert.Equal(t, first.FilePath, second.FilePath)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "an existing file never hits the network")
}

func TestDownloadImageReportsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	svc := newTestService(t)
	res := svc.DownloadImage(context.Background(), srv.URL+"/missing.jpg", "tanklar", "", nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "404")

	_, err := os.Stat(filepath.Join(svc.Path("tanklar"), "missing.jpg"))
	assert.True(t, os.IsNotExist(err), "failed download leaves no file behind")
}

func TestDownloadImageProgress(t *testing.T) {
	big := make([]byte, chunkSize*3)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(big)))
		w.Write(big)
	}))
	defer srv.Close()

	svc := newTestService(t)
	var updates []int
	res := svc.DownloadImage(context.Background(), srv.URL+"/big.jpg", "", "", func(p int) {
		updates = append(updates, p)
	})
	require.True(t, res.Success)
	require.NotEmpty(t, updates)
	assert.Equal(t, 100, updates[len(updates)-1])

	// without a content length there is nothing to compute a percent from
	chunked := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		w.Write([]byte("data"))
	}))
	defer chunked.Close()

	updates = nil
	res = svc.DownloadImage(context.Background(), chunked.URL+"/chunked.jpg", "", "", func(p int) {
		updates = append(updates, p)
	})
	require.True(t, res.Success)
	assert.Empty(t, updates)
}

func TestDownloadBatchAccounting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.jpg" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	svc := newTestService(t)

	// pre-download one so it counts as skipped
	pre := svc.DownloadImage(context.Background(), srv.URL+"/existing.jpg", "gemiler", "", nil)
	require.True(t, pre.Success)

	images := []models.ImageRecord{
		{Title: "Fresh", SourceURL: srv.URL + "/fresh.jpg"},
		{Title: "Existing", SourceURL: srv.URL + "/existing.jpg"},
		{Title: "No URL"},
		{Title: "Broken", SourceURL: srv.URL + "/broken.jpg"},
	}

	var positions []int
	report := svc.DownloadBatch(context.Background(), images, "gemiler", func(current, total int, title string) {
		positions = append(positions, current)
		assert.Equal(t, len(images), total)
	}, nil)

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 1, report.Downloaded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, report.Total, report.Downloaded+report.Failed+report.Skipped)
	require.Len(t, report.Details, 4)

	assert.Equal(t, models.StatusSuccess, report.Details[0].Status)
	assert.Equal(t, models.StatusSkipped, report.Details[1].Status)
	assert.Equal(t, models.StatusFailed, report.Details[2].Status)
	assert.Equal(t, "missing source url", report.Details[2].Error)
	assert.Equal(t, models.StatusFailed, report.Details[3].Status)

	assert.Equal(t, []int{1, 2, 3, 4}, positions)
}

func TestDownloadBatchItemProgress(t *testing.T) {
	big := make([]byte, chunkSize*2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(big)))
		w.Write(big)
	}))
	defer srv.Close()

	svc := newTestService(t)
	images := []models.ImageRecord{{Title: "Big", SourceURL: srv.URL + "/big.jpg"}}

	var percents []int
	report := svc.DownloadBatch(context.Background(), images, "tanklar", nil, func(p int) {
		percents = append(percents, p)
	})

	require.Equal(t, 1, report.Downloaded)
	require.NotEmpty(t, percents, "per-item percent updates reach the batch caller")
	assert.Equal(t, 100, percents[len(percents)-1])
}

func TestDownloadedImages(t *testing.T) {
	svc := newTestService(t)

	write := func(cat, name string) {
		require.NoError(t, os.WriteFile(filepath.Join(svc.Path(cat), name), []byte("x"), 0o644))
	}
	write("tanklar", "a.jpg")
	write("tanklar", "notes.txt")
	write("ucaklar", "b.png")

	all := svc.DownloadedImages("")
	require.Len(t, all, 2, "non-image files are excluded")

	tanks := svc.DownloadedImages("tanklar")
	require.Len(t, tanks, 1)
	assert.Equal(t, "a.jpg", tanks[0].Filename)
	assert.Equal(t, "tanklar", tanks[0].Category)
	assert.EqualValues(t, 1, tanks[0].FileSize)
}
