package handlers

import (
	"context"
	"io"
	"net/http"

	"listing-portal/internal/apperr"
	"listing-portal/internal/storage"

	"github.com/gin-gonic/gin"
)

// Uploader stores a batch of files and returns their URLs
type Uploader interface {
	UploadBatch(ctx context.Context, files []storage.File) ([]string, error)
}

// UploadHandler accepts listing images
type UploadHandler struct {
	uploader Uploader
}

// NewUploadHandler builds the handler. A nil uploader answers 503.
func NewUploadHandler(uploader Uploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

// Upload stores multipart files[] and returns {"urls": [...]}
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.uploader == nil {
		respondError(c, apperr.Unavailable("uploads disabled"))
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, apperr.Validation("expected multipart form with files[]"))
		return
	}
	headers := form.File["files[]"]
	if len(headers) == 0 {
		headers = form.File["files"]
	}

	files := make([]storage.File, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, storage.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	urls, err := h.uploader.UploadBatch(c.Request.Context(), files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"urls": urls})
}
