package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paperhub/internal/infra/storage/s3"
)

const maxUploadBytes = 10 << 20 // 10 MiB

type UploadHTTP interface {
	Upload(c *gin.Context)
}

// UploadHandler stores chat attachments and returns the public URL the
// client embeds in a file or image message.
type UploadHandler struct {
	Uploader s3.Uploader
	Logger   *slog.Logger
}

func (h UploadHandler) Upload(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "file is required"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "message": "file too large"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "unreadable file"})
		return
	}
	defer src.Close()

	key := fmt.Sprintf("chat/%s/%s%s", p.ID, uuid.NewString(), sanitizeExt(file.Filename))
	url, err := h.Uploader.Upload(c.Request.Context(), key, src, file.Header.Get("Content-Type"))
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("attachment upload failed", "user_id", p.ID, "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"fileUrl":  url,
		"fileName": filepath.Base(file.Filename),
	})
}

func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}

var _ UploadHTTP = (*UploadHandler)(nil)
