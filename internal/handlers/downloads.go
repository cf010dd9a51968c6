// downloads.go handles GET /api/voice/audio/:file_id,
// GET /api/voice/download_transcript/:file_id and
// GET /api/voice/download_summary/:file_id.
package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/voicescribe/transcription-core/internal/models"
)

func (h *Handler) serveArtifact(c *gin.Context, path, downloadName string) {
	if path == "" {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "artifact not available", Code: http.StatusNotFound})
		return
	}

	if c.Query("download") == "1" {
		c.Header("Content-Disposition", "attachment; filename=\""+downloadName+"\"")
	}
	c.File(path)
}

// Audio handles GET /api/voice/audio/:file_id.
func (h *Handler) Audio(c *gin.Context) {
	id := c.Param("file_id")
	rec, err := h.Registry.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "file not found", Code: http.StatusNotFound})
		return
	}
	h.serveArtifact(c, rec.StoredPath, rec.OriginalName)
}

// DownloadTranscript handles GET /api/voice/download_transcript/:file_id.
func (h *Handler) DownloadTranscript(c *gin.Context) {
	id := c.Param("file_id")
	rec, err := h.Registry.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "file not found", Code: http.StatusNotFound})
		return
	}
	h.serveArtifact(c, rec.TranscriptDocPath, filepath.Base(rec.TranscriptDocPath))
}

// DownloadSummary handles GET /api/voice/download_summary/:file_id.
func (h *Handler) DownloadSummary(c *gin.Context) {
	id := c.Param("file_id")
	rec, err := h.Registry.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "file not found", Code: http.StatusNotFound})
		return
	}
	h.serveArtifact(c, rec.SummaryDocPath, filepath.Base(rec.SummaryDocPath))
}
