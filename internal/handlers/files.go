// files.go handles the /api/voice/files collection and item endpoints,
// plus the legacy /api/voice/generate_summary/:file_id alias.
package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voicescribe/transcription-core/internal/models"
	"github.com/voicescribe/transcription-core/internal/registry"
	"github.com/voicescribe/transcription-core/internal/scheduler"
)

func (h *Handler) downloadURLs(rec *models.FileRecord) models.DownloadURLs {
	urls := models.DownloadURLs{Audio: fmt.Sprintf("/api/voice/audio/%s", rec.ID)}
	if rec.TranscriptDocPath != "" {
		urls.Transcript = fmt.Sprintf("/api/voice/download_transcript/%s", rec.ID)
	}
	if rec.SummaryDocPath != "" {
		urls.Summary = fmt.Sprintf("/api/voice/download_summary/%s", rec.ID)
	}
	return urls
}

// ListFiles handles GET /api/voice/files.
func (h *Handler) ListFiles(c *gin.Context) {
	if c.Query("include_history") == "true" {
		h.Registry.MergeHistory(h.History.Load())
	}

	f := registry.Filter{}
	if st := c.Query("status"); st != "" {
		f.State = models.FileState(st)
		f.HasState = true
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		f.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		f.Offset = offset
	}

	recs := h.Registry.List(f)
	entries := make([]models.FileListEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, models.FileListEntry{FileRecord: *rec, DownloadURLs: h.downloadURLs(rec)})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"files":   entries,
		"statistics": h.Registry.Statistics(),
		"pagination": models.Pagination{Limit: f.Limit, Offset: f.Offset, Total: h.Registry.Statistics().Total, Returned: len(entries)},
	})
}

// GetFile handles GET /api/voice/files/:file_id.
func (h *Handler) GetFile(c *gin.Context) {
	id := c.Param("file_id")
	rec, err := h.Registry.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "file not found", Code: http.StatusNotFound})
		return
	}

	if c.Query("include_transcript") != "true" {
		rec.Segments = nil
	}
	if c.Query("include_summary") != "true" {
		rec.Summary = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"file":    models.FileListEntry{FileRecord: *rec, DownloadURLs: h.downloadURLs(rec)},
	})
}

type patchFileRequest struct {
	Action   string `json:"action"`
	Language string `json:"language"`
	Hotword  string `json:"hotword"`
	Prompt   string `json:"prompt"`
	Model    string `json:"model"`
}

// PatchFile handles PATCH /api/voice/files/:file_id.
func (h *Handler) PatchFile(c *gin.Context) {
	id := c.Param("file_id")
	var req patchFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid_request", Message: err.Error(), Code: http.StatusBadRequest})
		return
	}

	switch req.Action {
	case "retranscribe":
		h.retranscribe(c, id, req)
	case "generate_summary":
		h.generateSummary(c, id, req.Prompt, req.Model)
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "invalid_action", Message: fmt.Sprintf("unknown action %q", req.Action), Code: http.StatusBadRequest,
		})
	}
}

func (h *Handler) retranscribe(c *gin.Context, id string, req patchFileRequest) {
	rec, err := h.Registry.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "file not found", Code: http.StatusNotFound})
		return
	}
	if rec.State == models.StateProcessing {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error: "conflict", Message: "cannot retranscribe while processing", Code: http.StatusConflict,
		})
		return
	}

	opts := scheduler.JobOptions{Language: models.Language(req.Language), Hotword: req.Hotword}
	if opts.Language == "" {
		opts.Language = rec.Language
	}

	if _, err := h.Scheduler.Enqueue(id, opts); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "enqueue_failed", Message: err.Error(), Code: http.StatusInternalServerError})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": "processing"})
}

// GenerateSummary handles POST /api/voice/generate_summary/:file_id (legacy
// alias for PATCH .../:file_id with action=generate_summary).
func (h *Handler) GenerateSummary(c *gin.Context) {
	id := c.Param("file_id")
	var req struct {
		Prompt string `json:"prompt"`
		Model  string `json:"model"`
	}
	_ = c.ShouldBindJSON(&req)
	h.generateSummary(c, id, req.Prompt, req.Model)
}

func (h *Handler) generateSummary(c *gin.Context, id, prompt, model string) {
	rec, err := h.Registry.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "file not found", Code: http.StatusNotFound})
		return
	}

	summary, err := h.Summary.Generate(c.Request.Context(), rec, prompt, model)
	if summary != nil {
		h.Registry.Update(id, func(r *models.FileRecord) error {
			r.Summary = summary
			return nil
		})
		if summary.Status == models.SummarySuccess && h.Docs != nil {
			updated, _ := h.Registry.Get(id)
			if path, derr := h.Docs.RenderSummaryDoc(c.Request.Context(), updated); derr == nil {
				h.Registry.Update(id, func(r *models.FileRecord) error {
					r.SummaryDocPath = path
					return nil
				})
			}
		}
	}

	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}

// DeleteFile handles DELETE /api/voice/files/:file_id. The special id
// "_clear_all" wipes every non-processing record and resets the history file.
func (h *Handler) DeleteFile(c *gin.Context) {
	id := c.Param("file_id")

	if id == "_clear_all" {
		removed := h.Registry.ClearAll()
		if err := h.History.Clear(); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "history_error", Message: err.Error(), Code: http.StatusInternalServerError})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
		return
	}

	rec, err := h.Registry.Remove(id)
	if err != nil {
		status := http.StatusNotFound
		if err == registry.ErrForbidden {
			status = http.StatusConflict
		}
		c.JSON(status, models.ErrorResponse{Error: "delete_failed", Message: err.Error(), Code: status})
		return
	}

	removeArtifact(rec.StoredPath)
	removeArtifact(rec.TranscriptDocPath)
	removeArtifact(rec.SummaryDocPath)

	c.JSON(http.StatusOK, gin.H{"success": true, "file_id": id})
}

func removeArtifact(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		fmt.Printf("⚠️  failed to remove artifact %s: %v\n", path, err)
	}
}

// Languages handles GET /api/voice/languages.
func (h *Handler) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "languages": models.AllLanguages})
}

// HistoryList handles GET /api/voice/history (legacy).
func (h *Handler) HistoryList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "files": h.History.Load()})
}
