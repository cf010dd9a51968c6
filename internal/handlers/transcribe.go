// transcribe.go handles POST /api/voice/transcribe, POST /api/voice/stop/:file_id,
// GET /api/voice/status/:file_id and GET /api/voice/result/:file_id.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voicescribe/transcription-core/internal/models"
	"github.com/voicescribe/transcription-core/internal/registry"
	"github.com/voicescribe/transcription-core/internal/scheduler"
)

type transcribeRequest struct {
	FileID   string     `json:"file_id"`
	FileIDs  RawFileIDs `json:"file_ids"`
	Language string     `json:"language"`
	Hotword  string     `json:"hotword"`
	Wait     *bool      `json:"wait"`
	Timeout  int        `json:"timeout"`
}

type perFileResult struct {
	FileID     string           `json:"file_id"`
	Status     models.FileState `json:"status"`
	Transcript []models.Segment `json:"transcript,omitempty"`
	Error      string           `json:"error_message,omitempty"`
}

type transcribeResponse struct {
	Success         bool            `json:"success"`
	Status          string          `json:"status"`
	Results         []perFileResult `json:"results,omitempty"`
	CompletedFileIDs []string       `json:"file_ids,omitempty"`
	FailedFileIDs   []string        `json:"failed_file_ids,omitempty"`
	PendingFileIDs  []string        `json:"pending_file_ids,omitempty"`

	// Single-job convenience fields (set only when exactly one file was submitted).
	Transcript []models.Segment `json:"transcript,omitempty"`
}

// Transcribe handles POST /api/voice/transcribe.
func (h *Handler) Transcribe(c *gin.Context) {
	var req transcribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "invalid_request", Message: err.Error(), Code: http.StatusBadRequest,
		})
		return
	}

	ids := req.FileIDs.Normalize()
	if req.FileID != "" {
		ids = dedupeOrdered(append([]string{req.FileID}, ids...))
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "invalid_request", Message: "no file_id or file_ids provided", Code: http.StatusBadRequest,
		})
		return
	}

	wait := true
	if req.Wait != nil {
		wait = *req.Wait
	}
	timeout := time.Duration(req.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	opts := scheduler.JobOptions{Language: models.Language(req.Language), Hotword: req.Hotword}
	outcome := h.Scheduler.SubmitBatch(ids, opts, wait, timeout)

	resp := transcribeResponse{
		Success:          true,
		CompletedFileIDs: outcome.Completed,
		FailedFileIDs:    outcome.Failed,
		PendingFileIDs:   outcome.Pending,
	}

	if !wait {
		resp.Status = "processing"
		c.JSON(http.StatusOK, resp)
		return
	}

	for _, id := range outcome.Completed {
		resp.Results = append(resp.Results, perFileResult{
			FileID: id, Status: models.StateCompleted, Transcript: models.StripWords(outcome.Results[id]),
		})
	}
	for _, id := range outcome.Failed {
		rec, _ := h.Registry.Get(id)
		msg := ""
		if rec != nil {
			msg = rec.ErrorMessage
		}
		resp.Results = append(resp.Results, perFileResult{FileID: id, Status: models.StateError, Error: msg})
	}
	for _, id := range outcome.Pending {
		resp.Results = append(resp.Results, perFileResult{FileID: id, Status: models.StateProcessing})
	}

	switch {
	case len(outcome.Pending) > 0:
		resp.Status = "processing"
	case len(outcome.Failed) > 0 && len(outcome.Completed) == 0:
		resp.Status = "error"
	default:
		resp.Status = "completed"
	}

	if len(ids) == 1 && len(outcome.Completed) == 1 {
		resp.Transcript = models.StripWords(outcome.Results[ids[0]])
	}

	c.JSON(http.StatusOK, resp)
}

// StopFile handles POST /api/voice/stop/:file_id.
func (h *Handler) StopFile(c *gin.Context) {
	id := c.Param("file_id")
	if err := h.Scheduler.Cancel(id); err != nil {
		status := http.StatusInternalServerError
		if err == registry.ErrNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, models.ErrorResponse{Error: "stop_failed", Message: err.Error(), Code: status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "cancellation requested"})
}

// Status handles GET /api/voice/status/:file_id (legacy).
func (h *Handler) Status(c *gin.Context) {
	id := c.Param("file_id")
	rec, err := h.Registry.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "file not found", Code: http.StatusNotFound})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"status":        rec.State,
		"progress":      rec.Progress,
		"error_message": rec.ErrorMessage,
	})
}

// Result handles GET /api/voice/result/:file_id (legacy).
func (h *Handler) Result(c *gin.Context) {
	id := c.Param("file_id")
	rec, err := h.Registry.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "file not found", Code: http.StatusNotFound})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"status":     rec.State,
		"transcript": rec.Segments,
	})
}
