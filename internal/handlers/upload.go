// upload.go handles POST /api/voice/upload.
package handlers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voicescribe/transcription-core/internal/models"
)

// allowedAudioExtensions is the closed set spec.md §6.1 requires for uploads.
var allowedAudioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".flac": true,
	".aac": true, ".ogg": true, ".wma": true,
}

type uploadedFileResponse struct {
	FileID string           `json:"file_id"`
	Name   string           `json:"original_name"`
	Status models.FileState `json:"status"`
	Size   int64            `json:"size_bytes"`
}

type uploadResponse struct {
	Success bool                    `json:"success"`
	Files   []uploadedFileResponse  `json:"files"`
	FileIDs []string                `json:"file_ids"`
	File    *uploadedFileResponse   `json:"file,omitempty"`
	FileID  string                  `json:"file_id,omitempty"`
}

// Upload handles POST /api/voice/upload. Accepts one or more "audio_file"
// multipart form parts; response always contains files[]/file_ids[], plus
// top-level file/file_id for backward compatibility when there is exactly one.
func (h *Handler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "invalid_request", Message: "expected multipart/form-data with audio_file parts", Code: http.StatusBadRequest,
		})
		return
	}

	headers := form.File["audio_file"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "invalid_request", Message: "no audio_file parts found", Code: http.StatusBadRequest,
		})
		return
	}

	resp := uploadResponse{Success: true}

	for _, fh := range headers {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !allowedAudioExtensions[ext] {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_file_type",
				Message: fmt.Sprintf("unsupported audio format %q", ext),
				Code:    http.StatusBadRequest,
			})
			return
		}

		if h.Cfg.MaxUploadSizeBytes > 0 && fh.Size > h.Cfg.MaxUploadSizeBytes {
			c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error: "file_too_large",
				Message: fmt.Sprintf("%s is %d bytes, exceeds the %d byte limit",
					fh.Filename, fh.Size, h.Cfg.MaxUploadSizeBytes),
				Code: http.StatusRequestEntityTooLarge,
			})
			return
		}

		id := uuid.New().String()
		storedName := fmt.Sprintf("%d_%s%s", time.Now().UnixMicro(), id[:8], ext)
		storedPath := filepath.Join(h.Cfg.UploadDir, storedName)

		if err := os.MkdirAll(h.Cfg.UploadDir, 0o755); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: "storage_error", Message: "failed to prepare upload directory", Code: http.StatusInternalServerError,
			})
			return
		}

		if err := c.SaveUploadedFile(fh, storedPath); err != nil {
			log.Printf("❌ upload: failed to save %s: %v", fh.Filename, err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: "storage_error", Message: "failed to save uploaded file", Code: http.StatusInternalServerError,
			})
			return
		}

		rec := &models.FileRecord{
			ID:           id,
			OriginalName: fh.Filename,
			StoredName:   storedName,
			StoredPath:   storedPath,
			SizeBytes:    fh.Size,
			UploadTime:   models.Now(),
			State:        models.StateUploaded,
		}

		if err := h.Registry.Add(rec); err != nil {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error: "duplicate_id", Message: err.Error(), Code: http.StatusConflict,
			})
			return
		}

		entry := uploadedFileResponse{FileID: id, Name: fh.Filename, Status: models.StateUploaded, Size: fh.Size}
		resp.Files = append(resp.Files, entry)
		resp.FileIDs = append(resp.FileIDs, id)

		log.Printf("📥 uploaded %s -> %s (%d bytes)", fh.Filename, id, fh.Size)
	}

	if len(resp.Files) == 1 {
		resp.File = &resp.Files[0]
		resp.FileID = resp.Files[0].FileID
	}

	c.JSON(http.StatusOK, resp)
}
