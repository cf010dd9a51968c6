// healthz.go handles GET /healthz. The server reports healthy as soon as it
// accepts connections — the ASR runner may still be lazily initializing its
// first model, which is normal per spec.md §6.1 and must not fail the probe.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicescribe/transcription-core/internal/models"
)

// Healthz handles GET /healthz.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:      "ok",
		Version:     Version,
		Workers:     h.Cfg.WorkerCount,
		ActiveJobs:  h.Scheduler.ActiveJobs(),
		RunnerReady: h.Runner != nil,
	})
}
