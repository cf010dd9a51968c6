// Package router sets up all HTTP routes for the API.
//
// Go Pattern: We separate route configuration from handlers.
// This keeps main.go clean and makes it easy to see all routes at a glance.
//
// Framework choice: Gin
// - Excellent middleware ecosystem (CORS, logging, recovery)
// - Great performance (one of the fastest Go HTTP frameworks)
// - Well-documented with many examples
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/voicescribe/transcription-core/internal/handlers"
	"github.com/voicescribe/transcription-core/internal/middleware"
)

// Setup creates and configures the Gin router with all routes.
func Setup(h *handlers.Handler, allowedOrigins []string) *gin.Engine {
	// Create the Gin router with default middleware:
	// - Logger: logs every request (method, path, status, duration)
	// - Recovery: catches panics and returns 500 instead of crashing
	r := gin.Default()

	// Add our custom middleware
	r.Use(middleware.CORS(allowedOrigins))

	// Health check is always public for monitoring tools.
	r.GET("/healthz", h.Healthz)

	// --- Voice transcription API ---
	// Go Pattern: Gin's Group() creates a route group that shares a prefix.
	// There is no auth middleware here — authentication is out of scope for
	// this server.
	voice := r.Group("/api/voice")
	{
		voice.POST("/upload", h.Upload)
		voice.POST("/transcribe", h.Transcribe)
		voice.POST("/stop/:file_id", h.StopFile)
		voice.GET("/status/:file_id", h.Status)
		voice.GET("/result/:file_id", h.Result)

		voice.GET("/files", h.ListFiles)
		voice.GET("/files/:file_id", h.GetFile)
		voice.PATCH("/files/:file_id", h.PatchFile)
		voice.DELETE("/files/:file_id", h.DeleteFile)

		voice.POST("/generate_summary/:file_id", h.GenerateSummary)

		voice.GET("/audio/:file_id", h.Audio)
		voice.GET("/download_transcript/:file_id", h.DownloadTranscript)
		voice.GET("/download_summary/:file_id", h.DownloadSummary)

		voice.GET("/history", h.HistoryList)
		voice.GET("/languages", h.Languages)

		voice.GET("/ws", h.WS)
	}

	return r
}
