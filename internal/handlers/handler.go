// Package handlers implements the Request Surface: thin gin adapters that
// parse HTTP input and dispatch into the Registry, Scheduler, History
// Store, and Summary Orchestrator. Go Pattern: a single Handler struct
// holds every dependency (dependency injection via struct fields, same
// shape as the teacher's handlers.Handler), and each HTTP verb/path gets
// its own method.
package handlers

import (
	"github.com/voicescribe/transcription-core/internal/config"
	"github.com/voicescribe/transcription-core/internal/docrender"
	"github.com/voicescribe/transcription-core/internal/history"
	"github.com/voicescribe/transcription-core/internal/hub"
	"github.com/voicescribe/transcription-core/internal/registry"
	"github.com/voicescribe/transcription-core/internal/runner"
	"github.com/voicescribe/transcription-core/internal/scheduler"
	"github.com/voicescribe/transcription-core/internal/summaryorch"
)

// Version is set at build time via -ldflags, mirroring the teacher's main.Version.
var Version = "dev"

// Handler bundles every component the Request Surface needs to reach.
type Handler struct {
	Registry  *registry.Registry
	Scheduler *scheduler.Scheduler
	Hub       *hub.Hub
	History   *history.Store
	Summary   *summaryorch.Orchestrator
	Docs      *docrender.Renderer
	Runner    runner.Transcriber
	Cfg       *config.Config
}

// NewHandler creates a Handler with all dependencies wired.
func NewHandler(reg *registry.Registry, sch *scheduler.Scheduler, h *hub.Hub,
	hist *history.Store, summ *summaryorch.Orchestrator, docs *docrender.Renderer,
	rn runner.Transcriber, cfg *config.Config) *Handler {
	return &Handler{
		Registry:  reg,
		Scheduler: sch,
		Hub:       h,
		History:   hist,
		Summary:   summ,
		Docs:      docs,
		Runner:    rn,
		Cfg:       cfg,
	}
}
