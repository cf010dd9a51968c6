// Package main is the entry point for the transcription server.
//
// Go Pattern: The main package is special — it's the only package that
// produces an executable binary. The main() function is where your
// program starts, like `if __name__ == "__main__"` in Python.
//
// This file wires together all the components (dependency injection):
// Config → Registry/History → Broadcast Hub → Runner → Scheduler →
// Summary Orchestrator → HTTP Router → Server
//
// Think of it as the "orchestrator" — it creates all the pieces and
// connects them together, then starts the server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voicescribe/transcription-core/internal/config"
	"github.com/voicescribe/transcription-core/internal/docrender"
	"github.com/voicescribe/transcription-core/internal/handlers"
	"github.com/voicescribe/transcription-core/internal/history"
	"github.com/voicescribe/transcription-core/internal/hub"
	"github.com/voicescribe/transcription-core/internal/registry"
	"github.com/voicescribe/transcription-core/internal/router"
	"github.com/voicescribe/transcription-core/internal/runner"
	"github.com/voicescribe/transcription-core/internal/scheduler"
	"github.com/voicescribe/transcription-core/internal/summaryorch"
)

// Version is set at build time via -ldflags.
// Go Pattern: build-time variables let you embed version info without
// config files, e.g. go build -ldflags="-X main.Version=1.0.0"
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 transcription-core %s starting...", Version)
	handlers.Version = Version

	// ────────────────────────────────────────────
	// Step 1: Load Configuration
	// ────────────────────────────────────────────
	// Go Pattern: configuration is loaded once at startup and passed
	// explicitly to components that need it. No global config object.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	log.Printf("📋 Config loaded: port=%s, workers=%d, gin_mode=%s", cfg.Port, cfg.WorkerCount, cfg.GinMode)

	os.Setenv("GIN_MODE", cfg.GinMode)

	// ────────────────────────────────────────────
	// Step 2: File Registry + History Store
	// ────────────────────────────────────────────
	// Go Pattern: the Registry is the single in-memory source of truth; the
	// History Store is its durable backing file. We load history first and
	// merge it in before anything else can touch the Registry.
	reg := registry.New()

	hist, err := history.New(cfg.HistoryFile)
	if err != nil {
		log.Fatalf("❌ Failed to open history store: %v", err)
	}
	reg.MergeHistory(hist.Load())
	log.Println("✅ History loaded and merged into registry")

	// ────────────────────────────────────────────
	// Step 3: Broadcast Hub
	// ────────────────────────────────────────────
	broadcast := hub.New()
	go broadcast.Run()
	defer broadcast.Shutdown()

	// ────────────────────────────────────────────
	// Step 4: Transcription Runner
	// ────────────────────────────────────────────
	// Go Pattern: dependency injection — pick one Transcriber implementation
	// at startup and hand it to everything that needs one. If no ASR
	// endpoint is configured, fall back to the deterministic simulated
	// runner so the server is still fully exercisable without external
	// infrastructure.
	var transcriber runner.Transcriber
	if cfg.ASREndpoint != "" {
		transcriber = runner.NewHTTPTranscriber(cfg.ASREndpoint, cfg.ASRAPIKey)
		log.Printf("✅ ASR runner configured: %s", cfg.ASREndpoint)
	} else {
		transcriber = runner.NewSimulatedTranscriber()
		log.Println("⚠️  No ASR_ENDPOINT configured, using simulated transcriber")
	}

	docs, err := docrender.New(cfg.TranscriptDir, cfg.SummaryDir)
	if err != nil {
		log.Fatalf("❌ Failed to prepare document renderer: %v", err)
	}

	// ────────────────────────────────────────────
	// Step 5: Transcription Scheduler
	// ────────────────────────────────────────────
	// The scheduler runs up to WorkerCount concurrent jobs, fanning progress
	// out through the Broadcast Hub and persisting completions through the
	// History Store.
	sched := scheduler.New(cfg.WorkerCount, reg, hist, broadcast, transcriber, docs)
	defer sched.Stop()

	// ────────────────────────────────────────────
	// Step 6: Summary Orchestrator
	// ────────────────────────────────────────────
	llm := runner.NewChatLLM(map[string]struct{ URL, APIKey string }{
		"deepseek": {URL: cfg.DeepseekAPIURL, APIKey: cfg.DeepseekAPIKey},
		"qwen":     {URL: cfg.QwenAPIURL, APIKey: cfg.QwenAPIKey},
		"glm":      {URL: cfg.GLMAPIURL, APIKey: cfg.GLMAPIKey},
	})
	summ := summaryorch.New(llm, cfg.DefaultModel)

	// ────────────────────────────────────────────
	// Step 7: Setup HTTP Router
	// ────────────────────────────────────────────
	h := handlers.NewHandler(reg, sched, broadcast, hist, summ, docs, transcriber, cfg)
	r := router.Setup(h, cfg.AllowedOrigins)

	// ────────────────────────────────────────────
	// Step 8: Start the HTTP Server
	// ────────────────────────────────────────────
	// Go Pattern: we use http.Server directly instead of gin.Run() because
	// it gives us control over graceful shutdown. gin.Run() is convenient
	// but can't be stopped cleanly.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // long enough for a slow ASR round-trip
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Health check: http://localhost:%s/healthz", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// ────────────────────────────────────────────
	// Step 9: Graceful Shutdown
	// ────────────────────────────────────────────
	// Go Pattern: signal handling for clean shutdown. When the process
	// receives SIGINT or SIGTERM we stop accepting new requests, let
	// in-flight ones finish, then tear down the scheduler and hub.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	// Scheduler and hub are cleaned up by their defer statements above.
	log.Println("👋 Server stopped. Goodbye!")
}
