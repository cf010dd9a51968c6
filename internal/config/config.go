// Package config handles application configuration.
//
// Go Pattern: Configuration via environment variables with sensible defaults.
// In Go, we typically use structs to hold configuration, and a function to
// load values from environment variables. This is different from Ruby's
// Rails.application.config or JavaScript's dotenv — Go keeps it explicit.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Go Pattern: We use exported (capitalized) fields so other packages can read them.
type Config struct {
	// Server settings
	Port    string
	GinMode string // "debug", "release", or "test"

	// Storage directories
	UploadDir    string
	TranscriptDir string
	SummaryDir   string
	HistoryFile  string

	// Scheduler settings
	WorkerCount int // bounded worker pool size W (spec: default 12)

	// ASR runner
	ASREndpoint string // if empty, the built-in simulated runner is used
	ASRAPIKey   string

	// LLM summary settings (model key -> endpoint resolved in summaryorch)
	DeepseekAPIKey string
	DeepseekAPIURL string
	QwenAPIKey     string
	QwenAPIURL     string
	GLMAPIKey      string
	GLMAPIURL      string
	DefaultModel   string

	// Upload limits
	MaxUploadSizeBytes int64

	// CORS
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
//
// Go Pattern: Functions that can fail return (value, error). This is Go's
// alternative to exceptions — the caller MUST handle the error. You'll see
// this pattern everywhere in Go: `result, err := doSomething()`.
//
// godotenv.Load is a no-op (returns an error we deliberately ignore) when no
// .env file is present — local dev convenience only, never required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		TranscriptDir: getEnv("TRANSCRIPT_DIR", "transcripts"),
		SummaryDir:    getEnv("SUMMARY_DIR", "meeting_summaries"),
		HistoryFile:   getEnv("HISTORY_FILE", "transcripts/history_records.json"),

		WorkerCount: getEnvInt("WORKER_COUNT", 12),

		ASREndpoint: getEnv("ASR_ENDPOINT", ""),
		ASRAPIKey:   getEnv("ASR_API_KEY", ""),

		DeepseekAPIKey: getEnv("DEEPSEEK_API_KEY", ""),
		DeepseekAPIURL: getEnv("DEEPSEEK_API_URL", "https://api.deepseek.com/chat/completions"),
		QwenAPIKey:     getEnv("QWEN_API_KEY", ""),
		QwenAPIURL:     getEnv("QWEN_API_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"),
		GLMAPIKey:      getEnv("GLM_API_KEY", ""),
		GLMAPIURL:      getEnv("GLM_API_URL", "https://open.bigmodel.cn/api/paas/v4/chat/completions"),
		DefaultModel:   getEnv("DEFAULT_SUMMARY_MODEL", "deepseek"),

		MaxUploadSizeBytes: int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 200)) << 20,

		AllowedOrigins: splitCSV(getEnv("CORS_ORIGIN", "http://localhost:5173")),
	}

	if cfg.WorkerCount <= 0 {
		return nil, fmt.Errorf("WORKER_COUNT must be positive, got %d", cfg.WorkerCount)
	}

	return cfg, nil
}

// getEnv reads an environment variable with a fallback default.
// Go Pattern: Small helper functions are idiomatic. Go favors simple,
// composable functions over complex frameworks.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvInt reads an integer environment variable with a fallback.
func getEnvInt(key string, fallback int) int {
	str := getEnv(key, "")
	if str == "" {
		return fallback
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return fallback
	}
	return val
}

// splitCSV splits a comma-separated env value into a trimmed slice.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
