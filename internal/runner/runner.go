// Package runner defines the narrow interfaces the Transcription Scheduler
// and Summary Orchestrator use to reach external, opaque collaborators: the
// ASR/diarization model, audio pre-processing, document rendering, and the
// LLM. None of these are re-implemented here in earnest — per spec.md §1
// they are explicitly out of scope — but every interface ships at least one
// concrete, swappable default so the server runs end to end.
package runner

import (
	"context"

	"github.com/voicescribe/transcription-core/internal/models"
)

// ProgressCallback reports an intermediate stage to the caller; etaMillis
// is the runner's own estimate of time remaining to reach progress, or 0
// if unknown.
type ProgressCallback func(stage string, progress int, message string, etaMillis int)

// CancelCheck is polled by the runner at each stage boundary.
type CancelCheck func() bool

// Cancelled is returned by Transcribe when cancelCheck reported true.
type Cancelled struct{}

func (Cancelled) Error() string { return "transcription cancelled" }

// Transcriber is the ASR/diarization/VAD/punctuation model runner.
type Transcriber interface {
	Transcribe(ctx context.Context, path, hotword, language string,
		cancelCheck CancelCheck, progress ProgressCallback) ([]models.Segment, error)
}

// Normalizer pre-processes audio to the runner's target format, no-op'ing
// if the file already matches.
type Normalizer interface {
	Normalize(ctx context.Context, path string) (string, error)
}

// DocRenderer renders a completed file's segments or summary to disk,
// returning the artifact path.
type DocRenderer interface {
	RenderTranscriptDoc(ctx context.Context, rec *models.FileRecord) (string, error)
	RenderSummaryDoc(ctx context.Context, rec *models.FileRecord) (string, error)
}

// LLM is the summary-generation chat collaborator.
type LLM interface {
	Chat(ctx context.Context, systemMsg, userMsg, modelKey string) (string, error)
	Configured(modelKey string) bool
}
