package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/voicescribe/transcription-core/internal/models"
)

// SimulatedTranscriber is the built-in default Transcriber used when no
// ASR_ENDPOINT is configured. It produces deterministic placeholder
// segments so the server is runnable and testable with zero external
// setup, while still honoring cancelCheck and calling progress at
// realistic stage boundaries — it exercises the Tracker and Hub exactly
// like a real runner would.
type SimulatedTranscriber struct {
	// StageDelay is the pause between simulated stages; exposed for tests
	// that want the whole run to finish quickly.
	StageDelay time.Duration
}

// NewSimulatedTranscriber returns a SimulatedTranscriber with a sensible default pace.
func NewSimulatedTranscriber() *SimulatedTranscriber {
	return &SimulatedTranscriber{StageDelay: 150 * time.Millisecond}
}

var simulatedStages = []struct {
	stage    string
	progress int
	message  string
}{
	{"loading", 5, "loading audio"},
	{"vad", 20, "detecting speech segments"},
	{"recognizing", 60, "running speech recognition"},
	{"punctuating", 85, "restoring punctuation"},
	{"finalizing", 95, "finalizing transcript"},
}

// Transcribe walks through simulatedStages, sleeping StageDelay between
// each and polling cancelCheck, then returns a short canned transcript.
func (t *SimulatedTranscriber) Transcribe(ctx context.Context, path, hotword, language string,
	cancelCheck CancelCheck, progress ProgressCallback) ([]models.Segment, error) {

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}

	for _, stg := range simulatedStages {
		if cancelCheck() {
			return nil, Cancelled{}
		}
		progress(stg.stage, stg.progress, stg.message, int(t.StageDelay.Milliseconds()))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.StageDelay):
		}
	}

	if cancelCheck() {
		return nil, Cancelled{}
	}

	return []models.Segment{
		{Speaker: "Speaker 1", Text: "Thanks everyone for joining today's session.", StartTime: 0.0, EndTime: 3.2},
		{Speaker: "Speaker 2", Text: "Happy to be here, let's walk through the agenda.", StartTime: 3.2, EndTime: 7.0},
		{Speaker: "Speaker 1", Text: "Sounds good, first item is the quarterly roadmap.", StartTime: 7.0, EndTime: 11.5},
	}, nil
}
