// Package docrender produces the transcript and summary document artifacts
// named in spec.md §6.3's RenderTranscriptDoc/RenderSummaryDoc contracts.
//
// Go Pattern: no library in the example corpus writes .docx files — this is
// a deliberate stand-in, not an attempt at a real Word renderer. The real
// renderer is an opaque, out-of-scope external collaborator per spec.md §1;
// this package satisfies the runner.DocRenderer interface with a structured
// plain-text document under a .docx-suffixed filename, so the download
// endpoints and artifact-naming invariants (timestamp_usec + short id, see
// spec.md §3.2 invariant 1) are fully exercised without fabricating a
// dependency the pack never reaches for.
package docrender

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/voicescribe/transcription-core/internal/models"
)

// Renderer writes transcript/summary documents under two base directories.
type Renderer struct {
	TranscriptDir string
	SummaryDir    string
}

// New creates a Renderer rooted at the given directories, creating them if absent.
func New(transcriptDir, summaryDir string) (*Renderer, error) {
	if err := os.MkdirAll(transcriptDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}
	if err := os.MkdirAll(summaryDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create summary directory: %w", err)
	}
	return &Renderer{TranscriptDir: transcriptDir, SummaryDir: summaryDir}, nil
}

// artifactName embeds a microsecond timestamp and the record's short id
// suffix so concurrent completions never collide (spec.md §3.2 invariant 1
// and §9's "terminal file renaming" note).
func artifactName(prefix, id string) string {
	ts := time.Now().Format("20060102_150405.000000")
	ts = strings.ReplaceAll(ts, ".", "_")
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s_%s_%s.docx", prefix, ts, short)
}

// RenderTranscriptDoc writes rec's segments as a structured text document.
func (r *Renderer) RenderTranscriptDoc(ctx context.Context, rec *models.FileRecord) (string, error) {
	path := filepath.Join(r.TranscriptDir, artifactName("transcript", rec.ID))

	var b strings.Builder
	fmt.Fprintf(&b, "Transcript: %s\n", rec.OriginalName)
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	for _, seg := range rec.Segments {
		fmt.Fprintf(&b, "[%.1f - %.1f] %s: %s\n", seg.StartTime, seg.EndTime, seg.Speaker, seg.Text)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write transcript document: %w", err)
	}
	return path, nil
}

// RenderSummaryDoc writes rec's summary as a structured text document.
func (r *Renderer) RenderSummaryDoc(ctx context.Context, rec *models.FileRecord) (string, error) {
	if rec.Summary == nil {
		return "", fmt.Errorf("record %s has no summary to render", rec.ID)
	}
	path := filepath.Join(r.SummaryDir, artifactName("summary", rec.ID))

	var b strings.Builder
	fmt.Fprintf(&b, "Summary: %s\n", rec.OriginalName)
	fmt.Fprintf(&b, "Model: %s\n\n", rec.Summary.ModelKey)
	b.WriteString(rec.Summary.RawText)
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write summary document: %w", err)
	}
	return path, nil
}
