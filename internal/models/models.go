// Package models defines the data structures shared across the server.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// Unlike Ruby's ActiveRecord or JavaScript's Mongoose, Go models are just
// data containers — no ORM magic. The registry and history packages handle
// persistence and lifecycle.
package models

import (
	"fmt"
	"time"
)

// FileState is the lifecycle state of a FileRecord.
// Go Pattern: string constants instead of enums (Go has no enum keyword).
type FileState string

const (
	StateUploaded   FileState = "uploaded"
	StateProcessing FileState = "processing"
	StateCompleted  FileState = "completed"
	StateError      FileState = "error"
)

// Language is one of the closed set of recognition languages the server accepts.
type Language string

const (
	LanguageZH        Language = "zh"
	LanguageZHDialect Language = "zh-dialect"
	LanguageZHEN      Language = "zh-en"
	LanguageEN        Language = "en"
)

// AllLanguages is the closed set exposed by GET /api/voice/languages.
var AllLanguages = []Language{LanguageZH, LanguageZHDialect, LanguageZHEN, LanguageEN}

// LocalTime wraps time.Time to serialize as "YYYY-MM-DD HH:MM:SS" local time,
// matching the wire format the frontend already expects.
type LocalTime struct {
	time.Time
}

// Now returns a LocalTime wrapping the current instant.
func Now() LocalTime { return LocalTime{time.Now()} }

// MarshalJSON renders the local-time wire format.
func (t LocalTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", t.Format("2006-01-02 15:04:05"))), nil
}

// UnmarshalJSON parses the wire format MarshalJSON writes (or null), so
// records saved to the history file load back with their times.
func (t *LocalTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid local time %s", s)
	}
	parsed, err := time.ParseInLocation("2006-01-02 15:04:05", s[1:len(s)-1], time.Local)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Word is an optional sub-segment carrying per-word alignment.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a speaker-attributed, timestamped utterance produced by the runner.
type Segment struct {
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Words     []Word  `json:"words,omitempty"`
}

// StripWords returns a copy of segments with the Words field cleared — used
// by legacy response paths that must never include word-level alignment.
func StripWords(segs []Segment) []Segment {
	out := make([]Segment, len(segs))
	for i, s := range segs {
		out[i] = s
		out[i].Words = nil
	}
	return out
}

// SummaryStatus is the outcome of a Summary Orchestrator run.
type SummaryStatus string

const (
	SummarySuccess SummaryStatus = "success"
	SummaryError   SummaryStatus = "error"
)

// Summary is the result of an LLM summarization call over a file's segments.
type Summary struct {
	RawText     string        `json:"raw_text"`
	GeneratedAt LocalTime     `json:"generated_at"`
	ModelKey    string        `json:"model_key"`
	Status      SummaryStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
}

// FileRecord is the unit of work and of retrieval.
type FileRecord struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	StoredPath   string    `json:"-"` // never serialized: server-local path, not a client URL
	SizeBytes    int64     `json:"size_bytes"`
	UploadTime   LocalTime `json:"upload_time"`
	CompleteTime LocalTime `json:"complete_time,omitempty"`

	State    FileState `json:"state"`
	Progress int       `json:"progress"`
	Language Language  `json:"language,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
	Cancelled    bool   `json:"-"`

	Segments []Segment `json:"segments,omitempty"`

	TranscriptDocPath string `json:"-"`
	SummaryDocPath    string `json:"-"`

	Summary *Summary `json:"summary,omitempty"`
}

// Clone returns a deep-enough copy safe to hand to callers outside the lock:
// slices and the Summary pointer are copied, not aliased.
func (r *FileRecord) Clone() *FileRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Segments != nil {
		cp.Segments = make([]Segment, len(r.Segments))
		copy(cp.Segments, r.Segments)
	}
	if r.Summary != nil {
		s := *r.Summary
		cp.Summary = &s
	}
	return &cp
}

// DownloadURLs is the polymorphic download-link payload for GET /api/voice/files.
// Go Pattern: model it as a struct with optional fields rather than a dynamic
// map, so the compiler enforces that `Audio` is always present.
type DownloadURLs struct {
	Audio      string `json:"audio"`
	Transcript string `json:"transcript,omitempty"`
	Summary    string `json:"summary,omitempty"`
}

// FileListEntry is one row of GET /api/voice/files — a FileRecord plus its
// download links, never exposing StoredPath.
type FileListEntry struct {
	FileRecord
	DownloadURLs DownloadURLs `json:"download_urls"`
}

// ProgressEvent is emitted by the Tracker and consumed by the Broadcast Hub.
type ProgressEvent struct {
	FileID   string    `json:"file_id"`
	State    FileState `json:"state"`
	Progress int       `json:"progress"`
	Message  string    `json:"message,omitempty"`
}

// Statistics is the unfiltered state-count summary returned alongside file listings.
type Statistics struct {
	Total      int `json:"total"`
	Uploaded   int `json:"uploaded"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Error      int `json:"error"`
}

// Pagination describes a page of a filtered listing.
type Pagination struct {
	Limit   int `json:"limit"`
	Offset  int `json:"offset"`
	Total   int `json:"total"`
	Returned int `json:"returned"`
}

// ErrorResponse is the standard error JSON shape for every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Workers      int    `json:"workers"`
	ActiveJobs   int    `json:"active_jobs"`
	RunnerReady  bool   `json:"runner_ready"`
}
