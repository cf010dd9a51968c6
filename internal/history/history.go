// Package history persists the completed-file subset of the Registry as a
// single JSON document and reloads it on demand.
//
// Go Pattern: atomic file writes via write-to-temp-then-rename. A crash
// between the write and the rename leaves the original file untouched,
// since rename is atomic on POSIX filesystems — this is the same guarantee
// the teacher's database layer got for free from Postgres transactions,
// reproduced here by hand because our durability unit is a file, not a row.
package history

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/voicescribe/transcription-core/internal/models"
)

// document is the on-disk shape: two parallel arrays, matching the original
// wire format. CompletedFiles is always derived from Files at Save time
// (see DESIGN.md, Open Question decisions) so the two can never disagree.
type document struct {
	Files          []*models.FileRecord `json:"files"`
	CompletedFiles []string             `json:"completed_files"`
}

// Store persists FileRecords to a single JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a Store backed by path. The parent directory is created if absent.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	return &Store{path: path}, nil
}

// Load reads the on-disk file, tolerating absence (empty result) and
// malformed content (warn + empty result; never crash the process).
func (s *Store) Load() []*models.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("⚠️  history store: failed to read %s: %v", s.path, err)
		}
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("⚠️  history store: malformed history file %s, starting empty: %v", s.path, err)
		return nil
	}

	return doc.Files
}

// Save serialises records atomically: write to a temp file in the same
// directory, then rename over the target. A reader can never observe a
// half-written file.
func (s *Store) Save(records []*models.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := make([]string, 0, len(records))
	for _, r := range records {
		completed = append(completed, r.ID)
	}
	doc := document{Files: records, CompletedFiles: completed}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp history file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp history file into place: %w", err)
	}
	return nil
}

// Clear truncates the store to an empty document.
func (s *Store) Clear() error {
	return s.Save(nil)
}
