package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/voicescribe/transcription-core/internal/models"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history_records.json")

	store, err := New(path)
	if err != nil {
		t.Fatalf("New: unexpected error: %v", err)
	}

	records := []*models.FileRecord{
		{ID: "a", OriginalName: "a.wav", State: models.StateCompleted},
		{ID: "b", OriginalName: "b.wav", State: models.StateCompleted},
	}
	if err := store.Save(records); err != nil {
		t.Fatalf("Save: unexpected error: %v", err)
	}

	loaded := store.Load()
	if len(loaded) != 2 {
		t.Fatalf("Load: got %d records, want 2", len(loaded))
	}
	if loaded[0].ID != "a" || loaded[1].ID != "b" {
		t.Errorf("Load: ids = %q, %q, want a, b", loaded[0].ID, loaded[1].ID)
	}
}

func TestLoad_MissingFileTolerated(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "does_not_exist.json"))
	if err != nil {
		t.Fatalf("New: unexpected error: %v", err)
	}

	if loaded := store.Load(); loaded != nil {
		t.Errorf("Load on missing file = %v, want nil", loaded)
	}
}

func TestLoad_MalformedFileTolerated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history_records.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to seed malformed file: %v", err)
	}

	store, err := New(path)
	if err != nil {
		t.Fatalf("New: unexpected error: %v", err)
	}

	if loaded := store.Load(); loaded != nil {
		t.Errorf("Load on malformed file = %v, want nil", loaded)
	}
}

func TestSave_CompletedFilesAlwaysDerived(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history_records.json")
	store, _ := New(path)

	store.Save([]*models.FileRecord{{ID: "x", State: models.StateCompleted}})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved history: %v", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to unmarshal saved history: %v", err)
	}
	if len(doc.CompletedFiles) != 1 || doc.CompletedFiles[0] != "x" {
		t.Errorf("CompletedFiles = %v, want [x]", doc.CompletedFiles)
	}
}

func TestClear_ProducesEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history_records.json")
	store, _ := New(path)

	store.Save([]*models.FileRecord{{ID: "x", State: models.StateCompleted}})
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: unexpected error: %v", err)
	}

	if loaded := store.Load(); len(loaded) != 0 {
		t.Errorf("Load after Clear = %v, want empty", loaded)
	}
}
