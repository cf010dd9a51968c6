package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/voicescribe/transcription-core/internal/history"
	"github.com/voicescribe/transcription-core/internal/hub"
	"github.com/voicescribe/transcription-core/internal/models"
	"github.com/voicescribe/transcription-core/internal/registry"
	"github.com/voicescribe/transcription-core/internal/runner"
)

type fakeTranscriber struct {
	fn func(ctx context.Context, path, hotword, language string,
		cancelCheck runner.CancelCheck, progress runner.ProgressCallback) ([]models.Segment, error)
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, path, hotword, language string,
	cancelCheck runner.CancelCheck, progress runner.ProgressCallback) ([]models.Segment, error) {
	return f.fn(ctx, path, hotword, language, cancelCheck, progress)
}

func newTestScheduler(t *testing.T, transcriber runner.Transcriber) (*Scheduler, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	hist, err := history.New(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatalf("history.New: %v", err)
	}
	h := hub.New()
	go h.Run()
	t.Cleanup(h.Shutdown)

	s := New(2, reg, hist, h, transcriber, nil)
	t.Cleanup(s.Stop)
	return s, reg
}

func addUploaded(t *testing.T, reg *registry.Registry, id string) {
	t.Helper()
	if err := reg.Add(&models.FileRecord{ID: id, State: models.StateUploaded, UploadTime: models.Now()}); err != nil {
		t.Fatalf("Add(%s): %v", id, err)
	}
}

func TestEnqueue_SuccessfulJobCompletes(t *testing.T) {
	transcriber := &fakeTranscriber{fn: func(ctx context.Context, path, hotword, language string,
		cancelCheck runner.CancelCheck, progress runner.ProgressCallback) ([]models.Segment, error) {
		return []models.Segment{{Speaker: "A", Text: "hello"}}, nil
	}}
	s, reg := newTestScheduler(t, transcriber)
	addUploaded(t, reg, "a")

	h, err := s.Enqueue("a", JobOptions{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job to finish")
	}

	rec, _ := reg.Get("a")
	if rec.State != models.StateCompleted || rec.Progress != 100 {
		t.Errorf("final record = %+v, want Completed/100", rec)
	}
}

func TestEnqueue_CancelledJobReturnsToUploaded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	transcriber := &fakeTranscriber{fn: func(ctx context.Context, path, hotword, language string,
		cancelCheck runner.CancelCheck, progress runner.ProgressCallback) ([]models.Segment, error) {
		close(started)
		<-release
		if cancelCheck() {
			return nil, runner.Cancelled{}
		}
		return []models.Segment{{Speaker: "A", Text: "hello"}}, nil
	}}
	s, reg := newTestScheduler(t, transcriber)
	addUploaded(t, reg, "a")

	h, err := s.Enqueue("a", JobOptions{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	<-started
	h.Cancel()
	close(release)

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cancelled job to finish")
	}

	rec, _ := reg.Get("a")
	if rec.State != models.StateUploaded {
		t.Errorf("cancelled job final state = %s, want Uploaded", rec.State)
	}
}

func TestEnqueue_CancelledDuringRunnerThatIgnoresCancelCheckIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	transcriber := &fakeTranscriber{fn: func(ctx context.Context, path, hotword, language string,
		cancelCheck runner.CancelCheck, progress runner.ProgressCallback) ([]models.Segment, error) {
		close(started)
		<-release
		// Ignores cancelCheck entirely and returns a normal successful
		// result, as if the runner never noticed the cancellation request.
		return []models.Segment{{Speaker: "A", Text: "hello"}}, nil
	}}
	s, reg := newTestScheduler(t, transcriber)
	addUploaded(t, reg, "a")

	h, err := s.Enqueue("a", JobOptions{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	<-started
	h.Cancel()
	close(release)

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job to finish")
	}

	if h.Result().Segments != nil {
		t.Errorf("result segments = %v, want nil (discarded on cancellation catch-up)", h.Result().Segments)
	}

	rec, _ := reg.Get("a")
	if rec.State != models.StateUploaded {
		t.Errorf("final state = %s, want Uploaded (cancellation caught up despite runner ignoring cancelCheck)", rec.State)
	}
}

func TestCancel_Idempotent(t *testing.T) {
	release := make(chan struct{})
	transcriber := &fakeTranscriber{fn: func(ctx context.Context, path, hotword, language string,
		cancelCheck runner.CancelCheck, progress runner.ProgressCallback) ([]models.Segment, error) {
		<-release
		return nil, runner.Cancelled{}
	}}
	s, reg := newTestScheduler(t, transcriber)
	addUploaded(t, reg, "a")

	h, err := s.Enqueue("a", JobOptions{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	h.Cancel()
	h.Cancel() // must not panic or double-finalize

	close(release)
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestSubmitBatch_PartitionsDisjointAndExhaustive(t *testing.T) {
	transcriber := &fakeTranscriber{fn: func(ctx context.Context, path, hotword, language string,
		cancelCheck runner.CancelCheck, progress runner.ProgressCallback) ([]models.Segment, error) {
		if path == "fail.wav" {
			return nil, errors.New("boom")
		}
		return []models.Segment{{Speaker: "A", Text: "ok"}}, nil
	}}
	s, reg := newTestScheduler(t, transcriber)

	reg.Add(&models.FileRecord{ID: "ok1", State: models.StateUploaded, UploadTime: models.Now(), StoredPath: "ok1.wav"})
	reg.Add(&models.FileRecord{ID: "ok2", State: models.StateUploaded, UploadTime: models.Now(), StoredPath: "ok2.wav"})
	reg.Add(&models.FileRecord{ID: "bad", State: models.StateUploaded, UploadTime: models.Now(), StoredPath: "fail.wav"})

	outcome := s.SubmitBatch([]string{"ok1", "ok2", "bad", "missing"}, JobOptions{}, true, 2*time.Second)

	all := map[string]bool{}
	for _, id := range outcome.Completed {
		if all[id] {
			t.Errorf("id %s appears in more than one bucket", id)
		}
		all[id] = true
	}
	for _, id := range outcome.Failed {
		if all[id] {
			t.Errorf("id %s appears in more than one bucket", id)
		}
		all[id] = true
	}
	for _, id := range outcome.Pending {
		if all[id] {
			t.Errorf("id %s appears in more than one bucket", id)
		}
		all[id] = true
	}

	for _, id := range []string{"ok1", "ok2", "bad", "missing"} {
		if !all[id] {
			t.Errorf("id %s missing from every bucket", id)
		}
	}

	if len(outcome.Completed) != 2 {
		t.Errorf("Completed = %v, want 2 successful ids", outcome.Completed)
	}
	if len(outcome.Failed) != 2 {
		t.Errorf("Failed = %v, want 2 (the erroring transcription plus the unknown id)", outcome.Failed)
	}
}

func TestEnqueue_RejectsWhenAlreadyProcessing(t *testing.T) {
	release := make(chan struct{})
	transcriber := &fakeTranscriber{fn: func(ctx context.Context, path, hotword, language string,
		cancelCheck runner.CancelCheck, progress runner.ProgressCallback) ([]models.Segment, error) {
		<-release
		return []models.Segment{}, nil
	}}
	s, reg := newTestScheduler(t, transcriber)
	addUploaded(t, reg, "a")

	if _, err := s.Enqueue("a", JobOptions{}); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	if _, err := s.Enqueue("a", JobOptions{}); err == nil {
		t.Error("expected second Enqueue for the same in-flight file to be rejected")
	}
	close(release)
}
