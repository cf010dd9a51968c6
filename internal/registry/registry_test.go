package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/voicescribe/transcription-core/internal/models"
)

func newUploadedRecord(id string) *models.FileRecord {
	return &models.FileRecord{
		ID:         id,
		State:      models.StateUploaded,
		UploadTime: models.Now(),
	}
}

func TestAdd_Duplicate(t *testing.T) {
	r := New()
	if err := r.Add(newUploadedRecord("a")); err != nil {
		t.Fatalf("first Add: unexpected error: %v", err)
	}
	if err := r.Add(newUploadedRecord("a")); err != ErrDuplicate {
		t.Errorf("second Add: got %v, want ErrDuplicate", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	r := New()
	if _, err := r.Get("missing"); err != ErrNotFound {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestUpdate_MonotoneProgress(t *testing.T) {
	r := New()
	r.Add(newUploadedRecord("a"))
	r.Update("a", func(rec *models.FileRecord) error {
		rec.State = models.StateProcessing
		rec.Progress = 40
		return nil
	})

	if _, err := r.Update("a", func(rec *models.FileRecord) error {
		rec.Progress = 30
		return nil
	}); err == nil {
		t.Error("expected progress regression to be rejected, got nil error")
	}

	if _, err := r.Update("a", func(rec *models.FileRecord) error {
		rec.Progress = 70
		return nil
	}); err != nil {
		t.Errorf("forward progress should be accepted, got %v", err)
	}
}

func TestUpdate_ErrorStateAllowsProgressReset(t *testing.T) {
	r := New()
	r.Add(newUploadedRecord("a"))
	r.Update("a", func(rec *models.FileRecord) error {
		rec.State = models.StateProcessing
		rec.Progress = 80
		return nil
	})

	if _, err := r.Update("a", func(rec *models.FileRecord) error {
		rec.State = models.StateError
		rec.Progress = 0
		rec.ErrorMessage = "boom"
		return nil
	}); err != nil {
		t.Errorf("transition to Error should allow progress reset, got %v", err)
	}
}

func TestUpdate_TerminalStateStability(t *testing.T) {
	r := New()
	r.Add(newUploadedRecord("a"))
	r.Update("a", func(rec *models.FileRecord) error {
		rec.State = models.StateProcessing
		rec.Progress = 100
		return nil
	})
	r.Update("a", func(rec *models.FileRecord) error {
		rec.State = models.StateCompleted
		return nil
	})

	if _, err := r.Update("a", func(rec *models.FileRecord) error {
		rec.State = models.StateUploaded
		return nil
	}); err == nil {
		t.Error("expected leaving Completed for Uploaded to be rejected")
	}

	if _, err := r.Update("a", func(rec *models.FileRecord) error {
		rec.State = models.StateProcessing
		rec.Progress = 0
		return nil
	}); err != nil {
		t.Errorf("retranscribe (Completed -> Processing) should be allowed, got %v", err)
	}
}

func TestRemove_ForbiddenWhileProcessing(t *testing.T) {
	r := New()
	r.Add(newUploadedRecord("a"))
	r.Update("a", func(rec *models.FileRecord) error {
		rec.State = models.StateProcessing
		return nil
	})

	if _, err := r.Remove("a"); err == nil {
		t.Error("expected Remove to be forbidden while processing and not cancelled")
	}

	r.Update("a", func(rec *models.FileRecord) error {
		rec.Cancelled = true
		return nil
	})
	if _, err := r.Remove("a"); err != nil {
		t.Errorf("Remove should succeed once cancelled, got %v", err)
	}
}

func TestMergeHistory_NeverOverwritesLiveRecord(t *testing.T) {
	r := New()
	r.Add(newUploadedRecord("a"))
	r.Update("a", func(rec *models.FileRecord) error {
		rec.State = models.StateProcessing
		rec.Progress = 55
		return nil
	})

	r.MergeHistory([]*models.FileRecord{
		{ID: "a", State: models.StateCompleted, Progress: 100},
		{ID: "b", State: models.StateCompleted, Progress: 100},
	})

	live, _ := r.Get("a")
	if live.State != models.StateProcessing || live.Progress != 55 {
		t.Errorf("MergeHistory overwrote a live record: state=%s progress=%d", live.State, live.Progress)
	}

	if _, err := r.Get("b"); err != nil {
		t.Errorf("expected history-only record b to be merged in, got %v", err)
	}
}

func TestClaimProcessing_RejectsSecondClaimWhileInFlight(t *testing.T) {
	r := New()
	r.Add(newUploadedRecord("a"))

	if _, err := r.ClaimProcessing("a", func(rec *models.FileRecord) error {
		rec.State = models.StateProcessing
		return nil
	}); err != nil {
		t.Fatalf("first claim: unexpected error: %v", err)
	}

	if _, err := r.ClaimProcessing("a", func(rec *models.FileRecord) error {
		rec.State = models.StateProcessing
		return nil
	}); err == nil {
		t.Error("expected second claim on the same in-flight file to be rejected")
	}
}

func TestClaimProcessing_ConcurrentCallersOnlyOneWins(t *testing.T) {
	r := New()
	r.Add(newUploadedRecord("a"))

	const attempts = 50
	var wins int64
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			if _, err := r.ClaimProcessing("a", func(rec *models.FileRecord) error {
				rec.State = models.StateProcessing
				return nil
			}); err == nil {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1 of %d concurrent claims to succeed", wins, attempts)
	}
}

func TestList_FiltersByState(t *testing.T) {
	r := New()
	r.Add(newUploadedRecord("a"))
	r.Add(newUploadedRecord("b"))
	r.Update("b", func(rec *models.FileRecord) error {
		rec.State = models.StateProcessing
		return nil
	})

	out := r.List(Filter{State: models.StateUploaded, HasState: true})
	if len(out) != 1 || out[0].ID != "a" {
		t.Errorf("List(uploaded) = %v, want exactly [a]", out)
	}
}
