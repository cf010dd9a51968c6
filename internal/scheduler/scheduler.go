// Package scheduler is the Transcription Scheduler: the heart of the
// system. It accepts job requests, enforces a bounded concurrency W,
// dispatches work to an external transcription runner, supports
// cooperative cancellation, persists results, and emits status through
// the Broadcast Hub.
//
// Go Pattern: generalizes the teacher's services/worker.Pool (a fixed
// goroutine pool reading off a single shared channel) into one goroutine
// per accepted job, gated by a golang.org/x/sync/semaphore.Weighted(W)
// instead of a channel-based counting semaphore. A per-job goroutine is
// needed because spec.md §4.5.4's batch-wait semantics require an
// individually cancellable, individually awaitable handle per job, not
// just a shared job struct flowing through one channel.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/voicescribe/transcription-core/internal/docrender"
	"github.com/voicescribe/transcription-core/internal/history"
	"github.com/voicescribe/transcription-core/internal/hub"
	"github.com/voicescribe/transcription-core/internal/models"
	"github.com/voicescribe/transcription-core/internal/registry"
	"github.com/voicescribe/transcription-core/internal/runner"
	"github.com/voicescribe/transcription-core/internal/tracker"
)

// JobOptions configures a single transcription job.
type JobOptions struct {
	Language models.Language
	Hotword  string
}

// Result is the outcome of a finished job.
type Result struct {
	Segments []models.Segment
	Err      error
}

// JobHandle is the opaque, cancellable handle returned by Enqueue.
type JobHandle struct {
	fileID   string
	reg      *registry.Registry
	cancelFn context.CancelFunc
	done     chan struct{}

	mu     sync.Mutex
	result Result
}

// FileID returns the id of the file this job is transcribing.
func (h *JobHandle) FileID() string { return h.fileID }

// Done is closed once the job reaches a terminal local outcome
// (Completed, Error, or cancelled-back-to-Uploaded).
func (h *JobHandle) Done() <-chan struct{} { return h.done }

// Result returns the job's outcome. Only meaningful after Done is closed.
func (h *JobHandle) Result() Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

func (h *JobHandle) setResult(r Result) {
	h.mu.Lock()
	h.result = r
	h.mu.Unlock()
	close(h.done)
}

// Cancel sets the cooperative cancellation flag and, if the job is still
// waiting for a worker slot, interrupts that wait immediately. Idempotent:
// calling it twice has the same effect as calling it once (spec.md §8
// testable property 6).
func (h *JobHandle) Cancel() {
	h.reg.Update(h.fileID, func(r *models.FileRecord) error {
		r.Cancelled = true
		return nil
	})
	h.cancelFn()
}

// Scheduler is the bounded worker pool described in spec.md §4.5.
type Scheduler struct {
	W int

	reg         *registry.Registry
	hist        *history.Store
	broadcast   *hub.Hub
	transcriber runner.Transcriber
	docs        *docrender.Renderer

	sem *semaphore.Weighted

	jobsMu sync.Mutex
	jobs   map[string]*JobHandle

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler bounded to w concurrent jobs.
func New(w int, reg *registry.Registry, hist *history.Store, broadcast *hub.Hub,
	transcriber runner.Transcriber, docs *docrender.Renderer) *Scheduler {

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		W:           w,
		reg:         reg,
		hist:        hist,
		broadcast:   broadcast,
		transcriber: transcriber,
		docs:        docs,
		sem:         semaphore.NewWeighted(int64(w)),
		jobs:        make(map[string]*JobHandle),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ActiveJobs returns the number of jobs currently tracked by the pool —
// enqueued and not yet finished, regardless of whether they hold a worker
// slot. Used by the health endpoint, not by scheduling logic itself.
func (s *Scheduler) ActiveJobs() int {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	return len(s.jobs)
}

// Stop signals every in-flight job's context done and waits for worker
// goroutines to exit. In-flight jobs are abandoned, not completed — this
// matches spec.md's "crash during processing" failure semantics; a clean
// Stop is just a controlled version of the same event.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Enqueue accepts a job for fileID. The externally visible state becomes
// Processing immediately (spec.md §4.5.1 — "Pending" is an internal detail
// clients never see), even though the job may still be queued behind the
// semaphore waiting for a worker slot.
func (s *Scheduler) Enqueue(fileID string, opts JobOptions) (*JobHandle, error) {
	if _, err := s.reg.ClaimProcessing(fileID, func(r *models.FileRecord) error {
		r.State = models.StateProcessing
		r.Progress = 0
		r.Cancelled = false
		r.ErrorMessage = ""
		r.Language = opts.Language
		return nil
	}); err != nil {
		return nil, err
	}
	s.broadcast.Publish(models.ProgressEvent{FileID: fileID, State: models.StateProcessing, Progress: 0})

	jobCtx, jobCancel := context.WithCancel(s.ctx)
	h := &JobHandle{fileID: fileID, reg: s.reg, cancelFn: jobCancel, done: make(chan struct{})}

	s.jobsMu.Lock()
	s.jobs[fileID] = h
	s.jobsMu.Unlock()

	s.wg.Add(1)
	go s.runJob(jobCtx, h, opts)

	return h, nil
}

// Cancel looks up the in-flight handle for fileID and cancels it. If no
// handle is found (job already finished, or never existed), the cancelled
// flag is still set directly so a subsequent Get reflects the request.
func (s *Scheduler) Cancel(fileID string) error {
	s.jobsMu.Lock()
	h, ok := s.jobs[fileID]
	s.jobsMu.Unlock()

	if ok {
		h.Cancel()
		return nil
	}
	_, err := s.reg.Update(fileID, func(r *models.FileRecord) error {
		r.Cancelled = true
		return nil
	})
	return err
}

func (s *Scheduler) runJob(ctx context.Context, h *JobHandle, opts JobOptions) {
	defer s.wg.Done()
	defer func() {
		s.jobsMu.Lock()
		delete(s.jobs, h.fileID)
		s.jobsMu.Unlock()
	}()

	cancelCheck := func() bool {
		rec, err := s.reg.Get(h.fileID)
		return err == nil && rec.Cancelled
	}

	// Cancelled before a worker slot was ever acquired.
	if cancelCheck() {
		s.finishCancelled(h)
		return
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		// Context cancelled while waiting for a slot — treat as cancel.
		s.finishCancelled(h)
		return
	}
	defer s.sem.Release(1)

	if cancelCheck() {
		s.finishCancelled(h)
		return
	}

	rec, err := s.reg.Get(h.fileID)
	if err != nil {
		h.setResult(Result{Err: err})
		return
	}

	t := tracker.New(h.fileID, s.broadcast)
	defer t.Stop()

	progress := func(stage string, pct int, message string, etaMillis int) {
		t.SetTarget(pct, models.StateProcessing, message, etaMillis)
	}

	segments, terr := s.transcriber.Transcribe(ctx, rec.StoredPath, opts.Hotword, string(opts.Language), cancelCheck, progress)

	if terr != nil {
		if _, isCancel := terr.(runner.Cancelled); isCancel || cancelCheck() {
			s.finishCancelled(h)
			t.Finish(0, models.StateUploaded, "cancelled")
			return
		}

		updated, uerr := s.reg.Update(h.fileID, func(r *models.FileRecord) error {
			r.State = models.StateError
			r.ErrorMessage = terr.Error()
			return nil
		})
		progressAt := rec.Progress
		if uerr == nil {
			progressAt = updated.Progress
		}
		t.Finish(progressAt, models.StateError, terr.Error())
		h.setResult(Result{Err: terr})
		return
	}

	// The runner returned a normal result without itself raising Cancelled.
	// Catch up on the cancellation request here rather than commit a result
	// the caller already gave up on (spec.md §4.5.3).
	if cancelCheck() {
		s.finishCancelled(h)
		t.Finish(0, models.StateUploaded, "cancelled")
		return
	}

	updated, uerr := s.reg.Update(h.fileID, func(r *models.FileRecord) error {
		r.Segments = segments
		r.State = models.StateCompleted
		r.Progress = 100
		r.CompleteTime = models.Now()
		return nil
	})
	if uerr != nil {
		log.Printf("❌ scheduler: failed to commit completion for %s: %v", h.fileID, uerr)
		h.setResult(Result{Err: uerr})
		return
	}

	if s.docs != nil {
		if path, derr := s.docs.RenderTranscriptDoc(ctx, updated); derr != nil {
			log.Printf("⚠️  scheduler: failed to render transcript doc for %s: %v", h.fileID, derr)
		} else {
			s.reg.Update(h.fileID, func(r *models.FileRecord) error {
				r.TranscriptDocPath = path
				return nil
			})
		}
	}

	if err := s.hist.Save(s.reg.CompletedSnapshot()); err != nil {
		log.Printf("⚠️  scheduler: failed to save history after completing %s: %v", h.fileID, err)
	}

	t.Finish(100, models.StateCompleted, "completed")
	h.setResult(Result{Segments: segments})
}

func (s *Scheduler) finishCancelled(h *JobHandle) {
	s.reg.Update(h.fileID, func(r *models.FileRecord) error {
		r.State = models.StateUploaded
		r.Progress = 0
		r.Cancelled = false
		r.ErrorMessage = ""
		return nil
	})
	s.broadcast.Publish(models.ProgressEvent{FileID: h.fileID, State: models.StateUploaded, Progress: 0, Message: "cancelled"})
	h.setResult(Result{Err: runner.Cancelled{}})
}

// BatchOutcome partitions a batch submission's file ids, per spec.md §4.5.4.
type BatchOutcome struct {
	Completed []string
	Failed    []string
	Pending   []string
	Results   map[string][]models.Segment
}

// SubmitBatch enqueues every fileID with opts. If wait is false, it returns
// immediately with every accepted id reported as Pending. If wait is true,
// it blocks until every job reaches a terminal state or timeout elapses,
// whichever comes first, then partitions the ids into Completed, Failed,
// and Pending (timed out) — together always a full, disjoint cover of the
// input (spec.md §8 testable property 3).
func (s *Scheduler) SubmitBatch(fileIDs []string, opts JobOptions, wait bool, timeout time.Duration) BatchOutcome {
	outcome := BatchOutcome{Results: make(map[string][]models.Segment)}

	handles := make([]*JobHandle, 0, len(fileIDs))
	for _, id := range fileIDs {
		h, err := s.Enqueue(id, opts)
		if err != nil {
			outcome.Failed = append(outcome.Failed, id)
			continue
		}
		handles = append(handles, h)
	}

	if !wait {
		for _, h := range handles {
			outcome.Pending = append(outcome.Pending, h.FileID())
		}
		return outcome
	}

	remaining := make(map[string]*JobHandle, len(handles))
	for _, h := range handles {
		remaining[h.FileID()] = h
	}

	arrived := make(chan string, len(handles))
	for _, h := range handles {
		h := h
		go func() {
			<-h.Done()
			arrived <- h.FileID()
		}()
	}

	deadline := time.After(timeout)
waitLoop:
	for len(remaining) > 0 {
		select {
		case id := <-arrived:
			delete(remaining, id)
		case <-deadline:
			break waitLoop
		}
	}

	for _, h := range handles {
		if _, stillWaiting := remaining[h.FileID()]; stillWaiting {
			outcome.Pending = append(outcome.Pending, h.FileID())
			continue
		}
		res := h.Result()
		if res.Err != nil {
			outcome.Failed = append(outcome.Failed, h.FileID())
			continue
		}
		outcome.Completed = append(outcome.Completed, h.FileID())
		outcome.Results[h.FileID()] = res.Segments
	}

	return outcome
}
