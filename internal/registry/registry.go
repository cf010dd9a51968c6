// Package registry is the authoritative in-memory catalogue of every known
// audio file and its mutable lifecycle state.
//
// Go Pattern: a single mutex protects a plain map. There is no ORM and no
// database row underneath — mutation happens through closures so the lock
// is always held for the whole read-modify-write, and callers never get a
// reference into the map itself (they get copies).
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/voicescribe/transcription-core/internal/models"
)

// ErrNotFound is returned when an operation targets an unknown file id.
var ErrNotFound = fmt.Errorf("file not found")

// ErrDuplicate is returned by Add when the id already exists.
var ErrDuplicate = fmt.Errorf("file already exists")

// ErrForbidden is returned when an operation is disallowed by the current state.
var ErrForbidden = fmt.Errorf("operation not allowed in current state")

// Filter narrows List to a single state; zero value means "all states".
type Filter struct {
	State  models.FileState
	HasState bool
	Limit  int
	Offset int
}

// Registry is the single source of truth for FileRecords in memory.
type Registry struct {
	mu         sync.Mutex
	files      map[string]*models.FileRecord
	processing map[string]struct{}
	completed  map[string]struct{}
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		files:      make(map[string]*models.FileRecord),
		processing: make(map[string]struct{}),
		completed:  make(map[string]struct{}),
	}
}

// Add stores a new record, which must arrive with State == Uploaded.
func (r *Registry) Add(rec *models.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.files[rec.ID]; exists {
		return ErrDuplicate
	}
	r.files[rec.ID] = rec.Clone()
	return nil
}

// Get returns a snapshot copy of the record, or ErrNotFound.
func (r *Registry) Get(id string) (*models.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// List returns a filtered, paginated snapshot slice sorted by the priority
// the Request Surface needs: processing > uploaded > completed > error,
// then upload time descending within each bucket.
func (r *Registry) List(f Filter) []*models.FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.FileRecord, 0, len(r.files))
	for _, rec := range r.files {
		if f.HasState && rec.State != f.State {
			continue
		}
		out = append(out, rec.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		pi, pj := statePriority(out[i].State), statePriority(out[j].State)
		if pi != pj {
			return pi < pj
		}
		return out[i].UploadTime.After(out[j].UploadTime.Time)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*models.FileRecord{}
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}

func statePriority(s models.FileState) int {
	switch s {
	case models.StateProcessing:
		return 0
	case models.StateUploaded:
		return 1
	case models.StateCompleted:
		return 2
	case models.StateError:
		return 3
	default:
		return 4
	}
}

// Statistics returns unfiltered state counts across the whole catalogue.
func (r *Registry) Statistics() models.Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s models.Statistics
	for _, rec := range r.files {
		s.Total++
		switch rec.State {
		case models.StateUploaded:
			s.Uploaded++
		case models.StateProcessing:
			s.Processing++
		case models.StateCompleted:
			s.Completed++
		case models.StateError:
			s.Error++
		}
	}
	return s
}

// Mutation is applied to a record under the Registry lock. Returning an
// error rejects the mutation — nothing is committed.
type Mutation func(*models.FileRecord) error

// Update applies mut to the record for id, enforcing invariants 1-4 from
// the data model before committing: monotone progress while state != Error,
// and terminal-state stability. A retranscribe (Completed/Error -> Processing)
// starts a new run, so it may reset progress.
func (r *Registry) Update(id string, mut Mutation) (*models.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.files[id]
	if !ok {
		return nil, ErrNotFound
	}

	work := rec.Clone()
	prevProgress := rec.Progress
	prevState := rec.State

	if err := mut(work); err != nil {
		return nil, err
	}

	wasTerminal := prevState == models.StateCompleted || prevState == models.StateError
	retranscribe := wasTerminal && work.State == models.StateProcessing
	if work.State != models.StateError && !retranscribe && work.Progress < prevProgress {
		return nil, fmt.Errorf("%w: progress regression %d -> %d", ErrForbidden, prevProgress, work.Progress)
	}
	if (prevState == models.StateCompleted || prevState == models.StateError) &&
		work.State != prevState && work.State != models.StateProcessing {
		return nil, fmt.Errorf("%w: cannot leave terminal state %s except via retranscribe", ErrForbidden, prevState)
	}

	r.files[id] = work
	r.syncIndexes(id, work.State)
	return work.Clone(), nil
}

func (r *Registry) syncIndexes(id string, state models.FileState) {
	delete(r.processing, id)
	delete(r.completed, id)
	switch state {
	case models.StateProcessing:
		r.processing[id] = struct{}{}
	case models.StateCompleted:
		r.completed[id] = struct{}{}
	}
}

// ClaimProcessing atomically checks that id is not already processing and
// flips it to Processing in a single critical section, closing the
// check-then-act window a separate IsProcessing+Update pair would leave
// open between two racing callers. Used by the Scheduler to enforce "at
// most one job per fileId in the pool" (spec.md §4.5.2).
func (r *Registry) ClaimProcessing(id string, mut Mutation) (*models.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	if _, processing := r.processing[id]; processing {
		return nil, fmt.Errorf("%w: file %s already has a job in flight", ErrForbidden, id)
	}

	work := rec.Clone()
	if err := mut(work); err != nil {
		return nil, err
	}

	r.files[id] = work
	r.syncIndexes(id, work.State)
	return work.Clone(), nil
}

// Remove deletes the record, refusing while processing and not cancelled.
func (r *Registry) Remove(id string) (*models.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.State == models.StateProcessing && !rec.Cancelled {
		return nil, fmt.Errorf("%w: file is processing", ErrForbidden)
	}

	delete(r.files, id)
	delete(r.processing, id)
	delete(r.completed, id)
	return rec, nil
}

// ClearAll removes every non-processing record, for the "_clear_all" delete
// endpoint, and returns the ids removed.
func (r *Registry) ClearAll() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, rec := range r.files {
		if rec.State == models.StateProcessing && !rec.Cancelled {
			continue
		}
		delete(r.files, id)
		delete(r.processing, id)
		delete(r.completed, id)
		removed = append(removed, id)
	}
	return removed
}

// CompletedSnapshot returns clones of every currently completed record, for
// the History Store to persist.
func (r *Registry) CompletedSnapshot() []*models.FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.FileRecord, 0, len(r.completed))
	for id := range r.completed {
		out = append(out, r.files[id].Clone())
	}
	return out
}

// MergeHistory adds records from the History Store into the catalogue,
// never overwriting a live Processing or Uploaded record with the same id.
func (r *Registry) MergeHistory(records []*models.FileRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		if existing, ok := r.files[rec.ID]; ok {
			if existing.State == models.StateProcessing || existing.State == models.StateUploaded {
				continue
			}
		}
		r.files[rec.ID] = rec.Clone()
		r.syncIndexes(rec.ID, rec.State)
	}
}
