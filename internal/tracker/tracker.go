// Package tracker turns sparse, bursty progress updates from a worker into
// a smooth, monotone, dense progress stream, without ever blocking the
// worker that feeds it.
//
// Go Pattern: a long-lived goroutine per job with an inbound latest-wins
// update channel (buffered to size 1 — a new SetTarget simply overwrites
// whatever target is waiting to be picked up) and a timer for step pacing.
// This mirrors the worker-pool goroutine-per-unit-of-work shape the teacher
// uses for background jobs, but here the "job" is the interpolation itself.
package tracker

import (
	"sync"
	"time"

	"github.com/voicescribe/transcription-core/internal/models"
)

// fastDrainStep is the step sleep used once the job is finishing or its
// state changes — fast enough to feel instantaneous, slow enough that
// events still arrive in order. A higher target alone does not switch to
// it; the step then follows etaMillis within [minStep, maxStep]. The exact
// value is cosmetic/tunable (see DESIGN.md's Open Question decisions).
const fastDrainStep = 2 * time.Millisecond

const (
	minStep = 50 * time.Millisecond
	maxStep = 500 * time.Millisecond
)

type update struct {
	target    int
	state     models.FileState
	message   string
	etaMillis int
	terminal  bool
}

// Publisher is anything that can accept a ProgressEvent — the Broadcast Hub.
type Publisher interface {
	Publish(models.ProgressEvent)
}

// Tracker is a single job's progress interpolator.
type Tracker struct {
	fileID string
	pub    Publisher

	updates chan update
	done    chan struct{}
	once    sync.Once
}

// New starts a Tracker for fileID, publishing events through pub. The
// caller must call Stop when the job finishes, on every exit path.
func New(fileID string, pub Publisher) *Tracker {
	t := &Tracker{
		fileID:  fileID,
		pub:     pub,
		updates: make(chan update, 1),
		done:    make(chan struct{}),
	}
	go t.run()
	return t
}

// SetTarget is called by the worker; it never blocks. A pending, not-yet
// picked-up update is overwritten (latest-wins).
func (t *Tracker) SetTarget(progress int, state models.FileState, message string, etaMillis int) {
	t.setTarget(progress, state, message, etaMillis, false)
}

// Finish signals the job reached a terminal state; the agent fast-drains
// to the final value, emits one terminal event, then stops.
func (t *Tracker) Finish(progress int, state models.FileState, message string) {
	t.setTarget(progress, state, message, 0, true)
}

func (t *Tracker) setTarget(progress int, state models.FileState, message string, etaMillis int, terminal bool) {
	u := update{target: progress, state: state, message: message, etaMillis: etaMillis, terminal: terminal}
	select {
	case t.updates <- u:
	default:
		// Drain the stale pending update and replace it — latest wins.
		select {
		case <-t.updates:
		default:
		}
		select {
		case t.updates <- u:
		default:
		}
	}
}

// Stop tears down the agent; a terminal event set by Finish that the drain
// has not reached yet is emitted at once first. Idempotent and safe to call
// multiple times.
func (t *Tracker) Stop() {
	t.once.Do(func() { close(t.done) })
}

func (t *Tracker) run() {
	current := 0
	state := models.StateProcessing
	message := ""
	target := 0
	etaMillis := 0
	fastDrain := false
	lastEmittedProgress := -1
	var lastEmittedState models.FileState
	terminalSeen := false
	var terminalState models.FileState

	emit := func() {
		if current == lastEmittedProgress && state == lastEmittedState {
			return
		}
		lastEmittedProgress = current
		lastEmittedState = state
		t.pub.Publish(models.ProgressEvent{FileID: t.fileID, State: state, Progress: current, Message: message})
	}

	// flushTerminal runs when Stop arrives: a terminal update that Finish
	// queued, or that the drain has not reached yet, is emitted at once.
	flushTerminal := func() {
		select {
		case u := <-t.updates:
			if u.terminal {
				terminalSeen, target, terminalState, message = true, u.target, u.state, u.message
			}
		default:
		}
		if terminalSeen {
			current, state = target, terminalState
			emit()
		}
	}

	for {
		select {
		case <-t.done:
			flushTerminal()
			return
		case u := <-t.updates:
			target = u.target
			if u.message != "" {
				message = u.message
			}
			if u.state != "" && !u.terminal {
				if u.state != state {
					fastDrain = true
				}
				state = u.state
			}
			etaMillis = u.etaMillis
			if u.terminal {
				fastDrain = true
				terminalSeen = true
				terminalState = u.state
			}
		default:
		}

		if current < target {
			current++
			emit()
		} else if terminalSeen && current >= target {
			current = target
			state = terminalState
			emit()
			return
		}

		step := stepDelay(fastDrain, etaMillis, target-current)
		timer := time.NewTimer(step)
		select {
		case <-t.done:
			timer.Stop()
			flushTerminal()
			return
		case u := <-t.updates:
			timer.Stop()
			target = u.target
			if u.message != "" {
				message = u.message
			}
			if u.state != "" && !u.terminal {
				if u.state != state {
					fastDrain = true
				}
				state = u.state
			}
			etaMillis = u.etaMillis
			if u.terminal {
				fastDrain = true
				terminalSeen = true
				terminalState = u.state
			}
		case <-timer.C:
		}
	}
}

func stepDelay(fastDrain bool, etaMillis, remaining int) time.Duration {
	if fastDrain {
		return fastDrainStep
	}
	if remaining <= 0 {
		remaining = 1
	}
	d := time.Duration(etaMillis/remaining) * time.Millisecond
	if d < minStep {
		return minStep
	}
	if d > maxStep {
		return maxStep
	}
	return d
}
