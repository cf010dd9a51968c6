// Package hub is the Broadcast Hub: it fans out ProgressEvents from many
// producers (Tracker agents) to many clients (websocket sessions), with a
// global subscription, per-file subscriptions, and per-session
// de-duplication so a client never sees a progress regression or a
// duplicate tick.
//
// Go Pattern: grounded on zfogg-sidechain's internal/websocket Hub — a
// single hub goroutine owns register/unregister/publish channels and the
// client maps, so no separate mutex is needed around subscription state.
// Unlike that hub (which also does per-user unicast across multiple
// goroutines and therefore needs a sync.RWMutex), this one only needs
// broadcast + per-file fan-out, so everything funnels through the one
// loop goroutine instead.
package hub

import (
	"encoding/json"
	"log"
	"sync/atomic"

	"github.com/voicescribe/transcription-core/internal/models"
)

// sendBufferSize bounds each session's outbound queue — a full queue drops
// the event for that session (slow-consumer protection), never blocking Publish.
const sendBufferSize = 64

// Metrics tracks hub-wide connection and event counters.
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	EventsPublished    atomic.Int64
	EventsDropped      atomic.Int64
}

type lastSeen struct {
	progress int
	state    models.FileState
}

// Session is one connected client's view of the Hub.
type Session struct {
	id   string
	send chan []byte

	subscribed map[string]struct{} // file IDs this session wants
	lastSeen   map[string]lastSeen // per-file de-dup state
}

// Send delivers a raw payload to this session's outbound queue, dropping it
// if the queue is full rather than blocking the publisher.
func (s *Session) Send(payload []byte) bool {
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// Outbound returns the channel a websocket write-pump should drain.
func (s *Session) Outbound() <-chan []byte { return s.send }

type registerReq struct {
	session *Session
}

type unregisterReq struct {
	session *Session
}

type subscribeReq struct {
	session *Session
	fileID  string
}

type unsubscribeReq struct {
	session *Session
	fileID  string
}

// Hub fans out ProgressEvents to attached sessions.
type Hub struct {
	register   chan registerReq
	unregister chan unregisterReq
	subscribe  chan subscribeReq
	unsubscribe chan unsubscribeReq
	publish    chan models.ProgressEvent

	sessions map[*Session]struct{}
	metrics  *Metrics

	done chan struct{}
}

// New creates a Hub. Call Run in its own goroutine to start the event loop.
func New() *Hub {
	return &Hub{
		register:    make(chan registerReq, 64),
		unregister:  make(chan unregisterReq, 64),
		subscribe:   make(chan subscribeReq, 64),
		unsubscribe: make(chan unsubscribeReq, 64),
		publish:     make(chan models.ProgressEvent, 256),
		sessions:    make(map[*Session]struct{}),
		metrics:     &Metrics{},
		done:        make(chan struct{}),
	}
}

// NewSession creates a session not yet attached to the hub.
func NewSession(id string) *Session {
	return &Session{
		id:         id,
		send:       make(chan []byte, sendBufferSize),
		subscribed: make(map[string]struct{}),
		lastSeen:   make(map[string]lastSeen),
	}
}

// Metrics returns a read-only snapshot-capable metrics handle.
func (h *Hub) Metrics() *Metrics { return h.metrics }

// Run is the hub's single event loop; all mutation of session state happens
// here, so no lock is needed anywhere else in this package.
func (h *Hub) Run() {
	log.Println("🔌 broadcast hub starting")
	for {
		select {
		case <-h.done:
			log.Println("🔌 broadcast hub shutting down")
			return

		case req := <-h.register:
			h.sessions[req.session] = struct{}{}
			h.metrics.TotalConnections.Add(1)
			h.metrics.ActiveConnections.Add(1)

		case req := <-h.unregister:
			if _, ok := h.sessions[req.session]; ok {
				delete(h.sessions, req.session)
				close(req.session.send)
				h.metrics.ActiveConnections.Add(-1)
			}

		case req := <-h.subscribe:
			req.session.subscribed[req.fileID] = struct{}{}

		case req := <-h.unsubscribe:
			delete(req.session.subscribed, req.fileID)
			delete(req.session.lastSeen, req.fileID)

		case ev := <-h.publish:
			h.deliver(ev)
		}
	}
}

// Shutdown stops the event loop. Sessions are not individually notified;
// their websocket connections are closed by the Request Surface.
func (h *Hub) Shutdown() {
	close(h.done)
}

// Attach registers a new session. Idempotent from the caller's perspective:
// calling Attach twice with the same Session just re-registers it.
func (h *Hub) Attach(s *Session) {
	select {
	case h.register <- registerReq{session: s}:
	case <-h.done:
	}
}

// Detach unregisters a session and releases its outbound queue.
func (h *Hub) Detach(s *Session) {
	select {
	case h.unregister <- unregisterReq{session: s}:
	case <-h.done:
	}
}

// Subscribe adds a per-file subscription for s.
func (h *Hub) Subscribe(s *Session, fileID string) {
	select {
	case h.subscribe <- subscribeReq{session: s, fileID: fileID}:
	case <-h.done:
	}
}

// Unsubscribe removes a per-file subscription for s.
func (h *Hub) Unsubscribe(s *Session, fileID string) {
	select {
	case h.unsubscribe <- unsubscribeReq{session: s, fileID: fileID}:
	case <-h.done:
	}
}

// Publish delivers ev to every attached session (global channel) and to
// every session subscribed to ev.FileID, each subject to its own
// per-file de-duplication.
func (h *Hub) Publish(ev models.ProgressEvent) {
	select {
	case h.publish <- ev:
	case <-h.done:
	}
}

// deliver fans ev out to every attached session — this is the hub's global
// channel. Per-file Subscribe/Unsubscribe state doesn't gate delivery here
// (every session already gets every event); it exists so the websocket
// wire contract's subscribe/subscribed handshake has somewhere to live.
// A session's lastSeen map gains an entry for every file it is sent events
// for; Unsubscribe drops that file's entry.
func (h *Hub) deliver(ev models.ProgressEvent) {
	h.metrics.EventsPublished.Add(1)

	payload, err := json.Marshal(wireEvent{
		Type:     "file_status",
		FileID:   ev.FileID,
		Status:   string(ev.State),
		Progress: ev.Progress,
		Message:  ev.Message,
	})
	if err != nil {
		log.Printf("⚠️  hub: failed to marshal event for %s: %v", ev.FileID, err)
		return
	}

	for s := range h.sessions {
		last, seen := s.lastSeen[ev.FileID]
		if seen && ev.Progress <= last.progress && ev.State == last.state {
			continue // invariant: clients never see regressions or duplicate ticks
		}
		s.lastSeen[ev.FileID] = lastSeen{progress: ev.Progress, state: ev.State}

		if !s.Send(payload) {
			h.metrics.EventsDropped.Add(1)
			// A dropped event leaves the session's lastSeen already advanced,
			// so the next accepted event re-synchronises it rather than
			// leaving the session stuck replaying an old regression.
		}
	}
}

type wireEvent struct {
	Type     string `json:"type"`
	FileID   string `json:"file_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
}
