package hub

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/coder/websocket"
)

// Go Pattern: grounded on zfogg-sidechain's internal/websocket Client
// ReadPump/WritePump pair — one goroutine reads inbound control messages,
// one drains the session's outbound queue, both scoped to ctx so a
// disconnect tears down cleanly.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

type inboundMessage struct {
	Type   string `json:"type"`
	FileID string `json:"file_id"`
}

// ServeConn attaches a session backed by conn to the hub and blocks until
// the connection closes, running the read and write pumps. It is meant to
// be called directly from the HTTP handler goroutine for /api/voice/ws.
func (h *Hub) ServeConn(ctx context.Context, conn *websocket.Conn, sessionID string) {
	s := NewSession(sessionID)
	h.Attach(s)
	defer h.Detach(s)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go h.writePump(ctx, conn, s)

	hello, _ := json.Marshal(map[string]string{"type": "connected"})
	s.Send(hello)

	conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, readCancel := context.WithTimeout(ctx, pongWait)
		_, data, err := conn.Read(readCtx)
		readCancel()
		if err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure &&
				websocket.CloseStatus(err) != websocket.StatusGoingAway {
				log.Printf("⚠️  hub: read error for session %s: %v", sessionID, err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // malformed control messages are ignored silently
		}

		switch msg.Type {
		case "subscribe":
			if msg.FileID == "" {
				continue
			}
			h.Subscribe(s, msg.FileID)
			ack, _ := json.Marshal(map[string]string{"type": "subscribed", "file_id": msg.FileID})
			s.Send(ack)
		default:
			// only "subscribe" need be honoured; everything else is ignored
		}
	}
}

func (h *Hub) writePump(ctx context.Context, conn *websocket.Conn, s *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "server shutdown")
			return

		case payload, ok := <-s.Outbound():
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "closing")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
