// ws.go handles GET /api/voice/ws, the Broadcast Hub's websocket endpoint.
package handlers

import (
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WS handles GET /api/voice/ws, upgrading the connection and handing it to
// the Broadcast Hub for the lifetime of the socket.
func (h *Handler) WS(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: false,
		OriginPatterns:     h.Cfg.AllowedOrigins,
	})
	if err != nil {
		log.Printf("⚠️  ws: upgrade failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "websocket upgrade failed"})
		return
	}

	sessionID := uuid.New().String()
	h.Hub.ServeConn(c.Request.Context(), conn, sessionID)
}
