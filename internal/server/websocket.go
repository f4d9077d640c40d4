package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/copperline/docflow/pkg/log"
)

const (
	writeWait    = 10 * time.Second
	pingPeriod   = 30 * time.Second
	wsBufferSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket upgrades the connection and streams invocation lifecycle
// events until the client disconnects
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", log.Error(err))
		return
	}

	ch, cancel := s.hub.Subscribe()

	go func() {
		defer cancel()
		defer func() { _ = conn.Close() }()

		// Discard client frames; the stream is one-way. Reading also
		// surfaces the close frame that ends the writer below
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				deadline := time.Now().Add(writeWait)
				_ = conn.SetWriteDeadline(deadline)
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-ticker.C:
				deadline := time.Now().Add(writeWait)
				_ = conn.SetWriteDeadline(deadline)
				if err := conn.WriteMessage(
					websocket.PingMessage, nil,
				); err != nil {
					return
				}
			}
		}
	}()
}
