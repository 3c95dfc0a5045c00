package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/pageforge/pageforge/internal/logging"
)

// ReloadHub tracks connected browsers and tells them to refresh after a
// rebuild. Connections are broadcast-only; nothing a client sends is
// read beyond control frames.
type ReloadHub struct {
	log logging.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]context.Context
}

// NewReloadHub returns an empty hub.
func NewReloadHub(log logging.Logger) *ReloadHub {
	return &ReloadHub{
		log:     log.WithComponent("reload"),
		clients: make(map[*websocket.Conn]context.Context),
	}
}

// ServeWS upgrades a request and registers the connection.
func (h *ReloadHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	// CloseRead discards client frames and yields a context that ends
	// when the connection does.
	ctx := conn.CloseRead(r.Context())

	h.mu.Lock()
	h.clients[conn] = ctx
	h.mu.Unlock()
	h.log.Debug("browser connected")

	<-ctx.Done()

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "")
	h.log.Debug("browser disconnected")
}

// Broadcast tells every connected browser to reload.
func (h *ReloadHub) Broadcast() {
	h.mu.Lock()
	conns := make(map[*websocket.Conn]context.Context, len(h.clients))
	for c, ctx := range h.clients {
		conns[c] = ctx
	}
	h.mu.Unlock()

	for conn, ctx := range conns {
		if err := conn.Write(ctx, websocket.MessageText, []byte("reload")); err != nil {
			h.log.Debug("reload notify failed", "error", err)
		}
	}
}
