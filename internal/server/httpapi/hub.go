package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/ankravcenko/medikeep/internal/logging"
	"github.com/ankravcenko/medikeep/internal/server/services"
	"github.com/coder/websocket"
)

// feedConn is one websocket subscriber. Frames are queued on send; a
// subscriber that cannot keep up is dropped and recovers through the next
// snapshot pull.
type feedConn struct {
	userID string
	send   chan []byte
}

// Hub fans document change events out to connected clients over
// websockets. It implements services.Notifier; events reach only the
// connections of the users listed as recipients.
type Hub struct {
	log logging.Logger

	mu    sync.RWMutex
	conns map[*feedConn]struct{}
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{log: log, conns: make(map[*feedConn]struct{})}
}

// Notify implements services.Notifier. Marshaling happens once per event;
// delivery to each connection is non-blocking.
func (h *Hub) Notify(e services.Event) {
	data, err := json.Marshal(eventToDTO(e))
	if err != nil {
		h.log.Error(context.Background(), "marshaling change event", "error", err)
		return
	}
	allowed := make(map[string]bool, len(e.Recipients))
	for _, id := range e.Recipients {
		allowed[id] = true
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if !allowed[c.userID] {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Queue full; the connection's write loop will close it.
		}
	}
}

func (h *Hub) register(c *feedConn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *feedConn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// serveWS upgrades the request and streams change events until the client
// disconnects. The caller has already authenticated the request.
func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c := &feedConn{userID: uid, send: make(chan []byte, 64)}
	h.register(c)
	defer h.unregister(c)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads are discarded; the feed is one-way. The read loop exists to
	// notice the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}
