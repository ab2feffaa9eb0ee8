package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// wsWriteTimeout is the deadline for a single write to a client.
	wsWriteTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxClientMessageSize caps inbound frames; clients only send control frames.
	maxClientMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// allow all origins; apply CORS at the reverse proxy
	CheckOrigin: func(r *http.Request) bool { return true },
}

// hub tracks WebSocket clients so they can be closed on shutdown.
type hub struct {
	srv *Server

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// wsClient is one connected WebSocket client.
type wsClient struct {
	conn *websocket.Conn

	// ctx ends when the client disconnects or the hub closes it.
	ctx    context.Context
	cancel context.CancelFunc
}

func newHub(srv *Server) *hub {
	return &hub{
		srv:     srv,
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and streams events to
// the client. The current value of each stream is sent immediately on
// connect. Blocks until the connection closes.
func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &wsClient{conn: conn, ctx: ctx, cancel: cancel}
	h.register(c)
	defer h.unregister(c)

	f := h.srv.subscribe()
	defer f.close()

	go c.readPump()
	c.writePump(f, h.srv) // blocks until the connection or hub closes
}

// Count returns the number of currently connected clients.
func (h *hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) unregister(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.cancel()
}

// closeAll stops every client's write loop, which sends a close frame.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.cancel()
	}
}

// writePump forwards feed events to the connection and sends periodic ping
// frames. It owns all writes to conn.
func (c *wsClient) writePump(f *feed, srv *Server) {
	defer func() { _ = c.conn.Close() }()

	events := make(chan Event)
	go func() {
		defer close(events)
		for {
			ev, ok := f.next(c.ctx)
			if !ok {
				return
			}
			select {
			case events <- ev:
			case <-c.ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				// client gone or hub shutting down
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			msg, err := json.Marshal(ev)
			if err != nil {
				srv.logger.Error("failed to encode websocket event", "event", ev.Event, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.cancel()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. It cancels the client when the connection
// closes.
func (c *wsClient) readPump() {
	defer c.cancel()
	c.conn.SetReadLimit(maxClientMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
