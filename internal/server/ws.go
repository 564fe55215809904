package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait = 2 * time.Second

	// sendBuffer is how many events may wait for a slow client before it is dropped.
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// client is one websocket connection with its own writer goroutine.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writeLoop() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			// The read loop sees the closed conn and unregisters the client.
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

// EventHub broadcasts click events to websocket clients. Broadcast never
// waits on the network.
type EventHub struct {
	mu      sync.Mutex
	clients map[*client]bool
	closed  bool
}

// NewEventHub creates an EventHub with no clients.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*client]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.clients[c] = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writeLoop()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
	<-done
}

// removeLocked unregisters c and stops its writer. h.mu must be held.
func (h *EventHub) removeLocked(c *client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Broadcast queues v as JSON for every connected client. A client whose
// queue is full is disconnected.
func (h *EventHub) Broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("Dropping slow websocket client")
			h.removeLocked(c)
			c.conn.Close()
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		h.removeLocked(c)
		c.conn.Close()
	}
}
