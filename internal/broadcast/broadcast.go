// Package broadcast fans out gate decisions to connected debug clients
// over a websocket, for live inspection of the evaluation pipeline
// without polling /alert?debug=1.
package broadcast

import (
	"encoding/json"
	"net/http"

	"github.com/ai-agentic-browser/internal/evaluation"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Decision is one symbol/mode outcome pushed to connected clients.
type Decision struct {
	Symbol     string                 `json:"symbol"`
	Mode       string                 `json:"mode"`
	Triggered  bool                   `json:"triggered"`
	SkipReason string                 `json:"skip_reason,omitempty"`
	Candidate  *evaluation.Candidate  `json:"candidate,omitempty"`
}

// Hub fans a stream of Decisions out to every connected client, buffering
// the most recent history for clients that connect mid-run.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan Decision
	history    *ringBuffer
}

func NewHub(historyCap int) *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Decision, 64),
		history:    newRingBuffer(historyCap),
	}
}

// Run drives the hub's event loop. It must be started in its own goroutine
// before ServeWS is used.
func (h *Hub) Run() {
	clients := make(map[*client]bool)
	for {
		select {
		case c := <-h.register:
			clients[c] = true
		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
			}
		case d := <-h.broadcast:
			h.history.push(d)
			encoded, err := json.Marshal(d)
			if err != nil {
				continue
			}
			for c := range clients {
				select {
				case c.send <- encoded:
				default:
					// Slow client: drop this tick rather than block the hub.
				}
			}
		}
	}
}

// Publish queues a decision for broadcast. Safe to call concurrently with
// Run; never blocks the evaluation pipeline beyond the channel's buffer.
func (h *Hub) Publish(d Decision) {
	select {
	case h.broadcast <- d:
	default:
		// Hub is backed up; drop rather than stall the caller.
	}
}

// ServeWS upgrades the request and registers the connection with the hub,
// replaying buffered history before switching the client to live ticks.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 256)}

	for _, d := range h.history.all() {
		encoded, err := json.Marshal(d)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, encoded); err != nil {
			conn.Close()
			return
		}
	}

	h.register <- c
	go c.writePump()
	go c.readPump(h)
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// ringBuffer keeps the last N decisions for late-connecting clients.
type ringBuffer struct {
	items []Decision
	cap   int
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = 50
	}
	return &ringBuffer{cap: capacity}
}

func (b *ringBuffer) push(d Decision) {
	b.items = append(b.items, d)
	if len(b.items) > b.cap {
		b.items = b.items[len(b.items)-b.cap:]
	}
}

func (b *ringBuffer) all() []Decision {
	out := make([]Decision, len(b.items))
	copy(out, b.items)
	return out
}
