package push

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

// connection represents a single staff WebSocket session. A connection
// receives no events until the client has sent "identify"; the binding is
// connection-scoped, so a reconnecting client must identify again.
type connection struct {
	viewerID int64
	conn     *websocket.Conn
	send     chan []byte

	mu         sync.Mutex
	identified bool
	rooms      map[string]bool
}

func (c *connection) inRoom(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identified && c.rooms[room]
}

func (c *connection) identify() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identified = true
	c.rooms[RoomStaff] = true
	c.rooms[ViewerRoom(c.viewerID)] = true
}

// Hub manages all active staff connections and routes events to rooms.
type Hub struct {
	mu    sync.RWMutex
	conns map[*connection]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[*connection]struct{}),
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		close(c.send)
	}
}

// ConnCount reports the number of live connections.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Publish sends the event to every identified connection in its room.
// Undeliverable events are dropped, never queued.
func (h *Hub) Publish(ev *Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("push: marshal event type=%s: %v", ev.Type, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if !c.inRoom(ev.Room) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client too slow — skip
		}
	}
}

// ServeWS registers the connection and runs its read/write loops. Blocks
// until the client disconnects.
func (h *Hub) ServeWS(conn *websocket.Conn, viewerID int64) {
	c := &connection{
		viewerID: viewerID,
		conn:     conn,
		send:     make(chan []byte, 64),
		rooms:    make(map[string]bool),
	}

	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var m struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &m); err != nil {
			continue
		}

		switch m.Type {
		case "identify":
			c.identify()
			c.reply(map[string]any{"type": "identified", "viewer_id": c.viewerID})
		case "ping":
			c.reply(map[string]any{"type": "pong"})
		}
	}
}

func (c *connection) reply(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
