package web

import (
	"sync"

	"github.com/gorilla/websocket"
)

// message is one outbound WebSocket payload. Rendered frames travel as
// binary messages; control and state updates travel as JSON text.
type message struct {
	binary bool
	data   []byte
}

// Client represents a connected WebSocket viewer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan message
}

// Hub manages WebSocket client connections and broadcasts.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Client can't keep up with the frame rate; drop it.
					go func(c *Client) {
						h.unregister <- c
					}(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a JSON text message to all connected clients.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- message{data: data}:
	default:
		// Buffer full, drop message
	}
}

// BroadcastBinary sends a binary frame to all connected clients.
func (h *Hub) BroadcastBinary(data []byte) {
	select {
	case h.broadcast <- message{binary: true, data: data}:
	default:
		// Frames are ephemeral; a dropped one is replaced by the next.
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writePump pumps messages from the hub to the WebSocket connection.
func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()

	for msg := range c.send {
		kind := websocket.TextMessage
		if msg.binary {
			kind = websocket.BinaryMessage
		}
		if err := c.conn.WriteMessage(kind, msg.data); err != nil {
			return
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub.
func (c *Client) readPump(onMessage func([]byte)) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if onMessage != nil {
			onMessage(data)
		}
	}
}
