// Package chatpush implements the live-push mirror of spec §4.10's chat
// rooms: REST remains the authoritative write path (a message only exists
// once internal/storage commits it), this package just fans the committed
// row out to any client currently subscribed to that room over a
// WebSocket. Grounded on the teacher's internal/rpc/websocket.go
// WSHub/WSClient pattern, adapted from a flat, type-subscribed broadcast
// hub to one scoped per chat room.
package chatpush

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nyx-testnet/nyx-gateway/internal/storage"
	"github.com/nyx-testnet/nyx-gateway/pkg/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is the envelope pushed to a subscribed client for one new message.
type Event struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	Message   *storage.ChatMessage `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Client is one connected, room-scoped subscriber.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	rooms  map[string]bool
	mu     sync.RWMutex
	hub    *Hub
}

// Hub fans out NewMessage events to every client subscribed to the
// matching room. One hub serves the whole gateway process.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	log        *logging.Logger
	mu         sync.RWMutex
}

// NewHub builds an idle Hub; call Run in its own goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        logging.GetDefault().Component("chatpush"),
	}
}

// Run drives the hub's event loop until ctx-less process shutdown; it is
// meant to run for the lifetime of the process in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("chat client connected", "clients", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Debug("chat client disconnected", "clients", len(h.clients))

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Error("failed to marshal chat event", "error", err)
				continue
			}
			h.mu.RLock()
			for client := range h.clients {
				client.mu.RLock()
				subscribed := client.rooms[event.RoomID]
				client.mu.RUnlock()
				if !subscribed {
					continue
				}
				select {
				case client.send <- data:
				default:
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					close(client.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewMessage enqueues a broadcast of msg to every client subscribed to
// roomID. It never blocks the caller (the committing HTTP handler): a
// full broadcast channel drops the push, since REST remains authoritative
// and a client can always re-fetch history.
func (h *Hub) NewMessage(roomID string, msg *storage.ChatMessage) {
	event := &Event{Type: "chat_message", RoomID: roomID, Message: msg, Timestamp: time.Now().Unix()}
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("chat broadcast channel full, dropping push", "room_id", roomID)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// subscription is the client->server control message used to join/leave
// rooms after the socket is open.
type subscription struct {
	Action string   `json:"action"` // "subscribe" or "unsubscribe"
	Rooms  []string `json:"rooms"`
}

// HandleWS upgrades r to a WebSocket and registers a new room-scoped
// client on h. Callers wire this into their HTTP mux at the chat push
// endpoint.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("chat websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn:  conn,
		send:  make(chan []byte, 256),
		rooms: make(map[string]bool),
		hub:   h,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("chat websocket read error", "error", err)
			}
			break
		}
		var sub subscription
		if err := json.Unmarshal(message, &sub); err == nil {
			c.handleSubscription(&sub)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleSubscription(sub *subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, room := range sub.Rooms {
		switch sub.Action {
		case "subscribe":
			c.rooms[room] = true
		case "unsubscribe":
			delete(c.rooms, room)
		}
	}
}
