package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lingora/lingora_backend/models"
)

// Event types sent over the live channel
const (
	EventTypeConnected    = "connected"
	EventTypeNotification = "notification"
	EventTypeUnreadCount  = "unread_count"
)

// Event is a message sent over a WebSocket session.
type Event struct {
	Type         string      `json:"type"`
	Message      string      `json:"message,omitempty"`
	Notification interface{} `json:"notification,omitempty"`
	UnreadCount  int         `json:"unreadCount,omitempty"`
	UserID       string      `json:"userId,omitempty"`
}

// Client represents a connected WebSocket session.
type Client struct {
	UserID string
	Conn   *websocket.Conn

	// Guards Conn writes: the live channel and the unread poller write
	// from different goroutines and the connection allows one writer.
	writeMu sync.Mutex
}

func (c *Client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// Hub maintains the set of active sessions and routes notification events to
// them. One session per user: a newer connection replaces the older one.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = client
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.UserID]; ok && current == client {
				delete(h.clients, client.UserID)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// SendToUser sends an event to a specific user's session.
func (h *Hub) SendToUser(userID string, event Event) error {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user not connected")
	}

	return client.writeJSON(event)
}

// NotifyUser delivers a new notification to the user's session if one is
// connected. Best effort: a disconnected user is not an error.
func (h *Hub) NotifyUser(userID string, notification *models.Notification) {
	_ = h.SendToUser(userID, Event{
		Type:         EventTypeNotification,
		Notification: notification,
	})
}

// SignalUnread tells the user's session that the unread count increased.
func (h *Hub) SignalUnread(userID string, count int) {
	_ = h.SendToUser(userID, Event{
		Type:        EventTypeUnreadCount,
		UnreadCount: count,
	})
}
