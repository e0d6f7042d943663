package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SessionHooks lets the host attach per-session lifecycle behavior, such as
// starting and stopping the unread-count poller.
type SessionHooks struct {
	OnConnect    func(userID string)
	OnDisconnect func(userID string)
}

// HandleWebSocket upgrades the request and attaches the session to the hub.
// The caller has already authenticated the user.
func HandleWebSocket(c echo.Context, hub *Hub, userID string, hooks SessionHooks) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
	}

	hub.register <- client

	client.writeJSON(Event{
		Type:    EventTypeConnected,
		Message: "WebSocket connection established",
		UserID:  userID,
	})

	if hooks.OnConnect != nil {
		hooks.OnConnect(userID)
	}

	// Keep the session alive until the peer goes away.
	go func() {
		defer func() {
			hub.unregister <- client
			if hooks.OnDisconnect != nil {
				hooks.OnDisconnect(userID)
			}
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	return nil
}
