package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingora/lingora_backend/models"
)

// dialTestClient upgrades an in-process connection and registers it with the
// hub, returning the peer side and a cleanup func.
func dialTestClient(t *testing.T, hub *Hub, userID string) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.register <- &Client{UserID: userID, Conn: conn}
	}))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	waitForRegistration(t, hub, userID)

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func waitForRegistration(t *testing.T, hub *Hub, userID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		_, ok := hub.clients[userID]
		hub.mu.RUnlock()
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("client was never registered")
}

func TestSendToUserNotConnected(t *testing.T) {
	hub := NewHub()
	assert.Error(t, hub.SendToUser("nobody", Event{Type: EventTypeNotification}))
}

func TestHubConcurrentWrites(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn, cleanup := dialTestClient(t, hub, "user-1")
	defer cleanup()

	// The live channel and the unread poller write from separate
	// goroutines; every event must still arrive intact.
	const perChannel = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < perChannel; i++ {
			hub.NotifyUser("user-1", &models.Notification{ID: "n-1", Title: "hello"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < perChannel; i++ {
			hub.SignalUnread("user-1", i+1)
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	received := make(map[string]int)
	for i := 0; i < perChannel*2; i++ {
		var event Event
		require.NoError(t, conn.ReadJSON(&event))
		received[event.Type]++
	}
	wg.Wait()

	assert.Equal(t, perChannel, received[EventTypeNotification])
	assert.Equal(t, perChannel, received[EventTypeUnreadCount])
}
