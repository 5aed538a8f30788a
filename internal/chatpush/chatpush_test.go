package chatpush

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nyx-testnet/nyx-gateway/internal/storage"
)

func TestHubDropsPushWithNoSubscribers(t *testing.T) {
	h := NewHub()
	go h.Run()
	// No clients registered: NewMessage must not block or panic.
	h.NewMessage("room-1", &storage.ChatMessage{MessageID: "m1", RoomID: "room-1"})
	time.Sleep(10 * time.Millisecond)
	if h.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", h.ClientCount())
	}
}

func TestHandleWSRoundTrip(t *testing.T) {
	h := NewHub()
	go h.Run()

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	defer srv.Close()

	wsURL := "ws" + srv.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	// give the hub a moment to register the client before subscribing.
	time.Sleep(20 * time.Millisecond)

	if err := conn.WriteJSON(subscription{Action: "subscribe", Rooms: []string{"room-1"}}); err != nil {
		t.Fatalf("write subscription error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	h.NewMessage("room-1", &storage.ChatMessage{MessageID: "m1", RoomID: "room-1", Body: "hi"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("expected pushed event, got error: %v", err)
	}
	if evt.RoomID != "room-1" || evt.Message.MessageID != "m1" {
		t.Fatalf("unexpected event: %+v", evt)
	}
}
