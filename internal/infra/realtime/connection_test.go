package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newConnectionPair dials a real websocket through an httptest server and
// returns the server-side end wrapped in a Connection.
func newConnectionPair(t *testing.T, userID string) (*Connection, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	accepted := make(chan *websocket.Conn, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- ws
	}))
	t.Cleanup(server.Close)

	url := strings.Replace(server.URL, "http://", "ws://", 1)
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case ws := <-accepted:
		return NewConnection(userID, ws), client
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the websocket")
		return nil, nil
	}
}

func TestConnectionDeliversPayload(t *testing.T) {
	conn, client := newConnectionPair(t, "u1")
	conn.Start()

	if err := conn.Send([]byte(`{"type":"message"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(payload) != `{"type":"message"}` {
		t.Errorf("payload = %q", payload)
	}
}

func TestConnectionSendAfterClose(t *testing.T) {
	conn, _ := newConnectionPair(t, "u1")
	conn.Start()

	conn.Close(websocket.CloseNormalClosure, "bye")

	if err := conn.Send([]byte("hello")); err == nil {
		t.Fatal("send after close should fail")
	}
	// Close is idempotent, repeated calls must not blow up.
	conn.Close(websocket.CloseNormalClosure, "bye")
}

func TestConnectionSendRacingClose(t *testing.T) {
	conn, _ := newConnectionPair(t, "u1")
	conn.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = conn.Send([]byte("hello"))
			}
		}()
	}
	conn.Close(websocket.CloseGoingAway, "replaced")
	wg.Wait()

	if err := conn.Send([]byte("hello")); err == nil {
		t.Fatal("send after close should fail")
	}
}
