package realtime

import (
	"sync"
	"testing"
)

// fakeClient records payloads and close calls for hub assertions.
type fakeClient struct {
	mu        sync.Mutex
	sessionID string
	userID    string
	sent      [][]byte
	closeCode int
	closed    bool
	started   bool
}

func newFakeClient(sessionID, userID string) *fakeClient {
	return &fakeClient{sessionID: sessionID, userID: userID}
}

func (c *fakeClient) SessionID() string { return c.sessionID }
func (c *fakeClient) UserID() string    { return c.userID }

func (c *fakeClient) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeClient) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCode = code
}

func (c *fakeClient) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
}

func (c *fakeClient) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeClient) lastPayload() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}

func (c *fakeClient) closeState() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeCode
}

func TestAttachStartsAndReplaces(t *testing.T) {
	hub := NewHub()
	first := newFakeClient("s1", "u1")
	hub.Attach(first)
	if !first.started {
		t.Fatal("attach should start the client's write loop")
	}

	second := newFakeClient("s2", "u1")
	hub.Attach(second)

	closed, code := first.closeState()
	if !closed || code != 4001 {
		t.Fatalf("previous session should close with 4001, got closed=%v code=%d", closed, code)
	}
	if !hub.NotifyUser("u1", []byte("hi")) {
		t.Fatal("notify should reach the new session")
	}
	if first.sentCount() != 0 || second.sentCount() != 1 {
		t.Fatalf("payload routed to wrong session: first=%d second=%d", first.sentCount(), second.sentCount())
	}
}

func TestJoinLeaveAndInRoom(t *testing.T) {
	hub := NewHub()
	client := newFakeClient("s1", "u1")
	hub.Attach(client)

	hub.Join("c1", client)
	if !hub.InRoom("c1", "u1") {
		t.Fatal("expected u1 in room c1")
	}
	if hub.InRoom("c2", "u1") {
		t.Fatal("u1 should not be in c2")
	}

	hub.Leave("c1", client)
	if hub.InRoom("c1", "u1") {
		t.Fatal("leave should remove room membership")
	}
}

func TestJoinIgnoresUnattachedClient(t *testing.T) {
	hub := NewHub()
	stranger := newFakeClient("s9", "u9")
	hub.Join("c1", stranger)
	if hub.InRoom("c1", "u9") {
		t.Fatal("unattached clients must not join rooms")
	}
}

func TestBroadcastReachesRoomMembersOnly(t *testing.T) {
	hub := NewHub()
	inside := newFakeClient("s1", "u1")
	outside := newFakeClient("s2", "u2")
	hub.Attach(inside)
	hub.Attach(outside)
	hub.Join("c1", inside)

	delivered := hub.Broadcast("c1", []byte("payload"))
	if delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}
	if inside.sentCount() != 1 {
		t.Fatalf("room member should receive payload, got %d", inside.sentCount())
	}
	if outside.sentCount() != 0 {
		t.Fatalf("non-member must not receive payload, got %d", outside.sentCount())
	}
}

func TestDetachClearsRooms(t *testing.T) {
	hub := NewHub()
	client := newFakeClient("s1", "u1")
	hub.Attach(client)
	hub.Join("c1", client)
	hub.Join("c2", client)

	hub.Detach(client)
	if hub.InRoom("c1", "u1") || hub.InRoom("c2", "u1") {
		t.Fatal("detach should drop all room memberships")
	}
	if hub.NotifyUser("u1", []byte("hi")) {
		t.Fatal("detached user should be unreachable")
	}
}

func TestCloseTerminatesSessions(t *testing.T) {
	hub := NewHub()
	a := newFakeClient("s1", "u1")
	b := newFakeClient("s2", "u2")
	hub.Attach(a)
	hub.Attach(b)

	hub.Close()
	for _, client := range []*fakeClient{a, b} {
		closed, code := client.closeState()
		if !closed || code != 1001 {
			t.Fatalf("session %s should close with 1001, got closed=%v code=%d", client.sessionID, closed, code)
		}
	}
	if hub.NotifyUser("u1", []byte("hi")) {
		t.Fatal("closed hub should track no sessions")
	}
}
