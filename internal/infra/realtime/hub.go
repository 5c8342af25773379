package realtime

import (
	"sync"
)

// Client is one attached realtime session. *Connection is the production
// implementation.
type Client interface {
	SessionID() string
	UserID() string
	Send(payload []byte) error
	Close(code int, reason string)
}

// Starter is implemented by clients that own a write loop.
type Starter interface {
	Start()
}

// Hub coordinates realtime sessions and conversation rooms. A room holds
// the sessions that currently have that conversation view open; room
// membership drives both message fan-out and notification suppression.
type Hub struct {
	mu           sync.RWMutex
	sessions     map[string]Client            // sessionID -> client
	userSessions map[string]string            // userID -> sessionID
	rooms        map[string]map[string]Client // conversationID -> sessionID -> client
	sessionRooms map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]Client),
		userSessions: make(map[string]string),
		rooms:        make(map[string]map[string]Client),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

// Attach registers a client for its user. A previous session for the same
// user is swapped out and closed: one active socket per user.
func (h *Hub) Attach(client Client) {
	var previous Client

	h.mu.Lock()
	if existingID, ok := h.userSessions[client.UserID()]; ok {
		if existing := h.sessions[existingID]; existing != nil {
			previous = existing
			h.detachLocked(existingID)
		}
	}
	h.sessions[client.SessionID()] = client
	h.userSessions[client.UserID()] = client.SessionID()
	h.sessionRooms[client.SessionID()] = make(map[string]struct{})
	h.mu.Unlock()

	if starter, ok := client.(Starter); ok {
		starter.Start()
	}
	if previous != nil {
		previous.Close(4001, "session replaced")
	}
}

// Detach removes a client and all its room memberships.
func (h *Hub) Detach(client Client) {
	h.mu.Lock()
	h.detachLocked(client.SessionID())
	h.mu.Unlock()
}

// Join adds the client's session to the conversation room.
func (h *Hub) Join(conversationID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[client.SessionID()]; !ok {
		return
	}
	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[string]Client)
		h.rooms[conversationID] = room
	}
	room[client.SessionID()] = client

	memberships := h.sessionRooms[client.SessionID()]
	if memberships == nil {
		memberships = make(map[string]struct{})
		h.sessionRooms[client.SessionID()] = memberships
	}
	memberships[conversationID] = struct{}{}
}

// Leave removes the client's session from the conversation room. Other
// rooms held by the same session are unaffected.
func (h *Hub) Leave(conversationID string, client Client) {
	h.mu.Lock()
	h.leaveLocked(conversationID, client.SessionID())
	h.mu.Unlock()
}

// InRoom reports whether the user's active session has the conversation
// view open.
func (h *Hub) InRoom(conversationID, userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sessionID, ok := h.userSessions[userID]
	if !ok {
		return false
	}
	room := h.rooms[conversationID]
	if room == nil {
		return false
	}
	_, ok = room[sessionID]
	return ok
}

// Broadcast writes payload to every member of the conversation room and
// returns the delivered count.
func (h *Hub) Broadcast(conversationID string, payload []byte) int {
	h.mu.RLock()
	room := h.rooms[conversationID]
	members := make([]Client, 0, len(room))
	for _, client := range room {
		members = append(members, client)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, client := range members {
		if err := client.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// NotifyUser delivers payload to the user's active session, if any.
func (h *Hub) NotifyUser(userID string, payload []byte) bool {
	h.mu.RLock()
	sessionID, ok := h.userSessions[userID]
	if !ok {
		h.mu.RUnlock()
		return false
	}
	client := h.sessions[sessionID]
	h.mu.RUnlock()
	if client == nil {
		return false
	}
	return client.Send(payload) == nil
}

// Close terminates all tracked sessions and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]Client, 0, len(h.sessions))
	for _, client := range h.sessions {
		sessions = append(sessions, client)
	}
	h.sessions = make(map[string]Client)
	h.userSessions = make(map[string]string)
	h.rooms = make(map[string]map[string]Client)
	h.sessionRooms = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, client := range sessions {
		client.Close(1001, "hub shutdown")
	}
}

func (h *Hub) detachLocked(sessionID string) {
	client, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(h.sessions, sessionID)

	if current, ok := h.userSessions[client.UserID()]; ok && current == sessionID {
		delete(h.userSessions, client.UserID())
	}
	for roomID := range h.sessionRooms[sessionID] {
		h.leaveLocked(roomID, sessionID)
	}
	delete(h.sessionRooms, sessionID)
}

func (h *Hub) leaveLocked(conversationID, sessionID string) {
	room := h.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
	if memberships, ok := h.sessionRooms[sessionID]; ok {
		delete(memberships, conversationID)
	}
}
