package ginserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	chatsvc "hostelmarket/internal/app/services/chat"
	domainchat "hostelmarket/internal/domain/chat"
	domainuser "hostelmarket/internal/domain/user"
	"hostelmarket/internal/infra/realtime"
)

const pongWait = 60 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Bearer-token auth happens before the upgrade; browser origins vary
	// across deployments, so the token is the trust boundary.
	CheckOrigin: func(*http.Request) bool { return true },
}

type WSHandler struct {
	Hub    *realtime.Hub
	Chat   *chatsvc.Service
	Logger *slog.Logger
}

// clientFrame is what a connected session may send: join/leave a
// conversation view. Everything else flows through the HTTP API.
type clientFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

type ackFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Serve upgrades the request and runs the read loop until the socket
// closes. Join requests are checked against conversation membership, so a
// session can never subscribe to someone else's thread.
func (h WSHandler) Serve(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("websocket upgrade failed", "user_id", p.ID, "error", err)
		}
		return
	}

	connection := realtime.NewConnection(p.ID, ws)
	h.Hub.Attach(connection)
	defer h.Hub.Detach(connection)

	h.sendAck(connection, ackFrame{Type: "connected"})

	ws.SetReadLimit(4096)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.sendAck(connection, ackFrame{Type: "error", Error: "invalid frame"})
			continue
		}
		h.handleFrame(c, connection, p, frame)
	}
}

func (h WSHandler) handleFrame(c *gin.Context, connection *realtime.Connection, p principal, frame clientFrame) {
	conversationID := strings.TrimSpace(frame.ConversationID)
	switch frame.Type {
	case "join":
		if conversationID == "" {
			h.sendAck(connection, ackFrame{Type: "error", Error: "conversation_id is required"})
			return
		}
		if _, err := h.Chat.Conversation(c.Request.Context(), domainchat.ConversationID(conversationID), domainuser.ID(p.ID)); err != nil {
			h.sendAck(connection, ackFrame{Type: "error", ConversationID: conversationID, Error: "cannot join conversation"})
			return
		}
		h.Hub.Join(conversationID, connection)
		h.sendAck(connection, ackFrame{Type: "joined", ConversationID: conversationID})
	case "leave":
		if conversationID == "" {
			return
		}
		h.Hub.Leave(conversationID, connection)
		h.sendAck(connection, ackFrame{Type: "left", ConversationID: conversationID})
	default:
		h.sendAck(connection, ackFrame{Type: "error", Error: "unknown frame type"})
	}
}

func (h WSHandler) sendAck(connection *realtime.Connection, frame ackFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	_ = connection.Send(payload)
}
