package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/errs"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/middlewares"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/services"
	ws "github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/websocket"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
	handleWait   = 5 * time.Second
)

// WebSocketHandler owns the live connection lifecycle: upgrade, presence
// registration, the read/write pumps, and dispatch of inbound events. Each
// inbound event is handled on its own goroutine so a slow persistence call
// never stalls the read loop.
type WebSocketHandler struct {
	consultations *services.ConsultationService
	signaling     *services.SignalingService
	presence      *ws.Presence
	rooms         *ws.RoomManager
	upgrader      websocket.Upgrader
	maxMessage    int64
	log           zerolog.Logger
}

func NewWebSocketHandler(
	consultations *services.ConsultationService,
	signaling *services.SignalingService,
	presence *ws.Presence,
	rooms *ws.RoomManager,
	readBufferSize, writeBufferSize int,
	maxMessageSize int64,
	log zerolog.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		consultations: consultations,
		signaling:     signaling,
		presence:      presence,
		rooms:         rooms,
		maxMessage:    maxMessageSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // origin policy is enforced by the CORS layer in front
			},
		},
		log: log.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket is the WebSocket endpoint handler. MUST be protected by
// WebSocketAuthMiddleware.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	auth, err := middlewares.GetWebSocketAuth(c)
	if err != nil {
		h.log.Error().Err(err).Msg("missing authentication context")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(auth.UserID, conn)
	h.presence.Register(client)

	h.log.Info().
		Str("user_id", auth.UserID.String()).
		Str("connection_id", client.ID.String()).
		Msg("websocket connected")

	go h.writePump(client, conn)
	h.readPump(client, conn)
}

// readPump reads events from the socket and dispatches them. Its deferred
// teardown is the guaranteed cleanup path for abrupt disconnects: the
// connection leaves every room it subscribed to and its presence entry is
// removed. Attendance entries stay open so a reconnect resumes the same
// clinical record.
func (h *WebSocketHandler) readPump(client *ws.Client, conn *websocket.Conn) {
	defer func() {
		h.rooms.LeaveAll(client)
		h.presence.Unregister(client)
		client.Close()
		h.log.Info().
			Str("user_id", client.UserID.String()).
			Str("connection_id", client.ID.String()).
			Msg("websocket disconnected")
	}()

	conn.SetReadLimit(h.maxMessage)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var ev ws.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("user_id", client.UserID.String()).Msg("unexpected close")
			}
			return
		}
		go h.dispatch(client, ev)
	}
}

func (h *WebSocketHandler) dispatch(client *ws.Client, ev ws.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), handleWait)
	defer cancel()

	var err error
	switch ev.Type {
	case ws.EventRoomJoin:
		var p ws.JoinRoomPayload
		if err = json.Unmarshal(ev.Payload, &p); err == nil {
			err = h.consultations.JoinRoom(ctx, p.ConsultationID, client, p.RoomSecret)
		}

	case ws.EventRoomLeave:
		var p ws.LeaveRoomPayload
		if err = json.Unmarshal(ev.Payload, &p); err == nil {
			err = h.consultations.LeaveRoom(ctx, p.ConsultationID, client)
		}

	case ws.EventChatSend:
		var p ws.ChatSendPayload
		if err = json.Unmarshal(ev.Payload, &p); err == nil {
			_, err = h.consultations.AppendChatMessage(ctx, p.ConsultationID, client.UserID, p.Text)
		}

	case ws.EventCallOffer:
		var p ws.SignalPayload
		if err = json.Unmarshal(ev.Payload, &p); err == nil {
			err = h.signaling.RelayOffer(client.UserID, p)
		}

	case ws.EventCallAnswer:
		var p ws.SignalPayload
		if err = json.Unmarshal(ev.Payload, &p); err == nil {
			err = h.signaling.RelayAnswer(client.UserID, p)
		}

	case ws.EventCallICE:
		var p ws.SignalPayload
		if err = json.Unmarshal(ev.Payload, &p); err == nil {
			err = h.signaling.RelayICECandidate(client.UserID, p)
		}

	case ws.EventTyping:
		var p ws.TypingPayload
		if err = json.Unmarshal(ev.Payload, &p); err == nil {
			err = h.consultations.RelayTyping(p.ConsultationID, client.UserID)
		}

	case ws.EventPing:
		client.Enqueue(ws.NewEvent(ws.EventPong, struct{}{}))

	default:
		h.log.Warn().Str("type", ev.Type).Msg("unknown event type")
	}

	if err != nil {
		h.sendError(client, ev.Type, err)
	}
}

// sendError surfaces a rejected action as an error event on the connection
// with a machine-readable code.
func (h *WebSocketHandler) sendError(client *ws.Client, eventType string, err error) {
	client.Enqueue(ws.NewEvent(ws.EventError, ws.ErrorPayload{
		Code:    errorCode(err),
		Message: eventType + ": " + err.Error(),
	}))
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrForbidden):
		return "forbidden"
	case errors.Is(err, errs.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, errs.ErrConflict):
		return "conflict"
	case errors.Is(err, errs.ErrRecipientOffline):
		return "recipient_offline"
	case errors.Is(err, errs.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, errs.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "internal"
	}
}

// writePump writes queued events to the socket and keeps the connection
// alive with pings.
func (h *WebSocketHandler) writePump(client *ws.Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.log.Debug().Err(err).Str("user_id", client.UserID.String()).Msg("write failed")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.Done:
			return
		}
	}
}
