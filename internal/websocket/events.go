package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for all WebSocket communication, in both directions.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client-to-server event types.
const (
	EventRoomJoin   = "room:join"
	EventRoomLeave  = "room:leave"
	EventChatSend   = "chat:send"
	EventCallOffer  = "call:offer"
	EventCallAnswer = "call:answer"
	EventCallICE    = "call:ice"
	EventTyping     = "room:typing"
	EventPing       = "ping"
)

// Server-to-client event types.
const (
	EventUserOnline     = "user:online"
	EventUserOffline    = "user:offline"
	EventRoomUserJoined = "room:user-joined"
	EventRoomUserLeft   = "room:user-left"
	EventRoomClosed     = "room:closed"
	EventChatNew        = "chat:new"
	EventNotification   = "notification"
	EventSuperseded     = "session:superseded"
	EventError          = "error"
	EventPong           = "pong"
)

// NewEvent marshals payload into an Event envelope. Marshal failures are
// programming errors (payload types are all plain structs), so they collapse
// to an empty payload.
func NewEvent(eventType string, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	return Event{Type: eventType, Payload: data}
}

// PresencePayload announces a user coming online or going offline.
type PresencePayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// RoomUserPayload announces a room membership change.
type RoomUserPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// JoinRoomPayload is the client request to subscribe to a room.
type JoinRoomPayload struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	RoomSecret     string    `json:"room_secret"`
}

// LeaveRoomPayload is the client request to unsubscribe from a room.
type LeaveRoomPayload struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
}

// ChatSendPayload is the client request to send a chat message.
type ChatSendPayload struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	Text           string    `json:"text"`
}

// ChatNewPayload is a delivered chat message.
type ChatNewPayload struct {
	SenderID  uuid.UUID `json:"sender_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomClosedPayload tells members their room was torn down because the
// consultation reached a terminal state.
type RoomClosedPayload struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
}

// TypingPayload is a transient typing advisory, relayed but never persisted.
type TypingPayload struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	UserID         uuid.UUID `json:"user_id,omitempty"`
}

// SignalPayload is the client request to relay an SDP offer/answer or ICE
// candidate. Payload is opaque to the server.
type SignalPayload struct {
	ToUserID       uuid.UUID       `json:"to_user_id"`
	ConsultationID uuid.UUID       `json:"consultation_id"`
	Payload        json.RawMessage `json:"payload"`
}

// SignalRelayPayload is the delivered form of a relayed signaling message.
type SignalRelayPayload struct {
	FromUserID uuid.UUID       `json:"from_user_id"`
	Payload    json.RawMessage `json:"payload"`
}

// ErrorPayload reports a rejected action back on the connection.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
