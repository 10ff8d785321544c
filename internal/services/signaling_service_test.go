package services

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/errs"
	ws "github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/websocket"
)

type signalingEnv struct {
	svc      *SignalingService
	presence *ws.Presence
	rooms    *ws.RoomManager
	roomID   uuid.UUID
	sender   *ws.Client
	receiver *ws.Client
}

func newSignalingEnv(t *testing.T) *signalingEnv {
	t.Helper()
	presence := ws.NewPresence(zerolog.Nop())
	rooms := ws.NewRoomManager(zerolog.Nop())
	env := &signalingEnv{
		svc:      NewSignalingService(presence, rooms, zerolog.Nop()),
		presence: presence,
		rooms:    rooms,
		roomID:   uuid.New(),
		sender:   ws.NewClient(uuid.New(), nil),
		receiver: ws.NewClient(uuid.New(), nil),
	}
	presence.Register(env.sender)
	presence.Register(env.receiver)
	rooms.Join(env.roomID, env.sender)
	rooms.Join(env.roomID, env.receiver)
	drain(env.sender)
	drain(env.receiver)
	return env
}

func drain(c *ws.Client) {
	for len(c.Send) > 0 {
		<-c.Send
	}
}

func (e *signalingEnv) payload(sdp string) ws.SignalPayload {
	raw, _ := json.Marshal(map[string]string{"sdp": sdp})
	return ws.SignalPayload{
		ToUserID:       e.receiver.UserID,
		ConsultationID: e.roomID,
		Payload:        raw,
	}
}

func TestRelayOfferDeliversVerbatim(t *testing.T) {
	env := newSignalingEnv(t)

	require.NoError(t, env.svc.RelayOffer(env.sender.UserID, env.payload("v=0 offer")))

	require.Len(t, env.receiver.Send, 1)
	ev := <-env.receiver.Send
	assert.Equal(t, ws.EventCallOffer, ev.Type)

	var relayed ws.SignalRelayPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &relayed))
	assert.Equal(t, env.sender.UserID, relayed.FromUserID)
	assert.JSONEq(t, `{"sdp":"v=0 offer"}`, string(relayed.Payload))

	// The relay is point-to-point, nothing reaches the sender.
	assert.Empty(t, env.sender.Send)
}

func TestRelayAnswerAndICE(t *testing.T) {
	env := newSignalingEnv(t)

	require.NoError(t, env.svc.RelayAnswer(env.sender.UserID, env.payload("v=0 answer")))
	require.NoError(t, env.svc.RelayICECandidate(env.sender.UserID, env.payload("candidate")))

	require.Len(t, env.receiver.Send, 2)
	assert.Equal(t, ws.EventCallAnswer, (<-env.receiver.Send).Type)
	assert.Equal(t, ws.EventCallICE, (<-env.receiver.Send).Type)
}

func TestRelayRejectsSenderOutsideRoom(t *testing.T) {
	env := newSignalingEnv(t)
	stranger := ws.NewClient(uuid.New(), nil)
	env.presence.Register(stranger)
	drain(env.receiver)

	err := env.svc.RelayOffer(stranger.UserID, env.payload("v=0"))
	assert.ErrorIs(t, err, errs.ErrForbidden)
	assert.Empty(t, env.receiver.Send)
}

func TestRelayToOfflineUser(t *testing.T) {
	env := newSignalingEnv(t)
	env.presence.Unregister(env.receiver)
	drain(env.sender)

	err := env.svc.RelayOffer(env.sender.UserID, env.payload("v=0"))
	assert.ErrorIs(t, err, errs.ErrRecipientOffline)
}

func TestRelayToRecipientOutsideRoom(t *testing.T) {
	env := newSignalingEnv(t)
	env.rooms.Leave(env.roomID, env.receiver)
	drain(env.sender)

	err := env.svc.RelayOffer(env.sender.UserID, env.payload("v=0"))
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestRelayToClosedRecipientReportsOffline(t *testing.T) {
	env := newSignalingEnv(t)
	env.receiver.Close()

	err := env.svc.RelayOffer(env.sender.UserID, env.payload("v=0"))
	assert.ErrorIs(t, err, errs.ErrRecipientOffline)
}
