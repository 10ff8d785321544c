package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/errs"
	ws "github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/websocket"
)

// SignalingService forwards WebRTC negotiation messages between room members.
// It is a pure store-nothing relay: payloads are opaque, nothing is queued,
// and an offline recipient is a normal condition reported back to the caller.
type SignalingService struct {
	presence *ws.Presence
	rooms    *ws.RoomManager
	log      zerolog.Logger
}

func NewSignalingService(presence *ws.Presence, rooms *ws.RoomManager, log zerolog.Logger) *SignalingService {
	return &SignalingService{
		presence: presence,
		rooms:    rooms,
		log:      log.With().Str("component", "signaling").Logger(),
	}
}

// RelayOffer forwards an SDP offer to the recipient.
func (s *SignalingService) RelayOffer(fromUserID uuid.UUID, sp ws.SignalPayload) error {
	return s.relay(ws.EventCallOffer, fromUserID, sp)
}

// RelayAnswer forwards an SDP answer to the recipient.
func (s *SignalingService) RelayAnswer(fromUserID uuid.UUID, sp ws.SignalPayload) error {
	return s.relay(ws.EventCallAnswer, fromUserID, sp)
}

// RelayICECandidate forwards an ICE candidate to the recipient.
func (s *SignalingService) RelayICECandidate(fromUserID uuid.UUID, sp ws.SignalPayload) error {
	return s.relay(ws.EventCallICE, fromUserID, sp)
}

func (s *SignalingService) relay(eventType string, fromUserID uuid.UUID, sp ws.SignalPayload) error {
	// Both ends must be members of the named room; this is the guard against
	// relaying into arbitrary rooms, not an interpretation of the payload.
	if !s.rooms.IsMember(sp.ConsultationID, fromUserID) {
		return fmt.Errorf("sender %s is not in room %s: %w", fromUserID, sp.ConsultationID, errs.ErrForbidden)
	}

	target, ok := s.presence.Lookup(sp.ToUserID)
	if !ok {
		return fmt.Errorf("user %s: %w", sp.ToUserID, errs.ErrRecipientOffline)
	}
	if !s.rooms.IsMember(sp.ConsultationID, sp.ToUserID) {
		return fmt.Errorf("recipient %s is not in room %s: %w", sp.ToUserID, sp.ConsultationID, errs.ErrForbidden)
	}

	delivered := target.Enqueue(ws.NewEvent(eventType, ws.SignalRelayPayload{
		FromUserID: fromUserID,
		Payload:    sp.Payload,
	}))
	if !delivered {
		return fmt.Errorf("user %s: %w", sp.ToUserID, errs.ErrRecipientOffline)
	}

	s.log.Debug().
		Str("event", eventType).
		Str("from", fromUserID.String()).
		Str("to", sp.ToUserID.String()).
		Msg("signal relayed")
	return nil
}
