package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/models"
	ws "github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/websocket"
)

// NotificationStore persists notification rows.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// NotificationService decides what to deliver and to whom; mechanics beyond
// the durable row and a best-effort live push are external. Notify is
// fire-and-forget: failures are logged, never returned to the transition
// that triggered them.
type NotificationService struct {
	store    NotificationStore
	presence *ws.Presence
	log      zerolog.Logger
}

func NewNotificationService(store NotificationStore, presence *ws.Presence, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		store:    store,
		presence: presence,
		log:      log.With().Str("component", "notifications").Logger(),
	}
}

type notificationPush struct {
	Kind    models.NotificationKind `json:"kind"`
	Payload json.RawMessage         `json:"payload"`
}

// Notify records a notification for the user and pushes it to their live
// connection if they are online.
func (s *NotificationService) Notify(userID uuid.UUID, kind models.NotificationKind, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("kind", string(kind)).Msg("notification payload marshal failed")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		n := &models.Notification{
			ID:      uuid.New(),
			UserID:  userID,
			Kind:    kind,
			Payload: data,
		}
		if err := s.store.Create(ctx, n); err != nil {
			s.log.Error().Err(err).
				Str("user_id", userID.String()).
				Str("kind", string(kind)).
				Msg("notification persist failed")
		}

		if client, ok := s.presence.Lookup(userID); ok {
			client.Enqueue(ws.NewEvent(ws.EventNotification, notificationPush{Kind: kind, Payload: data}))
		}
	}()
}
