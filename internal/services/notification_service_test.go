package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/models"
	ws "github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/websocket"
)

type memNotificationStore struct {
	mu   sync.Mutex
	rows []models.Notification
}

func (s *memNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, *n)
	return nil
}

func (s *memNotificationStore) byUser(userID uuid.UUID) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func TestNotifyPersistsAndPushes(t *testing.T) {
	store := &memNotificationStore{}
	presence := ws.NewPresence(zerolog.Nop())
	svc := NewNotificationService(store, presence, zerolog.Nop())

	client := ws.NewClient(uuid.New(), nil)
	presence.Register(client)

	svc.Notify(client.UserID, models.NotificationRoomReady, map[string]string{"room": "r1"})

	require.Eventually(t, func() bool {
		return len(store.byUser(client.UserID)) == 1
	}, time.Second, 10*time.Millisecond)
	row := store.byUser(client.UserID)[0]
	assert.Equal(t, models.NotificationRoomReady, row.Kind)
	assert.JSONEq(t, `{"room":"r1"}`, string(row.Payload))

	require.Eventually(t, func() bool {
		return len(client.Send) == 1
	}, time.Second, 10*time.Millisecond)
	ev := <-client.Send
	assert.Equal(t, ws.EventNotification, ev.Type)
}

func TestNotifyOfflineUserOnlyPersists(t *testing.T) {
	store := &memNotificationStore{}
	presence := ws.NewPresence(zerolog.Nop())
	svc := NewNotificationService(store, presence, zerolog.Nop())
	userID := uuid.New()

	svc.Notify(userID, models.NotificationConsultationCancelled, nil)

	require.Eventually(t, func() bool {
		return len(store.byUser(userID)) == 1
	}, time.Second, 10*time.Millisecond)
}
