package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationRoomReady             NotificationKind = "room_ready"
	NotificationConsultationStarted   NotificationKind = "consultation_started"
	NotificationConsultationCompleted NotificationKind = "consultation_completed"
	NotificationConsultationCancelled NotificationKind = "consultation_cancelled"
)

// Notification is one asynchronous message to a user. Delivery mechanics
// beyond the durable row and a best-effort live push are external.
type Notification struct {
	ID        uuid.UUID        `db:"id"`
	UserID    uuid.UUID        `db:"user_id"`
	Kind      NotificationKind `db:"kind"`
	Payload   []byte           `db:"payload"`
	CreatedAt time.Time        `db:"created_at"`
}
