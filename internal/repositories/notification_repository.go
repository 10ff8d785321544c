package repositories

import (
	"context"
	"database/sql"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/models"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	const query = `
	INSERT INTO notifications (id, user_id, kind, payload, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query, n.ID, n.UserID, n.Kind, n.Payload).Scan(&n.CreatedAt)
}
