package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/models"
)

// ConsultationStore is the durable session store the state machine writes
// through. Implemented by repositories.ConsultationRepository; tests use an
// in-memory fake.
type ConsultationStore interface {
	Create(ctx context.Context, c *models.Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Consultation, error)
	GetActiveByAppointment(ctx context.Context, appointmentID uuid.UUID) (*models.Consultation, error)
	UpdateLifecycle(ctx context.Context, c *models.Consultation, fromStatuses []models.ConsultationStatus) error
	FinalizeLifecycle(ctx context.Context, c *models.Consultation, fromStatuses []models.ConsultationStatus) error
	AddParticipantEntry(ctx context.Context, p *models.Participant) error
	CloseParticipantEntry(ctx context.Context, consultationID, userID uuid.UUID) error
	AppendChatMessage(ctx context.Context, m *models.ChatMessage) error
	AddExtraParticipant(ctx context.Context, consultationID, userID uuid.UUID) error
	RemoveExtraParticipant(ctx context.Context, consultationID, userID uuid.UUID) error
	AppendQualityMetric(ctx context.Context, m *models.QualityMetric) error
	AppendFeedback(ctx context.Context, f *models.Feedback) error
}

// AppointmentStore exposes the scheduling layer's bookings.
type AppointmentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
}

// Notifier delivers asynchronous user notifications; fire-and-forget from the
// caller's point of view.
type Notifier interface {
	Notify(userID uuid.UUID, kind models.NotificationKind, payload interface{})
}
