package repositories

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/errs"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/models"
)

// AppointmentRepository is a read-mostly view of the scheduling layer's
// bookings. The consultation core only reads appointments and flips their
// status to completed when a visit finishes.
type AppointmentRepository struct {
	db *sql.DB
}

func NewAppointmentRepository(db *sql.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	const query = `
	SELECT id, patient_id, doctor_id, type, status, scheduled_at
	FROM appointments
	WHERE id = $1
	LIMIT 1
	`

	var a models.Appointment
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Type,
		&a.Status,
		&a.ScheduledAt,
	)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// MarkCompleted is the downstream side effect of ending a consultation.
func (r *AppointmentRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	const query = `
	UPDATE appointments
	SET status = $1, updated_at = NOW()
	WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, models.AppointmentStatusCompleted, id)
	return err
}
