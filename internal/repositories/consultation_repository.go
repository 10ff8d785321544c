package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/errs"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/models"
)

type ConsultationRepository struct {
	db *sql.DB
}

func NewConsultationRepository(db *sql.DB) *ConsultationRepository {
	return &ConsultationRepository{db: db}
}

// Create inserts a new consultation. A unique partial index on
// (appointment_id) WHERE status IN ('scheduled','ongoing') backs the
// one-active-consultation-per-appointment invariant; a violation surfaces as
// errs.ErrConflict so the caller can re-read the winner.
func (r *ConsultationRepository) Create(ctx context.Context, c *models.Consultation) error {
	const query = `
	INSERT INTO consultations (
		id,
		appointment_id,
		patient_id,
		doctor_id,
		room_id,
		room_secret_hash,
		status,
		created_at,
		updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		c.ID,
		c.AppointmentID,
		c.PatientID,
		c.DoctorID,
		c.RoomID,
		c.RoomSecretHash,
		c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("consultation for appointment %s: %w", c.AppointmentID, errs.ErrConflict)
	}
	return err
}

const consultationColumns = `
	id,
	appointment_id,
	patient_id,
	doctor_id,
	room_id,
	room_secret_hash,
	status,
	start_time,
	end_time,
	duration_minutes,
	notes,
	symptoms,
	diagnosis,
	cancel_reason,
	created_at,
	updated_at
`

func (r *ConsultationRepository) scanConsultation(row *sql.Row) (*models.Consultation, error) {
	var c models.Consultation
	err := row.Scan(
		&c.ID,
		&c.AppointmentID,
		&c.PatientID,
		&c.DoctorID,
		&c.RoomID,
		&c.RoomSecretHash,
		&c.Status,
		&c.StartTime,
		&c.EndTime,
		&c.DurationMinutes,
		&c.Notes,
		&c.Symptoms,
		&c.Diagnosis,
		&c.CancelReason,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID loads a consultation with its participant, chat and extra
// participant lists.
func (r *ConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1 LIMIT 1`

	c, err := r.scanConsultation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLists(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetActiveByAppointment returns the non-terminal consultation for an
// appointment, or errs.ErrNotFound.
func (r *ConsultationRepository) GetActiveByAppointment(ctx context.Context, appointmentID uuid.UUID) (*models.Consultation, error) {
	query := `
	SELECT ` + consultationColumns + `
	FROM consultations
	WHERE appointment_id = $1 AND status IN ('scheduled', 'ongoing')
	LIMIT 1`

	c, err := r.scanConsultation(r.db.QueryRowContext(ctx, query, appointmentID))
	if err != nil {
		return nil, err
	}
	if err := r.loadLists(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ConsultationRepository) loadLists(ctx context.Context, c *models.Consultation) error {
	const participants = `
	SELECT id, consultation_id, user_id, role, joined_at, left_at
	FROM consultation_participants
	WHERE consultation_id = $1
	ORDER BY joined_at, id
	`
	rows, err := r.db.QueryContext(ctx, participants, c.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.ConsultationID, &p.UserID, &p.Role, &p.JoinedAt, &p.LeftAt); err != nil {
			return err
		}
		c.Participants = append(c.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	const chat = `
	SELECT id, consultation_id, sender_id, text, timestamp
	FROM consultation_chat_messages
	WHERE consultation_id = $1
	ORDER BY timestamp, id
	`
	chatRows, err := r.db.QueryContext(ctx, chat, c.ID)
	if err != nil {
		return err
	}
	defer chatRows.Close()
	for chatRows.Next() {
		var m models.ChatMessage
		if err := chatRows.Scan(&m.ID, &m.ConsultationID, &m.SenderID, &m.Text, &m.Timestamp); err != nil {
			return err
		}
		c.ChatMessages = append(c.ChatMessages, m)
	}
	if err := chatRows.Err(); err != nil {
		return err
	}

	const extras = `
	SELECT user_id
	FROM consultation_extra_participants
	WHERE consultation_id = $1
	ORDER BY added_at
	`
	extraRows, err := r.db.QueryContext(ctx, extras, c.ID)
	if err != nil {
		return err
	}
	defer extraRows.Close()
	for extraRows.Next() {
		var id uuid.UUID
		if err := extraRows.Scan(&id); err != nil {
			return err
		}
		c.ExtraParticipants = append(c.ExtraParticipants, id)
	}
	return extraRows.Err()
}

// UpdateLifecycle persists the lifecycle fields mutated by state machine
// transitions. The WHERE clause re-checks the expected prior status so a
// racing transition that already committed cannot be overwritten.
func (r *ConsultationRepository) UpdateLifecycle(ctx context.Context, c *models.Consultation, fromStatuses []models.ConsultationStatus) error {
	const query = `
	UPDATE consultations
	SET
		status = $1,
		start_time = $2,
		end_time = $3,
		duration_minutes = $4,
		notes = $5,
		symptoms = $6,
		diagnosis = $7,
		cancel_reason = $8,
		updated_at = NOW()
	WHERE id = $9 AND status = ANY($10)
	`

	from := make([]string, len(fromStatuses))
	for i, s := range fromStatuses {
		from[i] = string(s)
	}

	res, err := r.db.ExecContext(ctx, query,
		c.Status,
		c.StartTime,
		c.EndTime,
		c.DurationMinutes,
		c.Notes,
		c.Symptoms,
		c.Diagnosis,
		c.CancelReason,
		c.ID,
		pq.Array(from),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("consultation %s moved concurrently: %w", c.ID, errs.ErrInvalidState)
	}
	return nil
}

// AddParticipantEntry appends one open attendance entry.
func (r *ConsultationRepository) AddParticipantEntry(ctx context.Context, p *models.Participant) error {
	const query = `
	INSERT INTO consultation_participants (id, consultation_id, user_id, role, joined_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.ConsultationID, p.UserID, p.Role, p.JoinedAt)
	return err
}

// CloseParticipantEntry sets left_at on the single open entry for the user.
func (r *ConsultationRepository) CloseParticipantEntry(ctx context.Context, consultationID, userID uuid.UUID) error {
	const query = `
	UPDATE consultation_participants
	SET left_at = NOW()
	WHERE consultation_id = $1 AND user_id = $2 AND left_at IS NULL
	`
	_, err := r.db.ExecContext(ctx, query, consultationID, userID)
	return err
}

// FinalizeLifecycle moves a consultation to a terminal status and closes
// every still-open attendance entry in one transaction, so a completed or
// cancelled record can never be observed with open entries.
func (r *ConsultationRepository) FinalizeLifecycle(ctx context.Context, c *models.Consultation, fromStatuses []models.ConsultationStatus) error {
	const updateQuery = `
	UPDATE consultations
	SET
		status = $1,
		end_time = $2,
		duration_minutes = $3,
		notes = $4,
		symptoms = $5,
		diagnosis = $6,
		cancel_reason = $7,
		updated_at = NOW()
	WHERE id = $8 AND status = ANY($9)
	`
	const closeQuery = `
	UPDATE consultation_participants
	SET left_at = NOW()
	WHERE consultation_id = $1 AND left_at IS NULL
	`

	from := make([]string, len(fromStatuses))
	for i, s := range fromStatuses {
		from[i] = string(s)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, updateQuery,
		c.Status,
		c.EndTime,
		c.DurationMinutes,
		c.Notes,
		c.Symptoms,
		c.Diagnosis,
		c.CancelReason,
		c.ID,
		pq.Array(from),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("consultation %s moved concurrently: %w", c.ID, errs.ErrInvalidState)
	}

	if _, err := tx.ExecContext(ctx, closeQuery, c.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendChatMessage stores one chat message.
func (r *ConsultationRepository) AppendChatMessage(ctx context.Context, m *models.ChatMessage) error {
	const query = `
	INSERT INTO consultation_chat_messages (id, consultation_id, sender_id, text, timestamp)
	VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, m.ID, m.ConsultationID, m.SenderID, m.Text, m.Timestamp)
	return err
}

// AddExtraParticipant admits an additional user to the consultation's room.
func (r *ConsultationRepository) AddExtraParticipant(ctx context.Context, consultationID, userID uuid.UUID) error {
	const query = `
	INSERT INTO consultation_extra_participants (consultation_id, user_id, added_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (consultation_id, user_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, consultationID, userID)
	return err
}

// RemoveExtraParticipant revokes an additional user's room access.
func (r *ConsultationRepository) RemoveExtraParticipant(ctx context.Context, consultationID, userID uuid.UUID) error {
	const query = `
	DELETE FROM consultation_extra_participants
	WHERE consultation_id = $1 AND user_id = $2
	`
	_, err := r.db.ExecContext(ctx, query, consultationID, userID)
	return err
}

// AppendQualityMetric stores one quality metric sample.
func (r *ConsultationRepository) AppendQualityMetric(ctx context.Context, m *models.QualityMetric) error {
	const query = `
	INSERT INTO consultation_quality_metrics (id, consultation_id, user_id, metric, value, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, m.ID, m.ConsultationID, m.UserID, m.Metric, m.Value, m.RecordedAt)
	return err
}

// AppendFeedback stores one feedback record.
func (r *ConsultationRepository) AppendFeedback(ctx context.Context, f *models.Feedback) error {
	const query = `
	INSERT INTO consultation_feedback (id, consultation_id, user_id, rating, comment, submitted_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, f.ID, f.ConsultationID, f.UserID, f.Rating, f.Comment, f.SubmittedAt)
	return err
}
