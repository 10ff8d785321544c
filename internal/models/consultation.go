package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type ConsultationStatus string

const (
	ConsultationStatusScheduled ConsultationStatus = "scheduled"
	ConsultationStatusOngoing   ConsultationStatus = "ongoing"
	ConsultationStatusCompleted ConsultationStatus = "completed"
	ConsultationStatusCancelled ConsultationStatus = "cancelled"
	ConsultationStatusNoShow    ConsultationStatus = "no-show"
)

// IsTerminal reports whether no further lifecycle transition is allowed.
func (s ConsultationStatus) IsTerminal() bool {
	switch s {
	case ConsultationStatusCompleted, ConsultationStatusCancelled, ConsultationStatusNoShow:
		return true
	}
	return false
}

// Consultation is the durable record of one video visit tied to exactly one
// appointment. At most one non-terminal consultation exists per appointment.
type Consultation struct {
	ID            uuid.UUID `db:"id"`
	AppointmentID uuid.UUID `db:"appointment_id"`
	PatientID     uuid.UUID `db:"patient_id"`
	DoctorID      uuid.UUID `db:"doctor_id"`

	RoomID uuid.UUID `db:"room_id"`
	// Bcrypt hash of the join credential; the plaintext secret is returned
	// exactly once, at creation.
	RoomSecretHash string `db:"room_secret_hash"`

	Status ConsultationStatus `db:"status"`

	StartTime       *time.Time `db:"start_time"`
	EndTime         *time.Time `db:"end_time"`
	DurationMinutes int        `db:"duration_minutes"`

	Notes        string `db:"notes"`
	Symptoms     string `db:"symptoms"`
	Diagnosis    string `db:"diagnosis"`
	CancelReason string `db:"cancel_reason"`

	Participants   []Participant   `db:"-"`
	ChatMessages   []ChatMessage   `db:"-"`
	QualityMetrics []QualityMetric `db:"-"`
	Feedback       []Feedback      `db:"-"`

	// Extra users admitted to the room beyond patient and doctor.
	ExtraParticipants []uuid.UUID `db:"-"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type ParticipantRole string

const (
	RolePatient  ParticipantRole = "patient"
	RoleDoctor   ParticipantRole = "doctor"
	RoleObserver ParticipantRole = "observer"
)

// Participant is one clinical attendance entry: a join/leave interval for a
// user within a consultation. Entries are append-only and closed by LeftAt.
type Participant struct {
	ID             uuid.UUID       `db:"id"`
	ConsultationID uuid.UUID       `db:"consultation_id"`
	UserID         uuid.UUID       `db:"user_id"`
	Role           ParticipantRole `db:"role"`
	JoinedAt       time.Time       `db:"joined_at"`
	LeftAt         *time.Time      `db:"left_at"`
}

type ChatMessage struct {
	ID             uuid.UUID `db:"id"`
	ConsultationID uuid.UUID `db:"consultation_id"`
	SenderID       uuid.UUID `db:"sender_id"`
	Text           string    `db:"text"`
	Timestamp      time.Time `db:"timestamp"`
}

type QualityMetric struct {
	ID             uuid.UUID `db:"id"`
	ConsultationID uuid.UUID `db:"consultation_id"`
	UserID         uuid.UUID `db:"user_id"`
	Metric         string    `db:"metric"`
	Value          float64   `db:"value"`
	RecordedAt     time.Time `db:"recorded_at"`
}

type Feedback struct {
	ID             uuid.UUID `db:"id"`
	ConsultationID uuid.UUID `db:"consultation_id"`
	UserID         uuid.UUID `db:"user_id"`
	Rating         int       `db:"rating"`
	Comment        string    `db:"comment"`
	SubmittedAt    time.Time `db:"submitted_at"`
}

// IsParty reports whether userID is the consultation's patient, doctor or an
// explicitly added extra participant.
func (c *Consultation) IsParty(userID uuid.UUID) bool {
	if userID == c.PatientID || userID == c.DoctorID {
		return true
	}
	for _, id := range c.ExtraParticipants {
		if id == userID {
			return true
		}
	}
	return false
}

// RoleOf returns the role userID plays in the consultation.
func (c *Consultation) RoleOf(userID uuid.UUID) ParticipantRole {
	switch userID {
	case c.PatientID:
		return RolePatient
	case c.DoctorID:
		return RoleDoctor
	default:
		return RoleObserver
	}
}

// Counterpart returns the other primary party: the doctor for the patient and
// vice versa. Observers get the doctor.
func (c *Consultation) Counterpart(userID uuid.UUID) uuid.UUID {
	if userID == c.DoctorID {
		return c.PatientID
	}
	return c.DoctorID
}

// OpenParticipant returns the open (LeftAt unset) attendance entry for userID,
// or nil. At most one open entry per user exists at a time.
func (c *Consultation) OpenParticipant(userID uuid.UUID) *Participant {
	for i := range c.Participants {
		p := &c.Participants[i]
		if p.UserID == userID && p.LeftAt == nil {
			return p
		}
	}
	return nil
}

// DurationBetween computes whole minutes between start and end, rounded and
// clamped to zero.
func DurationBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(math.Round(end.Sub(start).Minutes()))
}
