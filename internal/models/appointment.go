package models

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

type AppointmentType string

const (
	AppointmentTypeVideo    AppointmentType = "video"
	AppointmentTypeInPerson AppointmentType = "in-person"
)

// Appointment is the read-only view of a booking owned by the scheduling
// layer. The consultation core never mutates it directly; completion is
// signalled back through the appointment store.
type Appointment struct {
	ID          uuid.UUID         `db:"id"`
	PatientID   uuid.UUID         `db:"patient_id"`
	DoctorID    uuid.UUID         `db:"doctor_id"`
	Type        AppointmentType   `db:"type"`
	Status      AppointmentStatus `db:"status"`
	ScheduledAt time.Time         `db:"scheduled_at"`
}

// IsParty reports whether userID is the appointment's patient or doctor.
func (a *Appointment) IsParty(userID uuid.UUID) bool {
	return userID == a.PatientID || userID == a.DoctorID
}
