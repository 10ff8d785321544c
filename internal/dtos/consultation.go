package dtos

import (
	"time"

	"github.com/google/uuid"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/models"
)

// CreateRoomRequest asks to promote an appointment into a consultation room.
type CreateRoomRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" binding:"required"`
}

// CreateRoomResponse returns the room coordinates. RoomSecret is only present
// when the consultation was created by this call; an idempotent repeat leaves
// it empty.
type CreateRoomResponse struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	AppointmentID  uuid.UUID `json:"appointment_id"`
	RoomID         uuid.UUID `json:"room_id"`
	RoomSecret     string    `json:"room_secret,omitempty"`
	Status         string    `json:"status"`
	Created        bool      `json:"created"`
}

type EndConsultationRequest struct {
	Notes     string `json:"notes"`
	Symptoms  string `json:"symptoms"`
	Diagnosis string `json:"diagnosis"`
}

type CancelConsultationRequest struct {
	Reason string `json:"reason"`
}

type ChatMessageRequest struct {
	Text string `json:"text" binding:"required,notblank"`
}

type ChatMessageResponse struct {
	ID        uuid.UUID `json:"id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type ParticipantRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

type QualityMetricRequest struct {
	Metric string  `json:"metric" binding:"required,notblank"`
	Value  float64 `json:"value"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

type ParticipantResponse struct {
	UserID   uuid.UUID  `json:"user_id"`
	Role     string     `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

type ConsultationResponse struct {
	ID              uuid.UUID             `json:"id"`
	AppointmentID   uuid.UUID             `json:"appointment_id"`
	PatientID       uuid.UUID             `json:"patient_id"`
	DoctorID        uuid.UUID             `json:"doctor_id"`
	RoomID          uuid.UUID             `json:"room_id"`
	Status          string                `json:"status"`
	StartTime       *time.Time            `json:"start_time,omitempty"`
	EndTime         *time.Time            `json:"end_time,omitempty"`
	DurationMinutes int                   `json:"duration_minutes"`
	Notes           string                `json:"notes,omitempty"`
	Symptoms        string                `json:"symptoms,omitempty"`
	Diagnosis       string                `json:"diagnosis,omitempty"`
	CancelReason    string                `json:"cancel_reason,omitempty"`
	Participants    []ParticipantResponse `json:"participants"`
	ChatMessages    []ChatMessageResponse `json:"chat_messages"`
}

// NewConsultationResponse maps the model to its API view. The room secret
// hash never leaves the service.
func NewConsultationResponse(c *models.Consultation) ConsultationResponse {
	resp := ConsultationResponse{
		ID:              c.ID,
		AppointmentID:   c.AppointmentID,
		PatientID:       c.PatientID,
		DoctorID:        c.DoctorID,
		RoomID:          c.RoomID,
		Status:          string(c.Status),
		StartTime:       c.StartTime,
		EndTime:         c.EndTime,
		DurationMinutes: c.DurationMinutes,
		Notes:           c.Notes,
		Symptoms:        c.Symptoms,
		Diagnosis:       c.Diagnosis,
		CancelReason:    c.CancelReason,
		Participants:    make([]ParticipantResponse, 0, len(c.Participants)),
		ChatMessages:    make([]ChatMessageResponse, 0, len(c.ChatMessages)),
	}
	for _, p := range c.Participants {
		resp.Participants = append(resp.Participants, ParticipantResponse{
			UserID:   p.UserID,
			Role:     string(p.Role),
			JoinedAt: p.JoinedAt,
			LeftAt:   p.LeftAt,
		})
	}
	for _, m := range c.ChatMessages {
		resp.ChatMessages = append(resp.ChatMessages, ChatMessageResponse{
			ID:        m.ID,
			SenderID:  m.SenderID,
			Text:      m.Text,
			Timestamp: m.Timestamp,
		})
	}
	return resp
}
