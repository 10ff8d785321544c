package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/errs"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/models"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/utils"
	ws "github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/websocket"
)

// ConsultationService owns the consultation lifecycle. Every mutating
// operation on one consultation runs under that consultation's keyed mutex,
// so concurrent start/end/cancel/chat calls on the same id never interleave.
// The durable store is the source of truth; the keyed mutex only spans the
// load-mutate-save of a single document and no registry lock is ever held
// across a persistence call.
type ConsultationService struct {
	consultations ConsultationStore
	appointments  AppointmentStore
	notifier      Notifier
	rooms         *ws.RoomManager
	log           zerolog.Logger

	locks *keyedMutex
	now   func() time.Time
}

func NewConsultationService(
	consultations ConsultationStore,
	appointments AppointmentStore,
	notifier Notifier,
	rooms *ws.RoomManager,
	log zerolog.Logger,
) *ConsultationService {
	return &ConsultationService{
		consultations: consultations,
		appointments:  appointments,
		notifier:      notifier,
		rooms:         rooms,
		log:           log.With().Str("component", "consultations").Logger(),
		locks:         newKeyedMutex(),
		now:           time.Now,
	}
}

// RoomReadyPayload is sent to both parties when a room becomes available. It
// carries the join credential so the party that did not issue the creating
// call can still enter the room.
type RoomReadyPayload struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	AppointmentID  uuid.UUID `json:"appointment_id"`
	RoomID         uuid.UUID `json:"room_id"`
	RoomSecret     string    `json:"room_secret,omitempty"`
}

// CreateOrGetRoom promotes an appointment into a consultation room. The
// appointment must be video-typed, in pending or confirmed status, and the
// requester must be its patient or doctor. Idempotent: if a non-terminal
// consultation already exists for the appointment it is returned unchanged
// and the secret is empty. The plaintext credential is only available at
// creation, so the room_ready notification delivers it to both parties.
func (s *ConsultationService) CreateOrGetRoom(ctx context.Context, appointmentID, requesterID uuid.UUID) (*models.Consultation, string, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, "", fmt.Errorf("appointment %s: %w", appointmentID, err)
	}
	if !appt.IsParty(requesterID) {
		return nil, "", fmt.Errorf("user %s is not a party of appointment %s: %w", requesterID, appointmentID, errs.ErrForbidden)
	}
	if appt.Type != models.AppointmentTypeVideo {
		return nil, "", fmt.Errorf("appointment %s is not a video visit: %w", appointmentID, errs.ErrForbidden)
	}
	if appt.Status == models.AppointmentStatusCancelled {
		return nil, "", fmt.Errorf("appointment %s is cancelled: %w", appointmentID, errs.ErrConflict)
	}
	if appt.Status != models.AppointmentStatusPending && appt.Status != models.AppointmentStatusConfirmed {
		return nil, "", fmt.Errorf("appointment %s has status %s: %w", appointmentID, appt.Status, errs.ErrConflict)
	}

	if existing, err := s.consultations.GetActiveByAppointment(ctx, appointmentID); err == nil {
		return existing, "", nil
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, "", err
	}

	secret, hash, err := utils.GenerateRoomSecret()
	if err != nil {
		return nil, "", err
	}
	c := &models.Consultation{
		ID:             uuid.New(),
		AppointmentID:  appointmentID,
		PatientID:      appt.PatientID,
		DoctorID:       appt.DoctorID,
		RoomID:         uuid.New(),
		RoomSecretHash: hash,
		Status:         models.ConsultationStatusScheduled,
	}

	if err := s.consultations.Create(ctx, c); err != nil {
		// Lost a creation race: the partial unique index rejected us, so the
		// winner's record is the one to hand back.
		if errors.Is(err, errs.ErrConflict) {
			existing, getErr := s.consultations.GetActiveByAppointment(ctx, appointmentID)
			if getErr == nil {
				return existing, "", nil
			}
		}
		return nil, "", err
	}

	s.log.Info().
		Str("consultation_id", c.ID.String()).
		Str("appointment_id", appointmentID.String()).
		Str("room_id", c.RoomID.String()).
		Msg("consultation room created")

	payload := RoomReadyPayload{
		ConsultationID: c.ID,
		AppointmentID:  appointmentID,
		RoomID:         c.RoomID,
		RoomSecret:     secret,
	}
	s.notifier.Notify(c.PatientID, models.NotificationRoomReady, payload)
	s.notifier.Notify(c.DoctorID, models.NotificationRoomReady, payload)

	return c, secret, nil
}

// Start moves a scheduled consultation to ongoing and stamps the start time.
func (s *ConsultationService) Start(ctx context.Context, consultationID, requesterID uuid.UUID) (*models.Consultation, error) {
	unlock := s.locks.Lock(consultationID)
	defer unlock()

	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if requesterID != c.PatientID && requesterID != c.DoctorID {
		return nil, fmt.Errorf("user %s is not a party of consultation %s: %w", requesterID, consultationID, errs.ErrForbidden)
	}
	if c.Status != models.ConsultationStatusScheduled {
		return nil, fmt.Errorf("consultation %s has status %s: %w", consultationID, c.Status, errs.ErrInvalidState)
	}

	now := s.now()
	c.Status = models.ConsultationStatusOngoing
	c.StartTime = &now
	if err := s.consultations.UpdateLifecycle(ctx, c, []models.ConsultationStatus{models.ConsultationStatusScheduled}); err != nil {
		return nil, err
	}

	s.log.Info().Str("consultation_id", consultationID.String()).Msg("consultation started")
	s.notifier.Notify(c.Counterpart(requesterID), models.NotificationConsultationStarted, RoomReadyPayload{
		ConsultationID: c.ID,
		AppointmentID:  c.AppointmentID,
		RoomID:         c.RoomID,
	})
	return c, nil
}

// EndDetails are the optional clinical fields persisted when a visit ends.
type EndDetails struct {
	Notes     string
	Symptoms  string
	Diagnosis string
}

// CompletedPayload notifies the counterpart that the visit finished.
type CompletedPayload struct {
	ConsultationID  uuid.UUID `json:"consultation_id"`
	AppointmentID   uuid.UUID `json:"appointment_id"`
	DurationMinutes int       `json:"duration_minutes"`
}

// End completes a consultation. Ending a never-started visit is allowed and
// records a duration of zero. The terminal transition and the closing of all
// still-open attendance entries commit atomically, the live room is torn
// down, the appointment is marked completed downstream, and the counterpart
// is notified.
func (s *ConsultationService) End(ctx context.Context, consultationID, requesterID uuid.UUID, details *EndDetails) (*models.Consultation, error) {
	unlock := s.locks.Lock(consultationID)
	defer unlock()

	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if requesterID != c.PatientID && requesterID != c.DoctorID {
		return nil, fmt.Errorf("user %s is not a party of consultation %s: %w", requesterID, consultationID, errs.ErrForbidden)
	}
	if c.Status != models.ConsultationStatusScheduled && c.Status != models.ConsultationStatusOngoing {
		return nil, fmt.Errorf("consultation %s has status %s: %w", consultationID, c.Status, errs.ErrInvalidState)
	}

	from := []models.ConsultationStatus{c.Status}
	now := s.now()
	c.EndTime = &now
	if c.StartTime != nil {
		c.DurationMinutes = models.DurationBetween(*c.StartTime, now)
	} else {
		c.DurationMinutes = 0
	}
	c.Status = models.ConsultationStatusCompleted
	if details != nil {
		if details.Notes != "" {
			c.Notes = details.Notes
		}
		if details.Symptoms != "" {
			c.Symptoms = details.Symptoms
		}
		if details.Diagnosis != "" {
			c.Diagnosis = details.Diagnosis
		}
	}

	if err := s.consultations.FinalizeLifecycle(ctx, c, from); err != nil {
		return nil, err
	}
	for i := range c.Participants {
		if c.Participants[i].LeftAt == nil {
			left := now
			c.Participants[i].LeftAt = &left
		}
	}
	if err := s.appointments.MarkCompleted(ctx, c.AppointmentID); err != nil {
		s.log.Error().Err(err).Str("appointment_id", c.AppointmentID.String()).Msg("marking appointment completed failed")
	}

	s.rooms.Close(consultationID, ws.NewEvent(ws.EventRoomClosed, ws.RoomClosedPayload{ConsultationID: consultationID}))

	s.log.Info().
		Str("consultation_id", consultationID.String()).
		Int("duration_minutes", c.DurationMinutes).
		Msg("consultation completed")

	s.notifier.Notify(c.Counterpart(requesterID), models.NotificationConsultationCompleted, CompletedPayload{
		ConsultationID:  c.ID,
		AppointmentID:   c.AppointmentID,
		DurationMinutes: c.DurationMinutes,
	})
	return c, nil
}

// CancelledPayload notifies the counterpart of a cancellation.
type CancelledPayload struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	Reason         string    `json:"reason,omitempty"`
}

// Cancel aborts a consultation that has not reached a terminal state. Like
// End, the transition and the attendance closure commit atomically and the
// live room is torn down.
func (s *ConsultationService) Cancel(ctx context.Context, consultationID, requesterID uuid.UUID, reason string) (*models.Consultation, error) {
	unlock := s.locks.Lock(consultationID)
	defer unlock()

	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if requesterID != c.PatientID && requesterID != c.DoctorID {
		return nil, fmt.Errorf("user %s is not a party of consultation %s: %w", requesterID, consultationID, errs.ErrForbidden)
	}
	if c.Status.IsTerminal() {
		return nil, fmt.Errorf("consultation %s has status %s: %w", consultationID, c.Status, errs.ErrInvalidState)
	}

	from := []models.ConsultationStatus{c.Status}
	now := s.now()
	c.Status = models.ConsultationStatusCancelled
	c.EndTime = &now
	c.CancelReason = reason

	if err := s.consultations.FinalizeLifecycle(ctx, c, from); err != nil {
		return nil, err
	}
	for i := range c.Participants {
		if c.Participants[i].LeftAt == nil {
			left := now
			c.Participants[i].LeftAt = &left
		}
	}

	s.rooms.Close(consultationID, ws.NewEvent(ws.EventRoomClosed, ws.RoomClosedPayload{ConsultationID: consultationID}))

	s.log.Info().Str("consultation_id", consultationID.String()).Msg("consultation cancelled")
	s.notifier.Notify(c.Counterpart(requesterID), models.NotificationConsultationCancelled, CancelledPayload{
		ConsultationID: c.ID,
		Reason:         reason,
	})
	return c, nil
}

// MarkNoShow is the policy hook for the external scheduler: a scheduled
// consultation that nobody ever joined transitions to no-show. No timer in
// this core calls it.
func (s *ConsultationService) MarkNoShow(ctx context.Context, consultationID uuid.UUID) (*models.Consultation, error) {
	unlock := s.locks.Lock(consultationID)
	defer unlock()

	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.ConsultationStatusScheduled {
		return nil, fmt.Errorf("consultation %s has status %s: %w", consultationID, c.Status, errs.ErrInvalidState)
	}
	if len(c.Participants) > 0 {
		return nil, fmt.Errorf("consultation %s has attendance: %w", consultationID, errs.ErrInvalidState)
	}

	now := s.now()
	c.Status = models.ConsultationStatusNoShow
	c.EndTime = &now
	if err := s.consultations.UpdateLifecycle(ctx, c, []models.ConsultationStatus{models.ConsultationStatusScheduled}); err != nil {
		return nil, err
	}
	s.log.Info().Str("consultation_id", consultationID.String()).Msg("consultation marked no-show")
	return c, nil
}

// RecordJoin appends an open attendance entry for the user. A user with an
// entry still open keeps it; attendance survives socket reconnects.
func (s *ConsultationService) RecordJoin(ctx context.Context, consultationID, userID uuid.UUID, role models.ParticipantRole) error {
	unlock := s.locks.Lock(consultationID)
	defer unlock()

	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return err
	}
	if c.Status.IsTerminal() {
		return fmt.Errorf("consultation %s has status %s: %w", consultationID, c.Status, errs.ErrInvalidState)
	}
	if c.OpenParticipant(userID) != nil {
		return nil
	}

	p := &models.Participant{
		ID:             uuid.New(),
		ConsultationID: consultationID,
		UserID:         userID,
		Role:           role,
		JoinedAt:       s.now(),
	}
	return s.consultations.AddParticipantEntry(ctx, p)
}

// RecordLeave closes the user's open attendance entry, if any.
func (s *ConsultationService) RecordLeave(ctx context.Context, consultationID, userID uuid.UUID) error {
	unlock := s.locks.Lock(consultationID)
	defer unlock()
	return s.consultations.CloseParticipantEntry(ctx, consultationID, userID)
}

// AppendChatMessage validates the sender, persists the message and broadcasts
// chat:new to the room. Chat is allowed at any non-terminal status, including
// scheduled, to support pre-call messaging.
func (s *ConsultationService) AppendChatMessage(ctx context.Context, consultationID, senderID uuid.UUID, text string) (*models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("chat text must not be blank: %w", errs.ErrInvalidArgument)
	}

	unlock := s.locks.Lock(consultationID)
	defer unlock()

	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if !c.IsParty(senderID) {
		return nil, fmt.Errorf("user %s is not a party of consultation %s: %w", senderID, consultationID, errs.ErrForbidden)
	}
	if c.Status.IsTerminal() {
		return nil, fmt.Errorf("consultation %s has status %s: %w", consultationID, c.Status, errs.ErrInvalidState)
	}

	m := &models.ChatMessage{
		ID:             uuid.New(),
		ConsultationID: consultationID,
		SenderID:       senderID,
		Text:           text,
		Timestamp:      s.now(),
	}
	if err := s.consultations.AppendChatMessage(ctx, m); err != nil {
		return nil, err
	}

	s.rooms.Broadcast(consultationID, ws.NewEvent(ws.EventChatNew, ws.ChatNewPayload{
		SenderID:  m.SenderID,
		Text:      m.Text,
		Timestamp: m.Timestamp,
	}), uuid.Nil)
	return m, nil
}

// AddParticipant admits an extra user to the consultation's room.
func (s *ConsultationService) AddParticipant(ctx context.Context, consultationID, requesterID, userID uuid.UUID) error {
	unlock := s.locks.Lock(consultationID)
	defer unlock()

	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return err
	}
	if requesterID != c.PatientID && requesterID != c.DoctorID {
		return fmt.Errorf("user %s is not a party of consultation %s: %w", requesterID, consultationID, errs.ErrForbidden)
	}
	if c.Status.IsTerminal() {
		return fmt.Errorf("consultation %s has status %s: %w", consultationID, c.Status, errs.ErrInvalidState)
	}
	return s.consultations.AddExtraParticipant(ctx, consultationID, userID)
}

// RemoveParticipant revokes an extra user's room access and drops their live
// subscription if present.
func (s *ConsultationService) RemoveParticipant(ctx context.Context, consultationID, requesterID, userID uuid.UUID) error {
	unlock := s.locks.Lock(consultationID)
	defer unlock()

	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return err
	}
	if requesterID != c.PatientID && requesterID != c.DoctorID {
		return fmt.Errorf("user %s is not a party of consultation %s: %w", requesterID, consultationID, errs.ErrForbidden)
	}
	if userID == c.PatientID || userID == c.DoctorID {
		return fmt.Errorf("primary parties cannot be removed: %w", errs.ErrInvalidArgument)
	}
	return s.consultations.RemoveExtraParticipant(ctx, consultationID, userID)
}

// AppendQualityMetric records one call-quality sample. No lifecycle effect.
func (s *ConsultationService) AppendQualityMetric(ctx context.Context, consultationID, userID uuid.UUID, metric string, value float64) error {
	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return err
	}
	if !c.IsParty(userID) {
		return fmt.Errorf("user %s is not a party of consultation %s: %w", userID, consultationID, errs.ErrForbidden)
	}
	return s.consultations.AppendQualityMetric(ctx, &models.QualityMetric{
		ID:             uuid.New(),
		ConsultationID: consultationID,
		UserID:         userID,
		Metric:         metric,
		Value:          value,
		RecordedAt:     s.now(),
	})
}

// AppendFeedback records a post-visit rating. No lifecycle effect.
func (s *ConsultationService) AppendFeedback(ctx context.Context, consultationID, userID uuid.UUID, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be 1-5: %w", errs.ErrInvalidArgument)
	}
	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return err
	}
	if !c.IsParty(userID) {
		return fmt.Errorf("user %s is not a party of consultation %s: %w", userID, consultationID, errs.ErrForbidden)
	}
	return s.consultations.AppendFeedback(ctx, &models.Feedback{
		ID:             uuid.New(),
		ConsultationID: consultationID,
		UserID:         userID,
		Rating:         rating,
		Comment:        comment,
		SubmittedAt:    s.now(),
	})
}

// Get returns the consultation with its chat and attendance history, visible
// only to its parties.
func (s *ConsultationService) Get(ctx context.Context, consultationID, requesterID uuid.UUID) (*models.Consultation, error) {
	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if !c.IsParty(requesterID) {
		return nil, fmt.Errorf("user %s is not a party of consultation %s: %w", requesterID, consultationID, errs.ErrForbidden)
	}
	return c, nil
}

// JoinRoom admits a live connection to the consultation's room: the user must
// be a declared party, present the room secret, and the consultation must not
// be terminal. Admission subscribes the socket and opens an attendance entry.
func (s *ConsultationService) JoinRoom(ctx context.Context, consultationID uuid.UUID, client *ws.Client, roomSecret string) error {
	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return err
	}
	if !c.IsParty(client.UserID) {
		return fmt.Errorf("user %s is not a party of consultation %s: %w", client.UserID, consultationID, errs.ErrForbidden)
	}
	if !utils.VerifyRoomSecret(c.RoomSecretHash, roomSecret) {
		return fmt.Errorf("bad room secret for consultation %s: %w", consultationID, errs.ErrForbidden)
	}
	if c.Status.IsTerminal() {
		return fmt.Errorf("consultation %s has status %s: %w", consultationID, c.Status, errs.ErrInvalidState)
	}

	s.rooms.Join(consultationID, client)
	return s.RecordJoin(ctx, consultationID, client.UserID, c.RoleOf(client.UserID))
}

// LeaveRoom is the explicit end-of-presence action: it drops the live
// subscription and closes the attendance entry. Abrupt disconnects only drop
// the subscription (see the connection handler) so a reconnect does not
// fragment the clinical record.
func (s *ConsultationService) LeaveRoom(ctx context.Context, consultationID uuid.UUID, client *ws.Client) error {
	s.rooms.Leave(consultationID, client)
	return s.RecordLeave(ctx, consultationID, client.UserID)
}

// RelayTyping broadcasts a transient typing advisory to the other room
// members. Never persisted.
func (s *ConsultationService) RelayTyping(consultationID, userID uuid.UUID) error {
	if !s.rooms.IsMember(consultationID, userID) {
		return fmt.Errorf("user %s is not in room %s: %w", userID, consultationID, errs.ErrForbidden)
	}
	s.rooms.Broadcast(consultationID, ws.NewEvent(ws.EventTyping, ws.TypingPayload{
		ConsultationID: consultationID,
		UserID:         userID,
	}), userID)
	return nil
}
