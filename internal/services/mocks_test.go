package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/errs"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/models"
)

func timeNow() time.Time { return time.Now() }

// memConsultationStore is an in-memory ConsultationStore that mimics the
// Postgres repository's semantics: loads return copies, the lifecycle update
// re-checks the expected prior status, and creation enforces the
// one-active-consultation-per-appointment index.
type memConsultationStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Consultation
}

func newMemConsultationStore() *memConsultationStore {
	return &memConsultationStore{byID: make(map[uuid.UUID]*models.Consultation)}
}

func cloneConsultation(c *models.Consultation) *models.Consultation {
	out := *c
	out.Participants = append([]models.Participant(nil), c.Participants...)
	out.ChatMessages = append([]models.ChatMessage(nil), c.ChatMessages...)
	out.QualityMetrics = append([]models.QualityMetric(nil), c.QualityMetrics...)
	out.Feedback = append([]models.Feedback(nil), c.Feedback...)
	out.ExtraParticipants = append([]uuid.UUID(nil), c.ExtraParticipants...)
	return &out
}

func (s *memConsultationStore) Create(ctx context.Context, c *models.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.AppointmentID == c.AppointmentID && !existing.Status.IsTerminal() {
			return fmt.Errorf("active consultation exists: %w", errs.ErrConflict)
		}
	}
	s.byID[c.ID] = cloneConsultation(c)
	return nil
}

func (s *memConsultationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneConsultation(c), nil
}

func (s *memConsultationStore) GetActiveByAppointment(ctx context.Context, appointmentID uuid.UUID) (*models.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byID {
		if c.AppointmentID == appointmentID && !c.Status.IsTerminal() {
			return cloneConsultation(c), nil
		}
	}
	return nil, errs.ErrNotFound
}

func (s *memConsultationStore) UpdateLifecycle(ctx context.Context, c *models.Consultation, fromStatuses []models.ConsultationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[c.ID]
	if !ok {
		return errs.ErrNotFound
	}
	allowed := false
	for _, from := range fromStatuses {
		if cur.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("moved concurrently: %w", errs.ErrInvalidState)
	}
	cur.Status = c.Status
	cur.StartTime = c.StartTime
	cur.EndTime = c.EndTime
	cur.DurationMinutes = c.DurationMinutes
	cur.Notes = c.Notes
	cur.Symptoms = c.Symptoms
	cur.Diagnosis = c.Diagnosis
	cur.CancelReason = c.CancelReason
	return nil
}

func (s *memConsultationStore) AddParticipantEntry(ctx context.Context, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[p.ConsultationID]
	if !ok {
		return errs.ErrNotFound
	}
	c.Participants = append(c.Participants, *p)
	return nil
}

func (s *memConsultationStore) CloseParticipantEntry(ctx context.Context, consultationID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[consultationID]
	if !ok {
		return errs.ErrNotFound
	}
	for i := range c.Participants {
		p := &c.Participants[i]
		if p.UserID == userID && p.LeftAt == nil {
			now := timeNow()
			p.LeftAt = &now
		}
	}
	return nil
}

func (s *memConsultationStore) FinalizeLifecycle(ctx context.Context, c *models.Consultation, fromStatuses []models.ConsultationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[c.ID]
	if !ok {
		return errs.ErrNotFound
	}
	allowed := false
	for _, from := range fromStatuses {
		if cur.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("moved concurrently: %w", errs.ErrInvalidState)
	}
	cur.Status = c.Status
	cur.EndTime = c.EndTime
	cur.DurationMinutes = c.DurationMinutes
	cur.Notes = c.Notes
	cur.Symptoms = c.Symptoms
	cur.Diagnosis = c.Diagnosis
	cur.CancelReason = c.CancelReason
	for i := range cur.Participants {
		if cur.Participants[i].LeftAt == nil {
			now := timeNow()
			cur.Participants[i].LeftAt = &now
		}
	}
	return nil
}

func (s *memConsultationStore) AppendChatMessage(ctx context.Context, m *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[m.ConsultationID]
	if !ok {
		return errs.ErrNotFound
	}
	c.ChatMessages = append(c.ChatMessages, *m)
	return nil
}

func (s *memConsultationStore) AddExtraParticipant(ctx context.Context, consultationID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[consultationID]
	if !ok {
		return errs.ErrNotFound
	}
	for _, id := range c.ExtraParticipants {
		if id == userID {
			return nil
		}
	}
	c.ExtraParticipants = append(c.ExtraParticipants, userID)
	return nil
}

func (s *memConsultationStore) RemoveExtraParticipant(ctx context.Context, consultationID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[consultationID]
	if !ok {
		return errs.ErrNotFound
	}
	out := c.ExtraParticipants[:0]
	for _, id := range c.ExtraParticipants {
		if id != userID {
			out = append(out, id)
		}
	}
	c.ExtraParticipants = out
	return nil
}

func (s *memConsultationStore) AppendQualityMetric(ctx context.Context, m *models.QualityMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[m.ConsultationID]
	if !ok {
		return errs.ErrNotFound
	}
	c.QualityMetrics = append(c.QualityMetrics, *m)
	return nil
}

func (s *memConsultationStore) AppendFeedback(ctx context.Context, f *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[f.ConsultationID]
	if !ok {
		return errs.ErrNotFound
	}
	c.Feedback = append(c.Feedback, *f)
	return nil
}

// memAppointmentStore is an in-memory AppointmentStore.
type memAppointmentStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Appointment
}

func newMemAppointmentStore() *memAppointmentStore {
	return &memAppointmentStore{byID: make(map[uuid.UUID]*models.Appointment)}
}

func (s *memAppointmentStore) put(a *models.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.byID[a.ID] = &cp
}

func (s *memAppointmentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memAppointmentStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	a.Status = models.AppointmentStatusCompleted
	return nil
}

// fakeNotifier records Notify calls synchronously.
type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

type notifyCall struct {
	UserID  uuid.UUID
	Kind    models.NotificationKind
	Payload interface{}
}

func (n *fakeNotifier) Notify(userID uuid.UUID, kind models.NotificationKind, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{UserID: userID, Kind: kind, Payload: payload})
}

func (n *fakeNotifier) Calls() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

func (n *fakeNotifier) CallsFor(userID uuid.UUID) []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifyCall
	for _, c := range n.calls {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}
