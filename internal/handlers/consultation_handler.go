package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/dtos"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/errs"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/middlewares"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/services"
)

// ConsultationHandler exposes the state machine's operations over REST. Each
// endpoint maps 1:1 to a ConsultationService operation.
type ConsultationHandler struct {
	consultations *services.ConsultationService
	log           zerolog.Logger
}

func NewConsultationHandler(consultations *services.ConsultationService, log zerolog.Logger) *ConsultationHandler {
	return &ConsultationHandler{
		consultations: consultations,
		log:           log.With().Str("component", "consultation_handler").Logger(),
	}
}

func (h *ConsultationHandler) fail(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *ConsultationHandler) requester(c *gin.Context) (uuid.UUID, bool) {
	userID, err := middlewares.CurrentUserID(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return uuid.Nil, false
	}
	return userID, true
}

func consultationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid consultation id"})
		return uuid.Nil, false
	}
	return id, true
}

// CreateRoom handles POST /consultations/room.
func (h *ConsultationHandler) CreateRoom(c *gin.Context) {
	userID, ok := h.requester(c)
	if !ok {
		return
	}
	var req dtos.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}

	consultation, secret, err := h.consultations.CreateOrGetRoom(c.Request.Context(), req.AppointmentID, userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusOK
	if secret != "" {
		status = http.StatusCreated
	}
	c.JSON(status, dtos.CreateRoomResponse{
		ConsultationID: consultation.ID,
		AppointmentID:  consultation.AppointmentID,
		RoomID:         consultation.RoomID,
		RoomSecret:     secret,
		Status:         string(consultation.Status),
		Created:        secret != "",
	})
}

// Start handles POST /consultations/:id/start.
func (h *ConsultationHandler) Start(c *gin.Context) {
	userID, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := consultationID(c)
	if !ok {
		return
	}

	consultation, err := h.consultations.Start(c.Request.Context(), id, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.NewConsultationResponse(consultation))
}

// End handles POST /consultations/:id/end.
func (h *ConsultationHandler) End(c *gin.Context) {
	userID, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := consultationID(c)
	if !ok {
		return
	}

	var req dtos.EndConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}

	consultation, err := h.consultations.End(c.Request.Context(), id, userID, &services.EndDetails{
		Notes:     req.Notes,
		Symptoms:  req.Symptoms,
		Diagnosis: req.Diagnosis,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.NewConsultationResponse(consultation))
}

// Cancel handles POST /consultations/:id/cancel.
func (h *ConsultationHandler) Cancel(c *gin.Context) {
	userID, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := consultationID(c)
	if !ok {
		return
	}

	var req dtos.CancelConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}

	consultation, err := h.consultations.Cancel(c.Request.Context(), id, userID, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.NewConsultationResponse(consultation))
}

// SendChat handles POST /consultations/:id/chat.
func (h *ConsultationHandler) SendChat(c *gin.Context) {
	userID, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := consultationID(c)
	if !ok {
		return
	}

	var req dtos.ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}

	msg, err := h.consultations.AppendChatMessage(c.Request.Context(), id, userID, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dtos.ChatMessageResponse{
		ID:        msg.ID,
		SenderID:  msg.SenderID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	})
}

// Get handles GET /consultations/:id.
func (h *ConsultationHandler) Get(c *gin.Context) {
	userID, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := consultationID(c)
	if !ok {
		return
	}

	consultation, err := h.consultations.Get(c.Request.Context(), id, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.NewConsultationResponse(consultation))
}

// AddParticipant handles POST /consultations/:id/participants.
func (h *ConsultationHandler) AddParticipant(c *gin.Context) {
	userID, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := consultationID(c)
	if !ok {
		return
	}

	var req dtos.ParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}

	if err := h.consultations.AddParticipant(c.Request.Context(), id, userID, req.UserID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveParticipant handles DELETE /consultations/:id/participants/:userId.
func (h *ConsultationHandler) RemoveParticipant(c *gin.Context) {
	userID, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := consultationID(c)
	if !ok {
		return
	}
	target, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.consultations.RemoveParticipant(c.Request.Context(), id, userID, target); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RecordQualityMetric handles POST /consultations/:id/metrics.
func (h *ConsultationHandler) RecordQualityMetric(c *gin.Context) {
	userID, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := consultationID(c)
	if !ok {
		return
	}

	var req dtos.QualityMetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}

	if err := h.consultations.AppendQualityMetric(c.Request.Context(), id, userID, req.Metric, req.Value); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitFeedback handles POST /consultations/:id/feedback.
func (h *ConsultationHandler) SubmitFeedback(c *gin.Context) {
	userID, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := consultationID(c)
	if !ok {
		return
	}

	var req dtos.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}

	if err := h.consultations.AppendFeedback(c.Request.Context(), id, userID, req.Rating, req.Comment); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
