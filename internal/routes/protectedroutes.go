package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/handlers"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/middlewares"
)

func RegisterProtectedEndpoints(
	router *gin.Engine,
	consultationHandler *handlers.ConsultationHandler,
	jwtSecret string,
) {
	protected := router.Group("/api")
	protected.Use(middlewares.AuthMiddleware(jwtSecret))

	protected.POST("/consultations/room", consultationHandler.CreateRoom)
	protected.GET("/consultations/:id", consultationHandler.Get)
	protected.POST("/consultations/:id/start", consultationHandler.Start)
	protected.POST("/consultations/:id/end", consultationHandler.End)
	protected.POST("/consultations/:id/cancel", consultationHandler.Cancel)
	protected.POST("/consultations/:id/chat", consultationHandler.SendChat)
	protected.POST("/consultations/:id/participants", consultationHandler.AddParticipant)
	protected.DELETE("/consultations/:id/participants/:userId", consultationHandler.RemoveParticipant)
	protected.POST("/consultations/:id/metrics", consultationHandler.RecordQualityMetric)
	protected.POST("/consultations/:id/feedback", consultationHandler.SubmitFeedback)
}
