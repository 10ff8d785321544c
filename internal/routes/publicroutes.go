package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/handlers"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/middlewares"
)

func RegisterPublicEndpoints(
	router *gin.Engine,
	healthHandler *handlers.HealthHandler,
	webSocketHandler *handlers.WebSocketHandler,
	jwtSecret string,
) {
	public := router.Group("/api")

	public.GET("/health", healthHandler.Health)
	public.GET("/ready", healthHandler.Ready)

	// WebSocket endpoint: identity is authenticated before the upgrade, room
	// authorization happens per room:join message.
	wsAuth := middlewares.WebSocketAuthMiddleware(jwtSecret)
	public.GET("/ws/consultations", wsAuth, webSocketHandler.HandleWebSocket)
}
