package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/utils"
)

// WebSocketAuthContext holds the authenticated identity of a WebSocket
// connection. Room authorization is not decided here; each room:join message
// is checked against the consultation record when it arrives.
type WebSocketAuthContext struct {
	UserID uuid.UUID
	Name   string
}

type wsAuthKey struct{}

// WebSocketAuthMiddleware authenticates WebSocket connections before the
// upgrade. Browsers cannot set headers on WebSocket requests, so the access
// token travels as a query parameter.
func WebSocketAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := utils.ParseAccessToken(token, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		authCtx := &WebSocketAuthContext{UserID: claims.UserID, Name: claims.Name}
		ctx := context.WithValue(c.Request.Context(), wsAuthKey{}, authCtx)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetWebSocketAuth retrieves the authentication context stored by
// WebSocketAuthMiddleware.
func GetWebSocketAuth(c *gin.Context) (*WebSocketAuthContext, error) {
	val := c.Request.Context().Value(wsAuthKey{})
	if val == nil {
		return nil, errors.New("websocket authentication context not found")
	}
	auth, ok := val.(*WebSocketAuthContext)
	if !ok {
		return nil, errors.New("invalid websocket authentication context type")
	}
	return auth, nil
}
