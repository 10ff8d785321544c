package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/errs"
	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/utils"
)

const contextUserIDKey = "user_id"

// AuthMiddleware authenticates REST requests from the Authorization header.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := utils.ParseAccessToken(token, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(contextUserIDKey, claims.UserID)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id set by AuthMiddleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	val, exists := c.Get(contextUserIDKey)
	if !exists {
		return uuid.Nil, errs.ErrUnauthenticated
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil, errs.ErrUnauthenticated
	}
	return id, nil
}
