package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/internal/errs"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, claims *AccessClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseAccessToken(t *testing.T) {
	userID := uuid.New()
	tokenStr := signToken(t, &AccessClaims{
		UserID: userID,
		Name:   "Dr. Silva",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	claims, err := ParseAccessToken(tokenStr, testSecret)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "Dr. Silva", claims.Name)
}

func TestParseAccessTokenRejections(t *testing.T) {
	userID := uuid.New()

	t.Run("wrong secret", func(t *testing.T) {
		tokenStr := signToken(t, &AccessClaims{UserID: userID}, "other-secret")
		_, err := ParseAccessToken(tokenStr, testSecret)
		assert.ErrorIs(t, err, errs.ErrUnauthenticated)
	})

	t.Run("expired", func(t *testing.T) {
		tokenStr := signToken(t, &AccessClaims{
			UserID: userID,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}, testSecret)
		_, err := ParseAccessToken(tokenStr, testSecret)
		assert.ErrorIs(t, err, errs.ErrUnauthenticated)
	})

	t.Run("missing user id", func(t *testing.T) {
		tokenStr := signToken(t, &AccessClaims{}, testSecret)
		_, err := ParseAccessToken(tokenStr, testSecret)
		assert.ErrorIs(t, err, errs.ErrUnauthenticated)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseAccessToken("not.a.token", testSecret)
		assert.ErrorIs(t, err, errs.ErrUnauthenticated)
	})

	t.Run("unsigned", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &AccessClaims{UserID: userID})
		tokenStr, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = ParseAccessToken(tokenStr, testSecret)
		assert.ErrorIs(t, err, errs.ErrUnauthenticated)
	})
}
