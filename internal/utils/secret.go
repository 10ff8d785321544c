package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GenerateRoomSecret returns a fresh opaque join credential and its bcrypt
// hash. Only the hash is persisted; the plaintext is handed to the two
// parties once, at room creation.
func GenerateRoomSecret() (secret, hash string, err error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate room secret: %w", err)
	}
	secret = base64.RawURLEncoding.EncodeToString(raw)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash room secret: %w", err)
	}
	return secret, string(hashed), nil
}

// VerifyRoomSecret checks a presented secret against the stored hash.
func VerifyRoomSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
