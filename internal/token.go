package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const minResetTokenBytes = 16

// NewResetToken draws size random bytes and hex-encodes them. The default
// 32 bytes yields a 64-character token (~256 bits of entropy).
func NewResetToken(size int) (string, error) {
	if size < minResetTokenBytes {
		return "", errors.New("reset token size too small")
	}

	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return hex.EncodeToString(raw), nil
}

// HashResetToken digests the token string. Stores keep only the digest;
// the raw token exists solely in the reset e-mail.
func HashResetToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

// NormalizeEmail case-folds and trims an email so it can serve as a store
// key. Reset tokens are keyed case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
