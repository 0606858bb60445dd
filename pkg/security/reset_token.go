package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ResetTokenLength is the hex length of a password reset token (32 random bytes).
const ResetTokenLength = 64

// ResetToken is a one-time password reset secret. Value is emailed to the
// user; only Digest is persisted.
type ResetToken struct {
	Value  string
	Digest string
}

func NewResetToken() (ResetToken, error) {
	buf := make([]byte, ResetTokenLength/2)
	if _, err := rand.Read(buf); err != nil {
		return ResetToken{}, fmt.Errorf("read reset token: %w", err)
	}
	value := hex.EncodeToString(buf)
	return ResetToken{Value: value, Digest: DigestResetToken(value)}, nil
}

// DigestResetToken returns the stored lookup form of a token from a reset link.
func DigestResetToken(value string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(value))))
	return hex.EncodeToString(sum[:])
}
