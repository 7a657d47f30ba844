package entity

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken is a single-use credential-recovery token. Only the
// SHA-256 hash of the token is persisted; the plaintext is handed to the
// mailer once and never stored. At most one unused, unexpired token exists
// per user: creating a new one marks all prior outstanding tokens used.
type PasswordResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string // SHA-256 hex of the raw token, unique.
	ExpiresAt time.Time
	UsedAt    *time.Time // Set exactly once; there is no used -> unused transition.
	CreatedAt time.Time
}

// Consumable reports whether the token can still be redeemed at the given time.
func (t *PasswordResetToken) Consumable(now time.Time) bool {
	return t.UsedAt == nil && t.ExpiresAt.After(now)
}
