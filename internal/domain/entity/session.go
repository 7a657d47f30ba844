package entity

import (
	"time"

	"github.com/google/uuid"
)

// Revocation reasons recorded on auth sessions. The reason is informational;
// the revoked_at timestamp alone makes a session terminal.
const (
	RevokeReasonLogout        = "logout"
	RevokeReasonLogoutAll     = "logout_all"
	RevokeReasonRotated       = "rotated"
	RevokeReasonReuseDetected = "reuse_detected"
	RevokeReasonPasswordReset = "password_reset"
)

// AuthSession tracks one refresh-token lineage. The session ID doubles as the
// refresh token's jti claim; the raw token itself is never stored, only its
// SHA-256 hash. A session is active while revoked_at is null and expires_at
// is in the future; revocation is terminal.
type AuthSession struct {
	ID            uuid.UUID  // Session id, also the refresh token's jti.
	UserID        uuid.UUID  // Owning account.
	TokenHash     string     // SHA-256 hex of the current refresh token, unique.
	CreatedAt     time.Time  // When the session was issued.
	LastUsedAt    *time.Time // Best-effort timestamp of the last refresh, nil until first use.
	RevokedAt     *time.Time // Set exactly once; a revoked session never reactivates.
	RevokedReason *string    // One of the RevokeReason constants.
	ReplacedBy    *uuid.UUID // Successor session id, set once by the winning rotation.
	ExpiresAt     time.Time  // Hard expiry of this session's refresh token.
	UserAgent     string     // Client context captured at issuance.
	IP            string     // Client context captured at issuance.
}

// Active reports whether the session can still be rotated at the given time.
func (s *AuthSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// SessionInfo is the client-facing view of a session for device management.
type SessionInfo struct {
	ID        uuid.UUID  `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	UserAgent string     `json:"user_agent"`
	IP        string     `json:"ip"`
	Current   bool       `json:"current"`
}
