package usecase

import (
	"context"

	"sitewatch/internal/domain/entity"

	"github.com/google/uuid"
)

// RefreshInput defines the data required to rotate a refresh token.
type RefreshInput struct {
	RefreshToken string
	IP           string
	UserAgent    string
}

// SessionUsecase defines the interface for refresh-session lifecycle
// operations: rotation, logout, and device management.
type SessionUsecase interface {
	// Refresh rotates a refresh token: the presented token's session is
	// revoked and a successor session with a fresh pair is issued. Presenting
	// an already-rotated token is treated as theft and revokes every session
	// belonging to the user.
	Refresh(ctx context.Context, input RefreshInput) (*TokenPair, error)

	// Logout revokes the session behind the presented refresh token.
	// Idempotent: logging out an already-dead session is not an error.
	Logout(ctx context.Context, refreshToken string) error

	// LogoutAll revokes every active session for the user.
	LogoutAll(ctx context.Context, userID uuid.UUID) error

	// GetActiveSessions lists the user's active sessions for device
	// management, flagging the one matching currentSessionID.
	GetActiveSessions(ctx context.Context, userID, currentSessionID uuid.UUID) ([]*entity.SessionInfo, error)

	// RevokeSession revokes one of the user's own sessions by id.
	RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error

	// CleanupExpiredSessions deletes long-expired session rows.
	CleanupExpiredSessions(ctx context.Context) error
}
