package repository

import (
	"context"
	"errors"

	"sitewatch/internal/domain/entity"

	"github.com/google/uuid"
)

// Domain-specific errors for session persistence.
var (
	// ErrSessionNotFound is returned when a session row does not exist.
	ErrSessionNotFound = errors.New("auth session not found")
	// ErrDuplicateTokenHash is returned when a refresh-token hash collides
	// with an existing session row.
	ErrDuplicateTokenHash = errors.New("refresh token hash already exists")
	// ErrSessionAlreadyRevoked is returned by Revoke when the conditional
	// update matched no active row: someone else revoked or rotated first.
	ErrSessionAlreadyRevoked = errors.New("auth session already revoked")
)

// SessionRepository persists refresh sessions and their revocation chain.
//
// Revoke is the concurrency-critical operation: it must be a single
// conditional update (revoked_at IS NULL, and replaced_by IS NULL for the
// successor stamp) so that two concurrent rotations of the same token
// resolve to exactly one winner. The loser receives
// ErrSessionAlreadyRevoked and must treat its attempt as token reuse.
type SessionRepository interface {
	// Create inserts a new active session row.
	Create(ctx context.Context, session *entity.AuthSession) error

	// FindByID retrieves a session by its unique ID, revoked or not.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.AuthSession, error)

	// FindActiveByUserID lists the user's active sessions, newest first.
	FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.AuthSession, error)

	// MarkUsed stamps last_used_at with the current time. Best-effort
	// telemetry: idempotent and silent on missing rows.
	MarkUsed(ctx context.Context, id uuid.UUID) error

	// Revoke terminates a session, recording the reason and, when replacedBy
	// is non-nil, the successor id. First writer wins; later callers get
	// ErrSessionAlreadyRevoked.
	Revoke(ctx context.Context, id uuid.UUID, reason string, replacedBy *uuid.UUID) error

	// RevokeAllForUser revokes every currently-active session for a user.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason string) error

	// DeleteExpired removes sessions whose expiry is in the past. Periodic cleanup.
	DeleteExpired(ctx context.Context) error

	// CountActiveForUser returns the number of active sessions for a user.
	CountActiveForUser(ctx context.Context, userID uuid.UUID) (int, error)
}
