package repository

import (
	"context"
	"errors"

	"sitewatch/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrResetTokenNotFound is returned when no reset token matches a hash.
var ErrResetTokenNotFound = errors.New("password reset token not found")

// ErrResetTokenAlreadyUsed is returned by MarkUsed when the conditional
// update matched no unused row: a concurrent consumer won the race.
var ErrResetTokenAlreadyUsed = errors.New("password reset token already used")

// ResetTokenRepository persists single-use password-reset tokens.
//
// MarkUsed must be a conditional update guarded by used_at IS NULL so that
// concurrent consumers of the same token resolve to one winner; the loser
// receives ErrResetTokenAlreadyUsed.
type ResetTokenRepository interface {
	// Create inserts a new reset token row.
	Create(ctx context.Context, token *entity.PasswordResetToken) error

	// FindByHash retrieves the most recent token row with the given hash.
	FindByHash(ctx context.Context, tokenHash string) (*entity.PasswordResetToken, error)

	// MarkUsed stamps used_at on an unused token. First writer wins.
	MarkUsed(ctx context.Context, id uuid.UUID) error

	// InvalidateAllForUser marks every outstanding unused token for the user
	// as used, enforcing the single-outstanding-token invariant.
	InvalidateAllForUser(ctx context.Context, userID uuid.UUID) error
}
