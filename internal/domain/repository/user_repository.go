// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"sitewatch/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrUserNotFound is a domain-specific error returned when a user is not found.
var ErrUserNotFound = errors.New("user not found")

// UserRepository exposes the slice of the users table the auth core is
// allowed to touch: credential lookup, the two-factor secret fields, and the
// password hash. Profile data belongs to the identity subsystem.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their email address (case-insensitive).
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// UpdatePasswordHash replaces the stored credential hash for a user.
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error

	// SetPendingTwoFactorSecret stores a freshly generated secret awaiting confirmation.
	// The active secret and enabled flag are left untouched.
	SetPendingTwoFactorSecret(ctx context.Context, userID uuid.UUID, secret string) error

	// PromoteTwoFactorSecret moves the pending secret into the active slot,
	// sets the enabled flag and clears the pending field in a single update.
	PromoteTwoFactorSecret(ctx context.Context, userID uuid.UUID) error
}
