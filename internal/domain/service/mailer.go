package service

import (
	"context"
	"time"
)

// Mailer delivers outbound account emails. The auth core only hands the
// plaintext reset token to the mailer; it never persists it.
type Mailer interface {
	// SendPasswordResetEmail delivers a reset token to the account's address.
	SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error
}
