package service

import (
	"errors"

	"github.com/google/uuid"
)

// Challenge store outcomes.
var (
	// ErrChallengeNotFound is returned for unknown or already-consumed tokens.
	ErrChallengeNotFound = errors.New("two-factor challenge not found")
	// ErrChallengeExpired is returned when the challenge TTL has elapsed.
	ErrChallengeExpired = errors.New("two-factor challenge expired")
)

// ChallengeStore holds short-lived two-factor login challenges. Challenges
// are ephemeral process-local state, never written to durable storage: a
// process restart simply forces the user to log in again.
//
// A failed code attempt must NOT consume the challenge, so lookup and
// consumption are separate: Lookup validates existence and expiry,
// Consume atomically removes the entry once the code has been verified.
type ChallengeStore interface {
	// Issue creates a challenge bound to the user and returns its token.
	Issue(userID uuid.UUID) (string, error)

	// Lookup resolves a token to its user without consuming it.
	Lookup(token string) (uuid.UUID, error)

	// Consume atomically removes the challenge, returning the bound user.
	// A second concurrent consumer gets ErrChallengeNotFound.
	Consume(token string) (uuid.UUID, error)
}
