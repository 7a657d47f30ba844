package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Token verification outcomes.
var (
	// ErrTokenExpired is returned when a token's exp claim has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for malformed tokens, bad signatures, or
	// tokens of the wrong type.
	ErrTokenInvalid = errors.New("token invalid")
)

// AccessClaims is the decoded payload of a verified access token.
type AccessClaims struct {
	UserID    uuid.UUID
	Role      string
	SessionID uuid.UUID
}

// TokenService mints and verifies bearer tokens. The signing algorithm is an
// implementation detail behind this interface; callers only rely on the
// claim semantics: access tokens carry subject and role, refresh tokens
// carry the session id as their jti and nothing else.
type TokenService interface {
	// IssueAccessToken creates a short-lived stateless access token. The
	// session id rides along as the sid claim so protected endpoints can
	// tell which session the caller is on.
	IssueAccessToken(userID uuid.UUID, role string, sessionID uuid.UUID) (string, error)

	// IssueRefreshToken creates a refresh token bound 1:1 to a session id.
	IssueRefreshToken(sessionID uuid.UUID) (string, error)

	// ParseAccessToken verifies signature and expiry of an access token.
	ParseAccessToken(token string) (*AccessClaims, error)

	// ParseRefreshToken verifies signature and expiry of a refresh token and
	// returns the session id it is bound to.
	ParseRefreshToken(token string) (uuid.UUID, error)

	// HashToken returns the hex digest stored in place of the raw token.
	HashToken(token string) string

	// RefreshTokenTTL returns the configured refresh-token lifetime.
	RefreshTokenTTL() time.Duration
}
