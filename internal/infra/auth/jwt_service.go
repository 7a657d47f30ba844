// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"sitewatch/config"
	"sitewatch/internal/domain/service"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	accessSecret  string        // Secret key for signing access tokens.
	refreshSecret string        // Secret key for signing refresh tokens.
	accessTTL     time.Duration // Time-to-live for access tokens.
	refreshTTL    time.Duration // Time-to-live for refresh tokens.
	clock         service.Clock
}

// NewJWTService is the constructor for jwtService.
// It takes configuration values to create a new token service instance.
func NewJWTService(cfg *config.Config, clock service.Clock) (service.TokenService, error) {
	if cfg.SecretKey.Access == "" || cfg.SecretKey.Refresh == "" {
		return nil, errors.New("jwt secrets must be provided")
	}

	return &jwtService{
		accessSecret:  cfg.SecretKey.Access,
		refreshSecret: cfg.SecretKey.Refresh,
		accessTTL:     cfg.Auth.AccessTTL(),
		refreshTTL:    cfg.Auth.RefreshTTL(),
		clock:         clock,
	}, nil
}

// IssueAccessToken creates a short-lived token carrying subject, role, and
// the issuing session id.
func (s *jwtService) IssueAccessToken(userID uuid.UUID, role string, sessionID uuid.UUID) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"sid":  sessionID.String(),
		"type": tokenTypeAccess,
		"iat":  now.Unix(),
		"exp":  now.Add(s.accessTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.accessSecret))
}

// IssueRefreshToken creates a refresh token whose jti is the session id.
// The token carries no role so a stolen refresh token grants no stateless
// authorization on its own.
func (s *jwtService) IssueRefreshToken(sessionID uuid.UUID) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"jti":  sessionID.String(),
		"type": tokenTypeRefresh,
		"iat":  now.Unix(),
		"exp":  now.Add(s.refreshTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.refreshSecret))
}

// ParseAccessToken verifies the signature, expiry, and token type.
func (s *jwtService) ParseAccessToken(tokenString string) (*service.AccessClaims, error) {
	claims, err := s.parse(tokenString, s.accessSecret, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, service.ErrTokenInvalid
	}
	role, _ := claims["role"].(string)

	sid, _ := claims["sid"].(string)
	sessionID, err := uuid.Parse(sid)
	if err != nil {
		return nil, service.ErrTokenInvalid
	}

	return &service.AccessClaims{UserID: userID, Role: role, SessionID: sessionID}, nil
}

// ParseRefreshToken verifies the signature, expiry, and token type, and
// returns the bound session id.
func (s *jwtService) ParseRefreshToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.parse(tokenString, s.refreshSecret, tokenTypeRefresh)
	if err != nil {
		return uuid.Nil, err
	}

	jti, _ := claims["jti"].(string)
	sessionID, err := uuid.Parse(jti)
	if err != nil {
		return uuid.Nil, service.ErrTokenInvalid
	}

	return sessionID, nil
}

// HashToken returns the SHA-256 hex digest stored in place of the raw token.
func (s *jwtService) HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

// RefreshTokenTTL returns the configured duration for refresh tokens.
func (s *jwtService) RefreshTokenTTL() time.Duration {
	return s.refreshTTL
}

func (s *jwtService) parse(tokenString, secret, wantType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return []byte(secret), nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, service.ErrTokenExpired
		}

		return nil, service.ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, service.ErrTokenInvalid
	}
	if tokenType, _ := claims["type"].(string); tokenType != wantType {
		return nil, service.ErrTokenInvalid
	}

	return claims, nil
}
