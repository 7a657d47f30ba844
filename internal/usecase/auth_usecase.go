// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"sitewatch/internal/domain/entity"
)

// --- Input DTOs ---

// LoginInput defines the data required for a user to log in. IP and
// UserAgent are client context captured by the delivery layer; IP also keys
// the brute-force limiter.
type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// TwoFactorLoginInput completes a two-factor gated login.
type TwoFactorLoginInput struct {
	ChallengeToken string
	Code           string
	IP             string
	UserAgent      string
}

// --- Output DTOs ---

// TokenPair carries freshly minted access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginOutput is the result of a successful credential check. When the
// account has two-factor enabled, Tokens is nil and ChallengeToken must be
// exchanged together with a TOTP code to obtain the pair.
type LoginOutput struct {
	TwoFactorRequired bool
	ChallengeToken    string
	Tokens            *TokenPair

	// TwoFactorSetupRequired signals that the account's role mandates
	// two-factor and setup has not been completed. Login still succeeds;
	// clients use this to steer the user into enrollment.
	TwoFactorSetupRequired bool

	User *entity.User
}

// AuthUsecase defines the interface for credential verification and login.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	// Login verifies credentials under brute-force throttling and either
	// issues a token pair or opens a two-factor challenge.
	Login(ctx context.Context, input LoginInput) (*LoginOutput, error)

	// CompleteTwoFactorLogin exchanges a pending challenge plus a valid TOTP
	// code for a token pair.
	CompleteTwoFactorLogin(ctx context.Context, input TwoFactorLoginInput) (*LoginOutput, error)
}
