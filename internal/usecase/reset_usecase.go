package usecase

import "context"

// ConfirmResetInput defines the data required to redeem a reset token.
type ConfirmResetInput struct {
	Token       string
	NewPassword string
}

// PasswordResetUsecase defines the interface for the credential-recovery flow.
type PasswordResetUsecase interface {
	// RequestReset issues a single-use reset token and mails it to the
	// account. Unknown emails are swallowed so the endpoint cannot be used
	// to probe which addresses exist.
	RequestReset(ctx context.Context, email string) error

	// ConfirmReset redeems a token, applies the new password, and revokes
	// every active session for the account.
	ConfirmReset(ctx context.Context, input ConfirmResetInput) error
}
