package usecase

import (
	"context"

	"github.com/google/uuid"
)

// TwoFactorSetupOutput returns the enrollment material for an authenticator app.
type TwoFactorSetupOutput struct {
	Secret       string
	ProvisionURI string
}

// TwoFactorUsecase defines the interface for TOTP enrollment. Enrollment is
// two-phase: BeginSetup stores a pending secret, ConfirmSetup proves code
// possession and activates it. An abandoned BeginSetup never affects login.
type TwoFactorUsecase interface {
	// BeginSetup generates a fresh secret for the user and stores it as
	// pending. Calling it again replaces the previous pending secret.
	BeginSetup(ctx context.Context, userID uuid.UUID) (*TwoFactorSetupOutput, error)

	// ConfirmSetup verifies a code against the pending secret and promotes
	// it to the active slot.
	ConfirmSetup(ctx context.Context, userID uuid.UUID, code string) error

	// SetupQRCode renders the pending enrollment URI as a PNG QR code.
	SetupQRCode(ctx context.Context, userID uuid.UUID) ([]byte, error)
}
