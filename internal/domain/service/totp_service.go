package service

import "time"

// TOTPService generates shared secrets and verifies time-based one-time
// codes (RFC 6238). Verification accepts a small clock-drift window.
type TOTPService interface {
	// GenerateSecret returns a new random secret, base32-encoded without padding.
	GenerateSecret() (string, error)

	// ProvisionURI builds the otpauth:// enrollment URI for authenticator apps.
	ProvisionURI(secret, account string) string

	// Verify checks a code against the secret at the given time.
	Verify(secret, code string, now time.Time) bool
}
