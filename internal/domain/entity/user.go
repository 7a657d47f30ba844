// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record this subsystem authenticates against. Profile,
// tenancy and notification data live in the identity/profile subsystem; the
// auth core only reads credentials and owns the two-factor secret fields.
type User struct {
	ID           uuid.UUID // The global unique identifier for the account.
	TenantID     uuid.UUID // The tenant this account belongs to.
	Email        string    // Login identifier, unique per tenant.
	Name         string    // Display name, informational only.
	Role         Role      // Access level used in access-token claims.
	PasswordHash string    // bcrypt hash of the account password.

	// Two-factor state is split into a pending and an active secret so an
	// unconfirmed enrollment can never lock the account out.
	TwoFactorSecret        string // Active TOTP secret (base32), empty until setup is confirmed.
	TwoFactorPendingSecret string // Secret issued by BeginSetup, awaiting code confirmation.
	TwoFactorEnabled       bool   // True once a pending secret has been confirmed.

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TwoFactorActive reports whether login must be gated by a TOTP challenge.
func (u *User) TwoFactorActive() bool {
	return u.TwoFactorEnabled && u.TwoFactorSecret != ""
}
