package impl

import (
	"context"
	"testing"
	"time"

	"sitewatch/internal/domain/entity"
	domainerrors "sitewatch/internal/domain/errors"
	"sitewatch/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetService_RequestReset_MailsSingleUseToken(t *testing.T) {
	fx := newFixture(t)
	user := fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	svc := fx.resetService()

	require.NoError(t, svc.RequestReset(context.Background(), "tech@example.com"))

	mail, ok := fx.mailer.last()
	require.True(t, ok)
	assert.Equal(t, "tech@example.com", mail.email)
	assert.NotEmpty(t, mail.token)

	// Only the hash is persisted.
	tokens := fx.store.resetTokensForUser(user.ID)
	require.Len(t, tokens, 1)
	assert.Equal(t, fx.tokenSvc.HashToken(mail.token), tokens[0].TokenHash)
	assert.Nil(t, tokens[0].UsedAt)
	assert.Equal(t, fx.clock.Now().Add(fx.cfg.Auth.ResetTokenTTL()), tokens[0].ExpiresAt)
}

func TestResetService_RequestReset_UnknownEmailSilent(t *testing.T) {
	fx := newFixture(t)
	svc := fx.resetService()

	require.NoError(t, svc.RequestReset(context.Background(), "nobody@example.com"))
	assert.Equal(t, 0, fx.mailer.count())
}

func TestResetService_RequestReset_SupersedesOutstandingToken(t *testing.T) {
	fx := newFixture(t)
	fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	svc := fx.resetService()
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "tech@example.com"))
	first, _ := fx.mailer.last()
	fx.clock.Advance(time.Minute)
	require.NoError(t, svc.RequestReset(ctx, "tech@example.com"))

	// The superseded token is dead even though it has not expired.
	err := svc.ConfirmReset(ctx, usecase.ConfirmResetInput{
		Token:       first.token,
		NewPassword: "NewPassword1",
	})
	assert.ErrorIs(t, err, domainerrors.ErrResetTokenInvalid)
}

func TestResetService_ConfirmReset_AppliesPasswordAndRevokesSessions(t *testing.T) {
	fx := newFixture(t)
	user := fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	loginFor(t, fx, "tech@example.com", "Password1")
	svc := fx.resetService()
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "tech@example.com"))
	mail, _ := fx.mailer.last()

	require.NoError(t, svc.ConfirmReset(ctx, usecase.ConfirmResetInput{
		Token:       mail.token,
		NewPassword: "NewPassword1",
	}))

	stored := fx.store.user(user.ID)
	assert.True(t, fx.hasher.Check("NewPassword1", stored.PasswordHash))
	assert.False(t, fx.hasher.Check("Password1", stored.PasswordHash))

	// A recovered credential kills every session.
	count, err := fx.store.SessionRepo().CountActiveForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	tokens := fx.store.resetTokensForUser(user.ID)
	require.Len(t, tokens, 1)
	assert.NotNil(t, tokens[0].UsedAt)
}

func TestResetService_ConfirmReset_SingleUse(t *testing.T) {
	fx := newFixture(t)
	fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	svc := fx.resetService()
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "tech@example.com"))
	mail, _ := fx.mailer.last()

	input := usecase.ConfirmResetInput{Token: mail.token, NewPassword: "NewPassword1"}
	require.NoError(t, svc.ConfirmReset(ctx, input))

	err := svc.ConfirmReset(ctx, input)
	assert.ErrorIs(t, err, domainerrors.ErrResetTokenInvalid)
}

func TestResetService_ConfirmReset_ExpiredTokenBurned(t *testing.T) {
	fx := newFixture(t)
	user := fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	svc := fx.resetService()
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "tech@example.com"))
	mail, _ := fx.mailer.last()

	fx.clock.Advance(fx.cfg.Auth.ResetTokenTTL() + time.Second)

	err := svc.ConfirmReset(ctx, usecase.ConfirmResetInput{
		Token:       mail.token,
		NewPassword: "NewPassword1",
	})
	assert.ErrorIs(t, err, domainerrors.ErrResetTokenExpired)

	// The burn commits even though the redemption fails; the transaction
	// fake rolls back on error like the real manager.
	tokens := fx.store.resetTokensForUser(user.ID)
	require.Len(t, tokens, 1)
	assert.NotNil(t, tokens[0].UsedAt)

	// Password unchanged.
	stored := fx.store.user(user.ID)
	assert.True(t, fx.hasher.Check("Password1", stored.PasswordHash))

	// A clock correction back inside the validity window cannot resurrect
	// the burned token.
	fx.clock.Advance(-2 * time.Second)
	err = svc.ConfirmReset(ctx, usecase.ConfirmResetInput{
		Token:       mail.token,
		NewPassword: "NewPassword1",
	})
	assert.ErrorIs(t, err, domainerrors.ErrResetTokenInvalid)
}

func TestResetService_ConfirmReset_GarbageToken(t *testing.T) {
	fx := newFixture(t)
	svc := fx.resetService()

	err := svc.ConfirmReset(context.Background(), usecase.ConfirmResetInput{
		Token:       "definitely-not-issued",
		NewPassword: "NewPassword1",
	})
	assert.ErrorIs(t, err, domainerrors.ErrResetTokenInvalid)
}

func TestResetService_ConfirmReset_WeakPasswordRejectedBeforeLookup(t *testing.T) {
	fx := newFixture(t)
	fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	svc := fx.resetService()
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "tech@example.com"))
	mail, _ := fx.mailer.last()

	err := svc.ConfirmReset(ctx, usecase.ConfirmResetInput{
		Token:       mail.token,
		NewPassword: "short",
	})
	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PASSWORD_STRENGTH", appErr.ErrorCode())

	// The token survives the policy rejection and still works.
	require.NoError(t, svc.ConfirmReset(ctx, usecase.ConfirmResetInput{
		Token:       mail.token,
		NewPassword: "NewPassword1",
	}))
}
