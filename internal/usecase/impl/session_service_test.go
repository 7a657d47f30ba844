package impl

import (
	"context"
	"testing"
	"time"

	"sitewatch/internal/domain/entity"
	domainerrors "sitewatch/internal/domain/errors"
	"sitewatch/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loginFor issues a real session through the auth service so the session
// tests operate on tokens minted the same way production does.
func loginFor(t *testing.T, fx *fixture, email, password string) *usecase.TokenPair {
	t.Helper()

	out, err := fx.authService().Login(context.Background(), loginInput(email, password))
	require.NoError(t, err)
	require.NotNil(t, out.Tokens)

	return out.Tokens
}

func refreshInput(token string) usecase.RefreshInput {
	return usecase.RefreshInput{
		RefreshToken: token,
		IP:           "198.51.100.4",
		UserAgent:    "go-test-rotated",
	}
}

func TestSessionService_Refresh_RotatesSession(t *testing.T) {
	fx := newFixture(t)
	user := fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	pair := loginFor(t, fx, "tech@example.com", "Password1")
	svc := fx.sessionService()

	oldID, err := fx.tokenSvc.ParseRefreshToken(pair.RefreshToken)
	require.NoError(t, err)

	fx.clock.Advance(time.Minute)

	rotated, err := svc.Refresh(context.Background(), refreshInput(pair.RefreshToken))
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)

	newID, err := fx.tokenSvc.ParseRefreshToken(rotated.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, oldID, newID)

	// Old session is terminal and points at its successor.
	old := fx.store.session(oldID)
	require.NotNil(t, old.RevokedAt)
	require.NotNil(t, old.RevokedReason)
	assert.Equal(t, entity.RevokeReasonRotated, *old.RevokedReason)
	require.NotNil(t, old.ReplacedBy)
	assert.Equal(t, newID, *old.ReplacedBy)
	assert.NotNil(t, old.LastUsedAt)

	// Successor is a fresh row with a full TTL and the new client context.
	successor := fx.store.session(newID)
	require.NotNil(t, successor)
	assert.Equal(t, user.ID, successor.UserID)
	assert.Nil(t, successor.RevokedAt)
	assert.Equal(t, fx.clock.Now().Add(fx.cfg.Auth.RefreshTTL()), successor.ExpiresAt)
	assert.Equal(t, "198.51.100.4", successor.IP)
	assert.Equal(t, "go-test-rotated", successor.UserAgent)
}

func TestSessionService_Refresh_ReuseRevokesEverything(t *testing.T) {
	fx := newFixture(t)
	user := fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	pair := loginFor(t, fx, "tech@example.com", "Password1")
	other := loginFor(t, fx, "tech@example.com", "Password1")
	svc := fx.sessionService()
	ctx := context.Background()

	rotated, err := svc.Refresh(ctx, refreshInput(pair.RefreshToken))
	require.NoError(t, err)

	// Replaying the rotated token is treated as theft.
	_, err = svc.Refresh(ctx, refreshInput(pair.RefreshToken))
	assert.ErrorIs(t, err, domainerrors.ErrRefreshReuseDetected)

	// Every session the user had is now dead, including the unrelated one
	// and the rotation's own successor.
	for _, token := range []string{rotated.RefreshToken, other.RefreshToken} {
		id, parseErr := fx.tokenSvc.ParseRefreshToken(token)
		require.NoError(t, parseErr)
		sess := fx.store.session(id)
		require.NotNil(t, sess.RevokedAt)
		assert.Equal(t, entity.RevokeReasonReuseDetected, *sess.RevokedReason)
	}

	count, err := fx.store.SessionRepo().CountActiveForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSessionService_Refresh_ReuseRevocationsSurviveTheError(t *testing.T) {
	fx := newFixture(t)
	user := fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	pair := loginFor(t, fx, "tech@example.com", "Password1")
	svc := fx.sessionService()
	ctx := context.Background()

	_, err := svc.Refresh(ctx, refreshInput(pair.RefreshToken))
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, refreshInput(pair.RefreshToken))
	assert.ErrorIs(t, err, domainerrors.ErrRefreshReuseDetected)

	// The transaction fake rolls back on error like the real manager, so a
	// zero count here proves the revoke-all was committed, not rolled back
	// together with the reuse error.
	count, err := fx.store.SessionRepo().CountActiveForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSessionService_Refresh_RevokedSessionTreatedAsReuseBeforeHashCheck(t *testing.T) {
	fx := newFixture(t)
	user := fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	pair := loginFor(t, fx, "tech@example.com", "Password1")
	svc := fx.sessionService()
	ctx := context.Background()

	oldID, err := fx.tokenSvc.ParseRefreshToken(pair.RefreshToken)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, refreshInput(pair.RefreshToken))
	require.NoError(t, err)

	// Even with a stale stored hash the replay of a revoked session is
	// classified as reuse, not as an invalid token.
	fx.store.mu.Lock()
	fx.store.sessions[oldID].TokenHash = "stale"
	fx.store.mu.Unlock()

	_, err = svc.Refresh(ctx, refreshInput(pair.RefreshToken))
	assert.ErrorIs(t, err, domainerrors.ErrRefreshReuseDetected)

	count, err := fx.store.SessionRepo().CountActiveForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSessionService_Refresh_ExpiredToken(t *testing.T) {
	fx := newFixture(t)
	fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	pair := loginFor(t, fx, "tech@example.com", "Password1")
	svc := fx.sessionService()

	fx.clock.Advance(fx.cfg.Auth.RefreshTTL() + time.Hour)

	_, err := svc.Refresh(context.Background(), refreshInput(pair.RefreshToken))
	assert.ErrorIs(t, err, domainerrors.ErrRefreshExpired)
}

func TestSessionService_Refresh_GarbageToken(t *testing.T) {
	fx := newFixture(t)
	svc := fx.sessionService()

	_, err := svc.Refresh(context.Background(), refreshInput("not-a-jwt"))
	assert.ErrorIs(t, err, domainerrors.ErrRefreshInvalid)
}

func TestSessionService_Logout_Idempotent(t *testing.T) {
	fx := newFixture(t)
	fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	pair := loginFor(t, fx, "tech@example.com", "Password1")
	svc := fx.sessionService()
	ctx := context.Background()

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))

	id, err := fx.tokenSvc.ParseRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	sess := fx.store.session(id)
	require.NotNil(t, sess.RevokedAt)
	assert.Equal(t, entity.RevokeReasonLogout, *sess.RevokedReason)

	// Logging out again, or with garbage, is still success.
	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, svc.Logout(ctx, "not-a-jwt"))
}

func TestSessionService_LogoutAll(t *testing.T) {
	fx := newFixture(t)
	user := fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	loginFor(t, fx, "tech@example.com", "Password1")
	loginFor(t, fx, "tech@example.com", "Password1")
	svc := fx.sessionService()
	ctx := context.Background()

	require.NoError(t, svc.LogoutAll(ctx, user.ID))

	count, err := fx.store.SessionRepo().CountActiveForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSessionService_GetActiveSessions_FlagsCurrent(t *testing.T) {
	fx := newFixture(t)
	user := fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	first := loginFor(t, fx, "tech@example.com", "Password1")
	fx.clock.Advance(time.Minute)
	loginFor(t, fx, "tech@example.com", "Password1")
	svc := fx.sessionService()

	currentID, err := fx.tokenSvc.ParseRefreshToken(first.RefreshToken)
	require.NoError(t, err)

	sessions, err := svc.GetActiveSessions(context.Background(), user.ID, currentID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	// Newest first.
	assert.True(t, sessions[0].CreatedAt.After(sessions[1].CreatedAt))

	var currentCount int
	for _, info := range sessions {
		if info.Current {
			currentCount++
			assert.Equal(t, currentID, info.ID)
		}
	}
	assert.Equal(t, 1, currentCount)
}

func TestSessionService_RevokeSession_OwnershipEnforced(t *testing.T) {
	fx := newFixture(t)
	owner := fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	intruder := fx.addUser(t, "other@example.com", "Password1", entity.RoleViewer, "")
	pair := loginFor(t, fx, "tech@example.com", "Password1")
	svc := fx.sessionService()
	ctx := context.Background()

	sessionID, err := fx.tokenSvc.ParseRefreshToken(pair.RefreshToken)
	require.NoError(t, err)

	err = svc.RevokeSession(ctx, intruder.ID, sessionID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
	assert.Nil(t, fx.store.session(sessionID).RevokedAt)

	require.NoError(t, svc.RevokeSession(ctx, owner.ID, sessionID))
	assert.NotNil(t, fx.store.session(sessionID).RevokedAt)

	// Revoking an already-revoked session is fine.
	require.NoError(t, svc.RevokeSession(ctx, owner.ID, sessionID))

	err = svc.RevokeSession(ctx, owner.ID, uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrSessionNotFound)
}

func TestSessionService_CleanupExpiredSessions(t *testing.T) {
	fx := newFixture(t)
	fx.addUser(t, "tech@example.com", "Password1", entity.RoleTechnician, "")
	loginFor(t, fx, "tech@example.com", "Password1")
	svc := fx.sessionService()

	fx.clock.Advance(fx.cfg.Auth.RefreshTTL() + time.Hour)
	require.NoError(t, svc.CleanupExpiredSessions(context.Background()))

	assert.Equal(t, 0, fx.store.sessionCount())
}
