package impl

import (
	"context"
	"log/slog"

	deliverycontext "sitewatch/internal/delivery/context"
	"sitewatch/internal/domain/entity"
	domainerrors "sitewatch/internal/domain/errors"
	"sitewatch/internal/domain/repository"
	"sitewatch/internal/domain/service"
	"sitewatch/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	txManager repository.TransactionManager
	tokenSvc  service.TokenService
	clock     service.Clock
	logger    *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(
	txManager repository.TransactionManager,
	tokenSvc service.TokenService,
	clock service.Clock,
	logger *slog.Logger,
) usecase.SessionUsecase {
	return &sessionService{
		txManager: txManager,
		tokenSvc:  tokenSvc,
		clock:     clock,
		logger:    logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Refresh rotates the presented refresh token. Exactly one concurrent
// rotation of a session can win: the database's conditional revoke is the
// serialization point, and the loser is treated as token reuse.
func (srv *sessionService) Refresh(ctx context.Context, input usecase.RefreshInput) (*usecase.TokenPair, error) {
	sessionID, err := srv.tokenSvc.ParseRefreshToken(input.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrTokenExpired) {
			return nil, domainerrors.ErrRefreshExpired
		}

		return nil, domainerrors.ErrRefreshInvalid
	}

	var pair *usecase.TokenPair
	var reuseDetected bool
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sessionRepo := repoFactory.SessionRepo()

		session, err := sessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return domainerrors.ErrRefreshInvalid
			}

			return errors.Wrap(err, "failed to find session")
		}

		if session.RevokedAt != nil {
			// The token was already rotated or revoked: someone is replaying
			// it. Kill every session the user has. The callback returns nil
			// so the revoke-all commits; the error surfaces after Execute.
			srv.log(ctx).Warn("Refresh token reuse detected",
				slog.Any("user_id", session.UserID),
				slog.Any("session_id", session.ID),
			)
			if err := sessionRepo.RevokeAllForUser(ctx, session.UserID, entity.RevokeReasonReuseDetected); err != nil {
				return errors.Wrap(err, "failed to revoke sessions after reuse")
			}
			reuseDetected = true

			return nil
		}

		if srv.tokenSvc.HashToken(input.RefreshToken) != session.TokenHash {
			return domainerrors.ErrRefreshInvalid
		}

		if !session.ExpiresAt.After(srv.clock.Now()) {
			return domainerrors.ErrRefreshExpired
		}

		successorID := uuid.New()
		if err := sessionRepo.Revoke(ctx, session.ID, entity.RevokeReasonRotated, &successorID); err != nil {
			if errors.Is(err, repository.ErrSessionAlreadyRevoked) {
				// Lost the rotation race: same treatment as replay.
				srv.log(ctx).Warn("Concurrent refresh rotation lost",
					slog.Any("user_id", session.UserID),
					slog.Any("session_id", session.ID),
				)
				if revokeErr := sessionRepo.RevokeAllForUser(ctx, session.UserID, entity.RevokeReasonReuseDetected); revokeErr != nil {
					return errors.Wrap(revokeErr, "failed to revoke sessions after reuse")
				}
				reuseDetected = true

				return nil
			}

			return errors.Wrap(err, "failed to revoke rotated session")
		}

		user, err := repoFactory.UserRepo().FindByID(ctx, session.UserID)
		if err != nil {
			return errors.Wrap(err, "failed to find session owner")
		}

		refreshToken, err := srv.tokenSvc.IssueRefreshToken(successorID)
		if err != nil {
			return errors.Wrap(err, "failed to issue refresh token")
		}
		accessToken, err := srv.tokenSvc.IssueAccessToken(user.ID, user.Role.String(), successorID)
		if err != nil {
			return errors.Wrap(err, "failed to issue access token")
		}

		now := srv.clock.Now()
		successor := &entity.AuthSession{
			ID:        successorID,
			UserID:    user.ID,
			TokenHash: srv.tokenSvc.HashToken(refreshToken),
			CreatedAt: now,
			ExpiresAt: now.Add(srv.tokenSvc.RefreshTokenTTL()),
			UserAgent: input.UserAgent,
			IP:        input.IP,
		}
		if err := sessionRepo.Create(ctx, successor); err != nil {
			return errors.Wrap(err, "failed to create successor session")
		}

		if err := sessionRepo.MarkUsed(ctx, session.ID); err != nil {
			// Telemetry only, rotation already succeeded.
			srv.log(ctx).Debug("Failed to stamp last_used_at", slog.Any("error", err))
		}

		pair = &usecase.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	if reuseDetected {
		return nil, domainerrors.ErrRefreshReuseDetected
	}

	srv.log(ctx).Info("Refresh token rotated", slog.Any("session_id", sessionID))

	return pair, nil
}

// Logout revokes the session behind the presented refresh token. Always
// succeeds from the client's point of view: malformed tokens and dead
// sessions are already logged out.
func (srv *sessionService) Logout(ctx context.Context, refreshToken string) error {
	sessionID, err := srv.tokenSvc.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sessionRepo := repoFactory.SessionRepo()

		session, err := sessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return nil
			}

			return errors.Wrap(err, "failed to find session")
		}

		if srv.tokenSvc.HashToken(refreshToken) != session.TokenHash {
			return nil
		}

		if err := sessionRepo.Revoke(ctx, session.ID, entity.RevokeReasonLogout, nil); err != nil {
			if errors.Is(err, repository.ErrSessionAlreadyRevoked) || errors.Is(err, repository.ErrSessionNotFound) {
				return nil
			}

			return errors.Wrap(err, "failed to revoke session")
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Logout failed", slog.Any("error", err))

		return errors.Wrap(err, "failed to log out")
	}

	srv.log(ctx).Info("Logged out", slog.Any("session_id", sessionID))

	return nil
}

// LogoutAll revokes every active session for the user.
func (srv *sessionService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.SessionRepo().RevokeAllForUser(ctx, userID, entity.RevokeReasonLogoutAll)
	})
	if err != nil {
		srv.log(ctx).Error("Logout-all failed", slog.Any("error", err), slog.Any("user_id", userID))

		return errors.Wrap(err, "failed to log out everywhere")
	}

	srv.log(ctx).Info("Logged out everywhere", slog.Any("user_id", userID))

	return nil
}

// GetActiveSessions lists the user's active sessions for device management.
func (srv *sessionService) GetActiveSessions(ctx context.Context, userID, currentSessionID uuid.UUID) ([]*entity.SessionInfo, error) {
	var sessions []*entity.SessionInfo

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		active, err := repoFactory.SessionRepo().FindActiveByUserID(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find active sessions")
		}

		sessions = make([]*entity.SessionInfo, 0, len(active))
		for _, session := range active {
			sessions = append(sessions, &entity.SessionInfo{
				ID:        session.ID,
				CreatedAt: session.CreatedAt,
				LastUsed:  session.LastUsedAt,
				ExpiresAt: session.ExpiresAt,
				UserAgent: session.UserAgent,
				IP:        session.IP,
				Current:   session.ID == currentSessionID,
			})
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to list sessions", slog.Any("error", err), slog.Any("user_id", userID))

		return nil, errors.Wrap(err, "failed to list sessions")
	}

	return sessions, nil
}

// RevokeSession revokes one of the user's own sessions by id.
func (srv *sessionService) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sessionRepo := repoFactory.SessionRepo()

		session, err := sessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return domainerrors.ErrSessionNotFound
			}

			return errors.Wrap(err, "failed to find session")
		}

		if session.UserID != userID {
			return domainerrors.ErrForbidden.WrapMessage("session does not belong to user")
		}

		if err := sessionRepo.Revoke(ctx, sessionID, entity.RevokeReasonLogout, nil); err != nil {
			if errors.Is(err, repository.ErrSessionAlreadyRevoked) {
				return nil
			}

			return errors.Wrap(err, "failed to revoke session")
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to revoke session",
			slog.Any("error", err),
			slog.Any("user_id", userID),
			slog.Any("session_id", sessionID),
		)

		return err
	}

	srv.log(ctx).Info("Session revoked", slog.Any("user_id", userID), slog.Any("session_id", sessionID))

	return nil
}

// CleanupExpiredSessions deletes long-expired session rows.
func (srv *sessionService) CleanupExpiredSessions(ctx context.Context) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.SessionRepo().DeleteExpired(ctx)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to cleanup expired sessions", slog.Any("error", err))

		return errors.Wrap(err, "failed to cleanup expired sessions")
	}

	return nil
}
