package impl

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"

	"sitewatch/config"
	deliverycontext "sitewatch/internal/delivery/context"
	"sitewatch/internal/domain/entity"
	domainerrors "sitewatch/internal/domain/errors"
	"sitewatch/internal/domain/repository"
	"sitewatch/internal/domain/service"
	"sitewatch/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const resetTokenBytes = 32

// resetService implements the PasswordResetUsecase interface.
type resetService struct {
	txManager repository.TransactionManager
	tokenSvc  service.TokenService
	hasher    service.PasswordHasher
	mailer    service.Mailer
	clock     service.Clock
	authCfg   *config.AuthConfig
	logger    *slog.Logger
}

// NewResetService is the constructor for resetService.
func NewResetService(
	txManager repository.TransactionManager,
	tokenSvc service.TokenService,
	hasher service.PasswordHasher,
	mailer service.Mailer,
	clock service.Clock,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.PasswordResetUsecase {
	return &resetService{
		txManager: txManager,
		tokenSvc:  tokenSvc,
		hasher:    hasher,
		mailer:    mailer,
		clock:     clock,
		authCfg:   cfg.Auth,
		logger:    logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *resetService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// RequestReset issues a single-use reset token and mails it. The outcome is
// identical for known and unknown emails so the endpoint cannot be used to
// probe which addresses exist.
func (srv *resetService) RequestReset(ctx context.Context, email string) error {
	var user *entity.User
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.UserRepo().FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		user = found

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Debug("Password reset requested for unknown email")

			return nil
		}

		return errors.Wrap(err, "failed to look up user")
	}

	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return errors.Wrap(err, "failed to generate reset token")
	}
	plaintext := base64.RawURLEncoding.EncodeToString(raw)

	now := srv.clock.Now()
	token := &entity.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: srv.tokenSvc.HashToken(plaintext),
		ExpiresAt: now.Add(srv.authCfg.ResetTokenTTL()),
		CreatedAt: now,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		resetRepo := repoFactory.ResetTokenRepo()

		// At most one outstanding token per user.
		if err := resetRepo.InvalidateAllForUser(ctx, user.ID); err != nil {
			return errors.Wrap(err, "failed to invalidate outstanding tokens")
		}

		return resetRepo.Create(ctx, token)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to create reset token", slog.Any("error", err), slog.Any("user_id", user.ID))

		return errors.Wrap(err, "failed to create reset token")
	}

	// Delivery is best effort; a relay hiccup must not change the response
	// the requester sees.
	if err := srv.mailer.SendPasswordResetEmail(ctx, user.Email, plaintext, token.ExpiresAt); err != nil {
		srv.log(ctx).Error("Failed to send reset email", slog.Any("error", err), slog.Any("user_id", user.ID))
	}

	srv.log(ctx).Info("Password reset token issued", slog.Any("user_id", user.ID))

	return nil
}

// ConfirmReset redeems a token, applies the new password, and revokes every
// active session for the account.
func (srv *resetService) ConfirmReset(ctx context.Context, input usecase.ConfirmResetInput) error {
	if err := srv.hasher.ValidatePasswordStrength(input.NewPassword); err != nil {
		return err
	}

	newHash, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	tokenHash := srv.tokenSvc.HashToken(input.Token)

	var userID uuid.UUID
	var expired bool
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		resetRepo := repoFactory.ResetTokenRepo()

		token, err := resetRepo.FindByHash(ctx, tokenHash)
		if err != nil {
			if errors.Is(err, repository.ErrResetTokenNotFound) {
				return domainerrors.ErrResetTokenInvalid
			}

			return errors.Wrap(err, "failed to find reset token")
		}

		if token.UsedAt != nil {
			return domainerrors.ErrResetTokenInvalid
		}

		if !token.ExpiresAt.After(srv.clock.Now()) {
			// Burn the expired token so it cannot be retried after a clock
			// adjustment. The callback returns nil so the burn commits; the
			// error surfaces after Execute.
			if err := resetRepo.MarkUsed(ctx, token.ID); err != nil &&
				!errors.Is(err, repository.ErrResetTokenAlreadyUsed) {
				return errors.Wrap(err, "failed to burn expired token")
			}
			expired = true

			return nil
		}

		// Conditional update; a concurrent redeemer loses here.
		if err := resetRepo.MarkUsed(ctx, token.ID); err != nil {
			if errors.Is(err, repository.ErrResetTokenAlreadyUsed) {
				return domainerrors.ErrResetTokenInvalid
			}

			return errors.Wrap(err, "failed to mark token used")
		}

		if err := repoFactory.UserRepo().UpdatePasswordHash(ctx, token.UserID, newHash); err != nil {
			return errors.Wrap(err, "failed to update password")
		}

		// A recovered credential invalidates every existing session.
		if err := repoFactory.SessionRepo().RevokeAllForUser(ctx, token.UserID, entity.RevokeReasonPasswordReset); err != nil {
			return errors.Wrap(err, "failed to revoke sessions")
		}

		userID = token.UserID

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Password reset confirmation failed", slog.Any("error", err))

		return err
	}
	if expired {
		srv.log(ctx).Warn("Password reset confirmation failed", slog.Any("error", domainerrors.ErrResetTokenExpired))

		return domainerrors.ErrResetTokenExpired
	}

	srv.log(ctx).Info("Password reset completed", slog.Any("user_id", userID))

	return nil
}
