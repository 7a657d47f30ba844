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

// twoFactorService implements the TwoFactorUsecase interface.
type twoFactorService struct {
	txManager repository.TransactionManager
	totp      service.TOTPService
	qr        service.QRCodeService
	clock     service.Clock
	logger    *slog.Logger
}

// NewTwoFactorService is the constructor for twoFactorService.
func NewTwoFactorService(
	txManager repository.TransactionManager,
	totp service.TOTPService,
	qr service.QRCodeService,
	clock service.Clock,
	logger *slog.Logger,
) usecase.TwoFactorUsecase {
	return &twoFactorService{
		txManager: txManager,
		totp:      totp,
		qr:        qr,
		clock:     clock,
		logger:    logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *twoFactorService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// BeginSetup generates a fresh secret and stores it as pending. The active
// secret, if any, keeps gating login until the new one is confirmed.
func (srv *twoFactorService) BeginSetup(ctx context.Context, userID uuid.UUID) (*usecase.TwoFactorSetupOutput, error) {
	secret, err := srv.totp.GenerateSecret()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate secret")
	}

	var user *entity.User
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		found, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return domainerrors.ErrNotFound.WrapMessage("user not found")
			}

			return errors.Wrap(err, "failed to find user")
		}
		user = found

		return userRepo.SetPendingTwoFactorSecret(ctx, userID, secret)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to begin two-factor setup", slog.Any("error", err), slog.Any("user_id", userID))

		return nil, err
	}

	srv.log(ctx).Info("Two-factor setup started", slog.Any("user_id", userID))

	return &usecase.TwoFactorSetupOutput{
		Secret:       secret,
		ProvisionURI: srv.totp.ProvisionURI(secret, user.Email),
	}, nil
}

// ConfirmSetup verifies a code against the pending secret and promotes it.
func (srv *twoFactorService) ConfirmSetup(ctx context.Context, userID uuid.UUID, code string) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		user, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return domainerrors.ErrNotFound.WrapMessage("user not found")
			}

			return errors.Wrap(err, "failed to find user")
		}

		if user.TwoFactorPendingSecret == "" {
			return domainerrors.ErrTwoFactorNotPending
		}

		if !srv.totp.Verify(user.TwoFactorPendingSecret, code, srv.clock.Now()) {
			return domainerrors.ErrTwoFactorInvalidCode
		}

		return userRepo.PromoteTwoFactorSecret(ctx, userID)
	})
	if err != nil {
		srv.log(ctx).Warn("Two-factor setup confirmation failed", slog.Any("error", err), slog.Any("user_id", userID))

		return err
	}

	srv.log(ctx).Info("Two-factor enabled", slog.Any("user_id", userID))

	return nil
}

// SetupQRCode renders the pending enrollment URI as a PNG QR code.
func (srv *twoFactorService) SetupQRCode(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	var uri string

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		user, err := repoFactory.UserRepo().FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return domainerrors.ErrNotFound.WrapMessage("user not found")
			}

			return errors.Wrap(err, "failed to find user")
		}

		if user.TwoFactorPendingSecret == "" {
			return domainerrors.ErrTwoFactorNotPending
		}
		uri = srv.totp.ProvisionURI(user.TwoFactorPendingSecret, user.Email)

		return nil
	})
	if err != nil {
		return nil, err
	}

	png, err := srv.qr.GeneratePNG(uri)
	if err != nil {
		srv.log(ctx).Error("Failed to render enrollment QR", slog.Any("error", err), slog.Any("user_id", userID))

		return nil, errors.Wrap(err, "failed to render QR code")
	}

	return png, nil
}
