// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
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

// dummyPasswordHash is compared against when the account does not exist, so
// unknown-email and wrong-password logins take comparable time.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// authService implements the AuthUsecase interface.
type authService struct {
	txManager  repository.TransactionManager
	tokenSvc   service.TokenService
	hasher     service.PasswordHasher
	totp       service.TOTPService
	limiter    service.LoginRateLimiter
	challenges service.ChallengeStore
	clock      service.Clock
	authCfg    *config.AuthConfig
	logger     *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(
	txManager repository.TransactionManager,
	tokenSvc service.TokenService,
	hasher service.PasswordHasher,
	totp service.TOTPService,
	limiter service.LoginRateLimiter,
	challenges service.ChallengeStore,
	clock service.Clock,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.AuthUsecase {
	return &authService{
		txManager:  txManager,
		tokenSvc:   tokenSvc,
		hasher:     hasher,
		totp:       totp,
		limiter:    limiter,
		challenges: challenges,
		clock:      clock,
		authCfg:    cfg.Auth,
		logger:     logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Login verifies credentials under brute-force throttling. Unknown email and
// wrong password are indistinguishable to the caller.
func (srv *authService) Login(ctx context.Context, input usecase.LoginInput) (*usecase.LoginOutput, error) {
	if decision := srv.limiter.Check(input.IP, input.Email); !decision.Allowed {
		srv.log(ctx).Warn("Login blocked by rate limiter",
			slog.String("reason", string(decision.Reason)),
			slog.Time("locked_until", decision.LockedUntil),
		)

		return nil, domainerrors.NewLockoutError(decision.LockedUntil, string(decision.Reason))
	}

	var user *entity.User
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.UserRepo().FindByEmail(ctx, input.Email)
		if err != nil {
			return err
		}
		user = found

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn a comparable bcrypt verification before rejecting.
			srv.hasher.Check(input.Password, dummyPasswordHash)

			return nil, srv.recordFailure(ctx, input.IP, input.Email)
		}
		srv.log(ctx).Error("Login user lookup failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to look up user")
	}

	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		return nil, srv.recordFailure(ctx, input.IP, input.Email)
	}

	srv.limiter.RecordSuccess(input.IP, input.Email)

	if user.TwoFactorActive() {
		challengeToken, err := srv.challenges.Issue(user.ID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to issue two-factor challenge")
		}
		srv.log(ctx).Info("Login pending two-factor", slog.Any("user_id", user.ID))

		return &usecase.LoginOutput{
			TwoFactorRequired: true,
			ChallengeToken:    challengeToken,
			User:              user,
		}, nil
	}

	pair, err := srv.issueSession(ctx, user, input.IP, input.UserAgent)
	if err != nil {
		return nil, err
	}

	out := &usecase.LoginOutput{
		Tokens: pair,
		User:   user,
	}
	// Enforced-role accounts without two-factor still log in, but the client
	// is told enrollment is overdue.
	if srv.authCfg.TwoFactorEnabled && srv.authCfg.EnforcesRole(user.Role.String()) {
		out.TwoFactorSetupRequired = true
	}

	srv.log(ctx).Info("Login succeeded",
		slog.Any("user_id", user.ID),
		slog.Bool("two_factor_setup_required", out.TwoFactorSetupRequired),
	)

	return out, nil
}

// CompleteTwoFactorLogin exchanges a pending challenge and TOTP code for tokens.
func (srv *authService) CompleteTwoFactorLogin(ctx context.Context, input usecase.TwoFactorLoginInput) (*usecase.LoginOutput, error) {
	if decision := srv.limiter.Check(input.IP, ""); !decision.Allowed {
		return nil, domainerrors.NewLockoutError(decision.LockedUntil, string(decision.Reason))
	}

	userID, err := srv.challenges.Lookup(input.ChallengeToken)
	if err != nil {
		if errors.Is(err, service.ErrChallengeExpired) {
			return nil, domainerrors.ErrChallengeExpired
		}

		return nil, domainerrors.ErrChallengeInvalid
	}

	var user *entity.User
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.UserRepo().FindByID(ctx, userID)
		if err != nil {
			return err
		}
		user = found

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrChallengeInvalid
		}

		return nil, errors.Wrap(err, "failed to look up user")
	}

	if !user.TwoFactorActive() {
		// The secret was disabled between challenge issuance and completion.
		return nil, domainerrors.ErrChallengeInvalid
	}

	if !srv.totp.Verify(user.TwoFactorSecret, input.Code, srv.clock.Now()) {
		// A wrong code counts against the limiter but keeps the challenge
		// alive so the user can retry.
		srv.limiter.RecordFailure(input.IP, user.Email)
		srv.log(ctx).Warn("Two-factor code rejected", slog.Any("user_id", user.ID))

		return nil, domainerrors.ErrTwoFactorInvalidCode
	}

	if _, err := srv.challenges.Consume(input.ChallengeToken); err != nil {
		// A concurrent completion consumed it first.
		return nil, domainerrors.ErrChallengeInvalid
	}

	srv.limiter.RecordSuccess(input.IP, user.Email)

	pair, err := srv.issueSession(ctx, user, input.IP, input.UserAgent)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Two-factor login succeeded", slog.Any("user_id", user.ID))

	return &usecase.LoginOutput{
		Tokens: pair,
		User:   user,
	}, nil
}

// recordFailure books a failed attempt and converts the outcome into the
// client-facing error: lockout once the budget is exhausted, uniform invalid
// credentials otherwise.
func (srv *authService) recordFailure(ctx context.Context, ip, email string) error {
	if until, locked := srv.limiter.RecordFailure(ip, email); locked {
		reason := service.LockReasonUsername
		if decision := srv.limiter.Check(ip, email); !decision.Allowed {
			reason = decision.Reason
		}
		srv.log(ctx).Warn("Login failure tripped lockout",
			slog.String("reason", string(reason)),
			slog.Time("locked_until", until),
		)

		return domainerrors.NewLockoutError(until, string(reason))
	}

	return domainerrors.ErrInvalidCredentials
}

// issueSession mints a session row plus its token pair.
func (srv *authService) issueSession(ctx context.Context, user *entity.User, ip, userAgent string) (*usecase.TokenPair, error) {
	sessionID := uuid.New()

	refreshToken, err := srv.tokenSvc.IssueRefreshToken(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue refresh token")
	}
	accessToken, err := srv.tokenSvc.IssueAccessToken(user.ID, user.Role.String(), sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	now := srv.clock.Now()
	session := &entity.AuthSession{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: srv.tokenSvc.HashToken(refreshToken),
		CreatedAt: now,
		ExpiresAt: now.Add(srv.tokenSvc.RefreshTokenTTL()),
		UserAgent: userAgent,
		IP:        ip,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.SessionRepo().Create(ctx, session)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}

	return &usecase.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
