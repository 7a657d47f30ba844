package main

import (
	"context"
	"log/slog"
	"os"

	"sitewatch/config"
	"sitewatch/internal/delivery"
	"sitewatch/internal/delivery/http"
	httpmiddleware "sitewatch/internal/delivery/http/middleware"
	"sitewatch/internal/delivery/http/router/handler"
	deliverymiddleware "sitewatch/internal/delivery/middleware"
	"sitewatch/internal/delivery/worker"
	"sitewatch/internal/domain/service"
	"sitewatch/internal/infra/auth"
	"sitewatch/internal/infra/challenge"
	"sitewatch/internal/infra/clock"
	logs "sitewatch/internal/infra/log"
	"sitewatch/internal/infra/mailer"
	"sitewatch/internal/infra/persistence/postgres"
	"sitewatch/internal/infra/qrcode"
	"sitewatch/internal/infra/ratelimit"
	"sitewatch/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		clock.New,
		postgres.New,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTService,
			auth.NewTOTPService,
			mailer.New,
			qrcode.New,
			newRateLimiter,
			newChallengeStore,
		),
	)
}

// newRateLimiter builds the brute-force limiter from the auth config.
func newRateLimiter(cfg *config.Config, clk service.Clock) service.LoginRateLimiter {
	return ratelimit.New(ratelimit.Config{
		MaxAttempts: cfg.Auth.MaxAttempts,
		Window:      cfg.Auth.Window(),
		Lockout:     cfg.Auth.Lockout(),
	}, clk)
}

// newChallengeStore builds the pending two-factor challenge store.
func newChallengeStore(cfg *config.Config, clk service.Clock) service.ChallengeStore {
	return challenge.New(cfg.Auth.ChallengeTTL(), clk)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAuthService,
			impl.NewSessionService,
			impl.NewTwoFactorService,
			impl.NewResetService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			httpmiddleware.NewAuthMiddleware,
			httpmiddleware.NewErrorMiddleware,
			deliverymiddleware.NewRequestIDMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewTwoFactorHandler,
			handler.NewSessionHandler,
			handler.NewResetHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
			fx.Annotate(
				worker.NewCleanupWorker,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
