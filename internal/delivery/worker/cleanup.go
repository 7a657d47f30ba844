// Package worker hosts background deliveries driven by the application
// entrypoint alongside the HTTP server.
package worker

import (
	"context"
	"log/slog"
	"time"

	"sitewatch/config"
	"sitewatch/internal/delivery"
	"sitewatch/internal/usecase"

	"go.uber.org/fx"
)

type cleanupWorker struct {
	interval  time.Duration
	sessionUC usecase.SessionUsecase
	logger    *slog.Logger
	done      chan struct{}
}

// CleanupParams holds dependencies for the session cleanup worker.
type CleanupParams struct {
	fx.In

	Lc        fx.Lifecycle
	Cfg       *config.Config
	Logger    *slog.Logger
	SessionUC usecase.SessionUsecase
}

// NewCleanupWorker builds the periodic expired-session cleanup delivery.
func NewCleanupWorker(params CleanupParams) delivery.Delivery {
	w := &cleanupWorker{
		interval:  params.Cfg.Auth.CleanupInterval(),
		sessionUC: params.SessionUC,
		logger:    params.Logger,
		done:      make(chan struct{}),
	}

	params.Lc.Append(fx.Hook{
		OnStop: w.stop,
	})

	return w
}

// Serve runs the cleanup loop until the worker is stopped.
func (w *cleanupWorker) Serve(ctx context.Context) error {
	w.logger.Info("Starting session cleanup worker", slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)
		case <-w.done:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// runOnce performs a single cleanup pass. A failed pass is logged and retried
// on the next tick.
func (w *cleanupWorker) runOnce(ctx context.Context) {
	if err := w.sessionUC.CleanupExpiredSessions(ctx); err != nil {
		w.logger.Error("Session cleanup failed", slog.Any("error", err))
	}
}

func (w *cleanupWorker) stop(context.Context) error {
	w.logger.Info("Shutting down session cleanup worker")
	close(w.done)

	return nil
}
