// Package mailer delivers account emails over SMTP. Without SMTP config the
// mailer degrades to logging the delivery, which keeps local development and
// tests working without a mail relay.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"sitewatch/config"
	deliverycontext "sitewatch/internal/delivery/context"
	"sitewatch/internal/domain/service"
	"sitewatch/internal/errors"
)

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

type logMailer struct {
	logger *slog.Logger
}

// New builds the mailer from SMTP config, falling back to log-only delivery
// when no relay is configured.
func New(cfg *config.Config, logger *slog.Logger) service.Mailer {
	smtp := cfg.SMTP
	if smtp == nil || smtp.Host == "" {
		logger.Warn("smtp not configured, password reset emails will only be logged")

		return &logMailer{logger: logger}
	}

	return &smtpMailer{
		dialer: gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password),
		from:   smtp.From,
		logger: logger,
	}
}

func (m *smtpMailer) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Password reset request")

	body := fmt.Sprintf(`
		<h3>Password reset requested</h3>
		<p>We received a request to reset the password for your account.</p>
		<p>Use the following token to reset your password: <strong>%s</strong></p>
		<p>The token expires at %s.</p>
		<p>If you did not request this change, you can ignore this email.</p>
	`, token, expiresAt.UTC().Format(time.RFC1123))

	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return errors.Wrap(err, "send password reset email")
	}

	deliverycontext.GetLoggerOrDefault(ctx, m.logger).Info("password reset email sent",
		slog.String("email", email),
	)

	return nil
}

func (m *logMailer) SendPasswordResetEmail(ctx context.Context, email, _ string, expiresAt time.Time) error {
	// The token itself is deliberately not logged.
	deliverycontext.GetLoggerOrDefault(ctx, m.logger).Info("password reset email skipped, smtp not configured",
		slog.String("email", email),
		slog.Time("expiresAt", expiresAt),
	)

	return nil
}
