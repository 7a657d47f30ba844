package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	domainerrors "sitewatch/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// ErrorMiddleware error handling middleware
type ErrorMiddleware struct {
	logger *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger: logger,
	}
}

// HandleHTTPError handles errors as Echo's HTTPErrorHandler
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	// Lockouts carry a Retry-After hint on top of the usual envelope.
	var lockErr *domainerrors.LockoutError
	if errors.As(err, &lockErr) {
		retryAfter := int(math.Ceil(lockErr.RetryAfter().Seconds()))
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, domainerrors.Response{
			Success: false,
			Code:    http.StatusTooManyRequests,
			Message: lockErr.Message(),
			Error: &domainerrors.ErrorInfo{
				Code:    lockErr.ErrorCode(),
				Message: lockErr.Message(),
				Details: map[string]any{
					"lockedUntil":       lockErr.LockedUntil.UTC().Format(time.RFC3339),
					"retryAfterSeconds": retryAfter,
				},
			},
		})

		return
	}

	// Try to parse as AppError
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPCode(), domainerrors.Response{
			Success: false,
			Code:    appErr.HTTPCode(),
			Message: appErr.Message(),
			Error: &domainerrors.ErrorInfo{
				Code:    appErr.ErrorCode(),
				Message: appErr.Message(),
				Details: appErr.Details(),
			},
		})

		return
	}

	// Check if it's Echo's HTTPError
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
		c.JSON(httpErr.Code, domainerrors.Response{
			Success: false,
			Code:    httpErr.Code,
			Message: message,
			Error: &domainerrors.ErrorInfo{
				Code:    "HTTP_ERROR",
				Message: message,
			},
		})

		return
	}

	// Default to internal error, log and return a generic message.
	m.logger.Error("Unhandled error",
		slog.String("error", err.Error()),
		slog.String("path", c.Request().URL.Path),
		slog.String("method", c.Request().Method),
	)

	c.JSON(http.StatusInternalServerError, domainerrors.Response{
		Success: false,
		Code:    http.StatusInternalServerError,
		Message: "Internal server error",
		Error: &domainerrors.ErrorInfo{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		},
	})
}
