package handler

import (
	"log/slog"
	"net/http"

	"sitewatch/internal/delivery/http/response"
	"sitewatch/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// ResetHandlerParams holds dependencies for ResetHandler, injected by Fx.
type ResetHandlerParams struct {
	fx.In

	ResetUC usecase.PasswordResetUsecase
	Logger  *slog.Logger
}

// ResetHandler holds dependencies for the password recovery handlers.
type ResetHandler struct {
	resetUC usecase.PasswordResetUsecase
	logger  *slog.Logger
}

// NewResetHandler is the constructor for ResetHandler.
func NewResetHandler(params ResetHandlerParams) *ResetHandler {
	return &ResetHandler{
		resetUC: params.ResetUC,
		logger:  params.Logger,
	}
}

// RequestResetRequest represents the request body for starting a reset.
type RequestResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ConfirmResetRequest represents the request body for redeeming a reset token.
type ConfirmResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// RequestReset starts the recovery flow. The response is identical whether or
// not the email belongs to an account.
func (h *ResetHandler) RequestReset(c echo.Context) error {
	var req RequestResetRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid reset request input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	if err := h.resetUC.RequestReset(c.Request().Context(), req.Email); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "If the account exists, a reset email has been sent")
}

// ConfirmReset redeems a token and applies the new password.
func (h *ResetHandler) ConfirmReset(c echo.Context) error {
	var req ConfirmResetRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid reset confirmation input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	err := h.resetUC.ConfirmReset(c.Request().Context(), usecase.ConfirmResetInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Password has been reset")
}
