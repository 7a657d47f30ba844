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

// TwoFactorHandlerParams holds dependencies for TwoFactorHandler, injected by Fx.
type TwoFactorHandlerParams struct {
	fx.In

	TwoFactorUC usecase.TwoFactorUsecase
	Logger      *slog.Logger
}

// TwoFactorHandler holds dependencies for TOTP enrollment handlers.
type TwoFactorHandler struct {
	twoFactorUC usecase.TwoFactorUsecase
	logger      *slog.Logger
}

// NewTwoFactorHandler is the constructor for TwoFactorHandler.
func NewTwoFactorHandler(params TwoFactorHandlerParams) *TwoFactorHandler {
	return &TwoFactorHandler{
		twoFactorUC: params.TwoFactorUC,
		logger:      params.Logger,
	}
}

// ConfirmSetupRequest represents the request body for activating a pending secret.
type ConfirmSetupRequest struct {
	Code string `json:"code" validate:"required"`
}

// SetupResponse returns the enrollment material for an authenticator app.
type SetupResponse struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauthUrl"`
}

// BeginSetup generates a fresh pending secret for the authenticated user.
func (h *TwoFactorHandler) BeginSetup(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	output, err := h.twoFactorUC.BeginSetup(c.Request().Context(), userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, SetupResponse{
		Secret:     output.Secret,
		OtpauthURL: output.ProvisionURI,
	}, "Two-factor setup started")
}

// SetupQRCode renders the pending enrollment URI as a PNG image.
func (h *TwoFactorHandler) SetupQRCode(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	png, err := h.twoFactorUC.SetupQRCode(c.Request().Context(), userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

// ConfirmSetup verifies a code against the pending secret and activates it.
func (h *TwoFactorHandler) ConfirmSetup(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req ConfirmSetupRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid confirmation input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	if err := h.twoFactorUC.ConfirmSetup(c.Request().Context(), userID, req.Code); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]bool{"confirmed": true}, "Two-factor enabled")
}
