// Package handler contains the HTTP handlers for the application.
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

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC    usecase.AuthUsecase
	SessionUC usecase.SessionUsecase
	Logger    *slog.Logger
}

// AuthHandler holds dependencies for login, refresh and logout handlers.
type AuthHandler struct {
	authUC    usecase.AuthUsecase
	sessionUC usecase.SessionUsecase
	logger    *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC:    params.AuthUC,
		sessionUC: params.SessionUC,
		logger:    params.Logger,
	}
}

// LoginRequest represents the request body for password login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TwoFactorLoginRequest represents the request body for completing a
// two-factor gated login.
type TwoFactorLoginRequest struct {
	ChallengeToken string `json:"challengeToken" validate:"required"`
	Code           string `json:"code" validate:"required"`
}

// RefreshRequest represents the request body for rotating a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LogoutRequest represents the request body for logging out one session.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse is the body returned by login endpoints. Either the token
// pair or the challenge fields are set, never both.
type LoginResponse struct {
	AccessToken            string `json:"accessToken,omitempty"`
	RefreshToken           string `json:"refreshToken,omitempty"`
	Requires2FA            bool   `json:"requires2fa,omitempty"`
	ChallengeToken         string `json:"challengeToken,omitempty"`
	TwoFactorSetupRequired bool   `json:"twoFactorSetupRequired,omitempty"`
}

// TokenPairResponse is the body returned by the refresh endpoint.
type TokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login handles the password login request.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.authUC.Login(c.Request().Context(), usecase.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if output.TwoFactorRequired {
		return response.Success(c, http.StatusOK, LoginResponse{
			Requires2FA:    true,
			ChallengeToken: output.ChallengeToken,
		}, "Two-factor code required")
	}

	return response.Success(c, http.StatusOK, LoginResponse{
		AccessToken:            output.Tokens.AccessToken,
		RefreshToken:           output.Tokens.RefreshToken,
		TwoFactorSetupRequired: output.TwoFactorSetupRequired,
	}, "Login successful")
}

// TwoFactorLogin exchanges a challenge token plus TOTP code for tokens.
func (h *AuthHandler) TwoFactorLogin(c echo.Context) error {
	var req TwoFactorLoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid two-factor login input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.authUC.CompleteTwoFactorLogin(c.Request().Context(), usecase.TwoFactorLoginInput{
		ChallengeToken: req.ChallengeToken,
		Code:           req.Code,
		IP:             c.RealIP(),
		UserAgent:      c.Request().UserAgent(),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, LoginResponse{
		AccessToken:            output.Tokens.AccessToken,
		RefreshToken:           output.Tokens.RefreshToken,
		TwoFactorSetupRequired: output.TwoFactorSetupRequired,
	}, "Login successful")
}

// Refresh handles the token rotation request.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid refresh input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	pair, err := h.sessionUC.Refresh(c.Request().Context(), usecase.RefreshInput{
		RefreshToken: req.RefreshToken,
		IP:           c.RealIP(),
		UserAgent:    c.Request().UserAgent(),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "Token refreshed successfully")
}

// Logout revokes the presented refresh token's session. Always answers 204:
// a dead or malformed token is already logged out.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusNoContent)
	}

	if err := h.sessionUC.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every session of the authenticated user.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	if err := h.sessionUC.LogoutAll(c.Request().Context(), userID); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}
