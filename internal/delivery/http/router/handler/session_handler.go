package handler

import (
	"log/slog"
	"net/http"

	"sitewatch/internal/delivery/http/response"
	"sitewatch/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// SessionHandlerParams holds dependencies for SessionHandler, injected by Fx.
type SessionHandlerParams struct {
	fx.In

	SessionUC usecase.SessionUsecase
	Logger    *slog.Logger
}

// SessionHandler holds dependencies for device management handlers.
type SessionHandler struct {
	sessionUC usecase.SessionUsecase
	logger    *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler.
func NewSessionHandler(params SessionHandlerParams) *SessionHandler {
	return &SessionHandler{
		sessionUC: params.SessionUC,
		logger:    params.Logger,
	}
}

// ListSessions returns the caller's active sessions, flagging the current one.
func (h *SessionHandler) ListSessions(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	sessions, err := h.sessionUC.GetActiveSessions(c.Request().Context(), userID, currentSessionID(c))
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, sessions, "Active sessions retrieved")
}

// RevokeSession revokes one of the caller's own sessions by id.
func (h *SessionHandler) RevokeSession(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid session id")
	}

	if err := h.sessionUC.RevokeSession(c.Request().Context(), userID, sessionID); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}
