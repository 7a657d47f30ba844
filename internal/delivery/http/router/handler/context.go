package handler

import (
	"sitewatch/internal/delivery/http/response"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// currentUserID reads the authenticated user's id set by the auth middleware.
func currentUserID(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get("userID").(uuid.UUID)
	if !ok {
		return uuid.Nil, response.Unauthorized(c, "INVALID_TOKEN", "Invalid user ID in token")
	}

	return userID, nil
}

// currentSessionID reads the caller's session id set by the auth middleware.
func currentSessionID(c echo.Context) uuid.UUID {
	sessionID, ok := c.Get("sessionID").(uuid.UUID)
	if !ok {
		return uuid.Nil
	}

	return sessionID
}
