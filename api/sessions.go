package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/helixlab/bioflow/domain"
)

// GetSession returns a session snapshot.
func (h *Handler) GetSession(c echo.Context) error {
	session, err := h.svc.GetSession(c.Request().Context(), c.Param("session_id"))
	if err == domain.ErrSessionNotFound {
		return c.JSON(http.StatusNotFound, errorBody("session not found"))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, session)
}

// GetSessionMessages returns a session's message log, optionally limited to
// the most recent n messages.
func (h *Handler) GetSessionMessages(c echo.Context) error {
	session, err := h.svc.GetSession(c.Request().Context(), c.Param("session_id"))
	if err == domain.ErrSessionNotFound {
		return c.JSON(http.StatusNotFound, errorBody("session not found"))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}

	messages := session.Messages
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, convErr := strconv.Atoi(raw); convErr == nil {
			messages = session.RecentMessages(limit)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id": session.SessionID,
		"messages":   messages,
	})
}

// DeleteSession soft-deletes a session.
func (h *Handler) DeleteSession(c echo.Context) error {
	err := h.svc.DeleteSession(c.Request().Context(), c.Param("session_id"))
	if err == domain.ErrSessionNotFound {
		return c.JSON(http.StatusNotFound, errorBody("session not found"))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// SessionStats returns aggregate session statistics.
func (h *Handler) SessionStats(c echo.Context) error {
	stats, err := h.svc.SessionStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, stats)
}
