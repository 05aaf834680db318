// Package api provides HTTP handlers for the engine.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/helixlab/bioflow/domain"
	"github.com/helixlab/bioflow/internal/metrics"
	"github.com/helixlab/bioflow/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	svc     *service.Service
	tracker *metrics.Tracker
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, tracker *metrics.Tracker) *Handler {
	return &Handler{svc: svc, tracker: tracker}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/messages", h.PostMessage)
	e.POST("/v1/compare", h.Compare)

	e.GET("/v1/sessions/stats", h.SessionStats)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.GET("/v1/sessions/:session_id/messages", h.GetSessionMessages)
	e.DELETE("/v1/sessions/:session_id", h.DeleteSession)

	e.GET("/v1/metrics/summary", h.MetricsSummary)
	e.POST("/v1/metrics/export", h.MetricsExport)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// postMessageRequest is the inbound routed message.
type postMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// PostMessage routes one message through the engine.
func (h *Handler) PostMessage(c echo.Context) error {
	var req postMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, errorBody("message is required"))
	}

	result, err := h.svc.Route(c.Request().Context(), req.Message, req.SessionID, req.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, result)
}

// compareRequest asks for a pairwise alignment.
type compareRequest struct {
	SequenceA string `json:"sequence_a"`
	SequenceB string `json:"sequence_b"`
}

// Compare aligns two sequences.
func (h *Handler) Compare(c echo.Context) error {
	var req compareRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	result, err := h.svc.CompareSequences(c.Request().Context(), req.SequenceA, req.SequenceB)
	if err != nil {
		var seqErr *domain.InvalidSequenceError
		if errors.As(err, &seqErr) {
			return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, result)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
