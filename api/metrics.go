package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// MetricsSummary returns aggregate execution statistics, optionally limited
// to a trailing window (e.g. ?window=24h).
func (h *Handler) MetricsSummary(c echo.Context) error {
	var window time.Duration
	if raw := c.QueryParam("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody("invalid window duration"))
		}
		window = parsed
	}

	summary, err := h.tracker.Summary(c.Request().Context(), window)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, summary)
}

// MetricsExport returns the raw record set plus its aggregate.
func (h *Handler) MetricsExport(c echo.Context) error {
	bundle, err := h.tracker.Export(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, bundle)
}
