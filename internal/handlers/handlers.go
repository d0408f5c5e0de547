package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/edgar-ingest/internal/pipeline"
	"github.com/mauv0809/edgar-ingest/internal/views"
)

// Runner is the part of the pipeline the handlers drive.
type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (*pipeline.RunSummary, error)
	Status(ctx context.Context) (*pipeline.Status, error)
}

type Handler struct {
	runner Runner
}

func New(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// Health returns application health status
// @Summary Health check
// @Description Returns the health status of the application
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Index renders the status page.
func (h *Handler) Index(c echo.Context) error {
	st, err := h.runner.Status(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return Render(c, http.StatusOK, views.Index(st))
}
