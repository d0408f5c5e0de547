package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Routes registers every endpoint on e.
func Routes(e *echo.Echo, h *Handler, ingest *IngestHandler, metrics http.Handler) {
	e.GET("/health", h.Health)
	e.GET("/", h.Index)
	e.GET("/metrics", echo.WrapHandler(metrics))

	admin := e.Group("/admin")
	admin.GET("/ingest/status", ingest.IngestStatus)
	admin.POST("/ingest/run", ingest.IngestRun)
}
