package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/edgar-ingest/internal/pipeline"
	"github.com/mauv0809/edgar-ingest/internal/validate"
	"github.com/rs/zerolog"
)

// IngestHandler handles data ingestion endpoints.
type IngestHandler struct {
	runner Runner
	log    zerolog.Logger
	// base bounds every run; a run outlives its request but not the server.
	base context.Context

	// mu is held for the duration of a run.
	mu sync.Mutex
}

// NewIngestHandler creates a new ingest handler. Runs are cancelled when ctx
// is done.
func NewIngestHandler(ctx context.Context, runner Runner, log zerolog.Logger) *IngestHandler {
	return &IngestHandler{
		runner: runner,
		log:    log,
		base:   ctx,
	}
}

// IngestResponse is the JSON response for ingestion endpoints.
type IngestResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Count   int                  `json:"count,omitempty"`
	Elapsed string               `json:"elapsed,omitempty"`
	Summary *pipeline.RunSummary `json:"summary,omitempty"`
}

// IngestRun handles POST /admin/ingest/run
// Runs the pipeline. Query params:
// - nodes: comma-separated subset of companies,filings,facts (default: all)
// - full: if "true", ignore watermarks (default: incremental)
// - offline: if "true", use only cached snapshots
// - limit: max entities fetched per stream (optional)
func (h *IngestHandler) IngestRun(c echo.Context) error {
	nodes, err := pipeline.ParseNodes(c.QueryParam("nodes"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, IngestResponse{Success: false, Message: err.Error()})
	}
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			return c.JSON(http.StatusBadRequest, IngestResponse{
				Success: false,
				Message: fmt.Sprintf("limit must be a non-negative integer, got %q", v),
			})
		}
	}
	opts := pipeline.RunOptions{
		Nodes:   nodes,
		Full:    c.QueryParam("full") == "true",
		Offline: c.QueryParam("offline") == "true",
		Limit:   limit,
	}

	if !h.mu.TryLock() {
		return c.JSON(http.StatusConflict, IngestResponse{
			Success: false,
			Message: "A run is already in progress",
		})
	}
	defer h.mu.Unlock()

	start := time.Now()
	h.log.Info().Strs("nodes", nodes).Bool("full", opts.Full).Int("limit", limit).Msg("run requested")

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request().Context()))
	defer cancel()
	stop := context.AfterFunc(h.base, cancel)
	defer stop()

	summary, err := h.runner.Run(ctx, opts)
	elapsed := time.Since(start)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, validate.ErrValidationFailed) {
			status = http.StatusUnprocessableEntity
		}
		return c.JSON(status, IngestResponse{
			Success: false,
			Message: fmt.Sprintf("Run failed: %v", err),
			Elapsed: elapsed.String(),
			Summary: summary,
		})
	}

	count := summary.Rows()
	return c.JSON(http.StatusOK, IngestResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully wrote %d rows", count),
		Count:   count,
		Elapsed: elapsed.String(),
		Summary: summary,
	})
}

// IngestStatus handles GET /admin/ingest/status
// Returns completion and watermark counts and the last run summary.
func (h *IngestHandler) IngestStatus(c echo.Context) error {
	st, err := h.runner.Status(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, IngestResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to read status: %v", err),
		})
	}
	return c.JSON(http.StatusOK, st)
}
