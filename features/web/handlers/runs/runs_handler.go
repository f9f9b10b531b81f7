package runs

import (
	"context"
	"errors"
	"net/http"
	"servicecheck/features/checker"
	"servicecheck/features/web/handlers/response"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const defaultListLimit = 20

// RunService is the part of checker.RunManager the handlers need.
type RunService interface {
	Start(trigger checker.Trigger, dryRun bool) (string, error)
	GetRun(ctx context.Context, runID string) (*checker.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*checker.Run, error)
	Current() *checker.Run
}

type RunsHandler struct {
	Service RunService
}

func NewRunsHandler(service RunService) *RunsHandler {
	return &RunsHandler{Service: service}
}

// StartRun launches a check in the background. Only one run may be active.
func (h *RunsHandler) StartRun(c echo.Context) error {
	req := &StartRunInput{}
	if err := c.Bind(req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	runID, err := h.Service.Start(checker.TriggerAPI, req.DryRun)
	if errors.Is(err, checker.ErrRunInProgress) {
		current := h.Service.Current()
		details := map[string]any{}
		if current != nil {
			details["run_id"] = current.ID
		}
		return response.ErrorWithDetails(c, http.StatusConflict, err.Error(), details)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to start run")
		return response.Error(c, http.StatusInternalServerError, err.Error())
	}

	return response.Accepted(c, map[string]any{
		"run_id":  runID,
		"dry_run": req.DryRun,
		"message": "Service check started. Use run_id to check status.",
	})
}

func (h *RunsHandler) ListRuns(c echo.Context) error {
	req := &ListRunsInput{}
	if err := c.Bind(req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultListLimit
	}

	list, err := h.Service.ListRuns(c.Request().Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list runs")
		return response.Error(c, http.StatusInternalServerError, err.Error())
	}
	return response.Success(c, list)
}

func (h *RunsHandler) GetRun(c echo.Context) error {
	req := &RunIDInput{}
	if err := c.Bind(req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	run, err := h.Service.GetRun(c.Request().Context(), req.RunID)
	if errors.Is(err, checker.ErrRunNotFound) {
		return response.NotFound(c, err.Error(), req.RunID)
	}
	if err != nil {
		log.Error().Err(err).Str("run_id", req.RunID).Msg("Failed to get run")
		return response.Error(c, http.StatusInternalServerError, err.Error())
	}
	return response.Success(c, run)
}
