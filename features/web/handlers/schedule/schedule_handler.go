package schedule

import (
	"errors"
	"net/http"
	"servicecheck/features/web/handlers/response"
	"servicecheck/internal/runner"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Scheduler reports when a named job fires next.
type Scheduler interface {
	NextRun(name string) (time.Time, error)
}

type SchedulePayload struct {
	Job       string    `json:"job"`
	NextRun   time.Time `json:"next_run"`
	Scheduled bool      `json:"scheduled"`
}

type ScheduleHandler struct {
	scheduler Scheduler
}

func NewScheduleHandler(scheduler Scheduler) *ScheduleHandler {
	return &ScheduleHandler{scheduler: scheduler}
}

// NextRun returns the next scheduled service check. A server started without
// the scheduler answers with scheduled=false.
func (h *ScheduleHandler) NextRun(c echo.Context) error {
	payload := SchedulePayload{Job: runner.CheckJobName}
	if h.scheduler == nil {
		return response.Success(c, payload)
	}

	next, err := h.scheduler.NextRun(runner.CheckJobName)
	if errors.Is(err, runner.ErrJobNotFound) {
		return response.Success(c, payload)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to get next scheduled run")
		return response.Error(c, http.StatusInternalServerError, err.Error())
	}

	payload.NextRun = next
	payload.Scheduled = true
	return response.Success(c, payload)
}

func MapScheduleRoutes(e *echo.Echo, scheduler Scheduler) {
	handler := NewScheduleHandler(scheduler)
	e.GET("/schedule", handler.NextRun)
	log.Info().Msg("Schedule route mapped at /schedule")
}
