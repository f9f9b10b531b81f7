package health

import (
	"context"
	"net/http"
	"servicecheck/internal/config"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const pingTimeout = 2 * time.Second

// Pinger checks the datastore connection.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RunState reports whether a check run is active.
type RunState interface {
	IsRunning() bool
}

type HealthHandler struct {
	db   Pinger
	runs RunState
}

// MapHealth sets up the healthcheck endpoint if enabled in config.
func MapHealth(e *echo.Echo, cfg config.ServerConfig, db Pinger, runs RunState) {
	if !cfg.HealthCheck {
		log.Info().Msg("Health check disabled")
		return
	}
	h := &HealthHandler{db: db, runs: runs}
	g := e.Group("/health")
	g.GET("/status", h.StatusCheck)
	log.Info().Msg("Health check enabled at /health/status")
}

// StatusCheck reports "ok" while the datastore answers, 503 otherwise.
func (h *HealthHandler) StatusCheck(c echo.Context) error {
	body := map[string]any{"status": "ok"}
	if h.runs != nil {
		body["run_in_progress"] = h.runs.IsRunning()
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			log.Warn().Err(err).Msg("Health check: datastore unreachable")
			body["status"] = "unavailable"
			body["database"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		body["database"] = "ok"
	}

	return c.JSON(http.StatusOK, body)
}
