package runs

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

func MapRunRoutes(e *echo.Echo, service RunService) {
	handler := NewRunsHandler(service)

	g := e.Group("/runs")
	g.POST("", handler.StartRun)
	g.GET("", handler.ListRuns)
	g.GET("/:runID", handler.GetRun)

	log.Info().
		Str("start run", "POST /runs").
		Str("list runs", "GET /runs").
		Str("get run", "GET /runs/:runID").
		Msg("Run routes mapped successfully.")
}
