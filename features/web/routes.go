package web

import (
	"net/http"
	"servicecheck/features/web/handlers/catalog"
	"servicecheck/features/web/handlers/health"
	"servicecheck/features/web/handlers/problem"
	"servicecheck/features/web/handlers/runs"
	"servicecheck/features/web/handlers/schedule"

	"github.com/labstack/echo/v4"
)

func (app *Application) ConfigureRoutes() error {
	e := app.Echo

	app.MapHome()
	runs.MapRunRoutes(e, app.services.Runs)
	schedule.MapScheduleRoutes(e, app.services.Schedule)
	catalog.MapCatalogRoutes(e, app.services.Archive)

	problem.MapRoutes(e)
	health.MapHealth(e, *app.config, app.services.DB, app.services.Runs)

	return nil
}

func (app *Application) MapHome() {
	app.Echo.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Welcome to servicecheck")
	})
}
