package web

import (
	"errors"
	"servicecheck/features/web/middlewares"
	"servicecheck/internal/collector"
	"servicecheck/internal/config"
	"strconv"
	"strings"
	"sync"

	"net/http"
	"net/http/pprof"
	rpprof "runtime/pprof"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"github.com/unrolled/secure"
	"github.com/ziflex/lecho/v3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// Application errors
var (
	ErrApplicationNotInitialized = errors.New("application not initialized")
	ErrServiceInitFailed         = errors.New("services initialization failed")
	ErrRoutesMapFailed           = errors.New("routes configuration failed")
)

var (
	applicationMu sync.RWMutex
	application   *Application

	// echoprometheus registers its collectors on the default registry, which
	// must happen once per process.
	prometheusMiddleware = sync.OnceValue(func() echo.MiddlewareFunc {
		return echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace: "servicecheck",
			Subsystem: "http",
			Skipper:   monitoringSkipper,
		})
	})
)

// Application holds the Echo instance, its config, logger and services.
type Application struct {
	Echo     *echo.Echo
	config   *config.ServerConfig
	logger   *lecho.Logger
	services *Services
}

// GetApplication returns the application built by the last NewApplication call.
func GetApplication() (*Application, error) {
	applicationMu.RLock()
	defer applicationMu.RUnlock()

	if application == nil {
		return nil, ErrApplicationNotInitialized
	}
	return application, nil
}

// NewApplication initializes the Echo server, configures middlewares and maps
// all routes.
func NewApplication(cfg *config.ServerConfig, svcs *Services) (*Application, error) {
	if err := svcs.validate(); err != nil {
		log.Err(err).Msg("Service initialization error")
		return nil, errors.Join(ErrServiceInitFailed, err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.Addr = ":" + strconv.Itoa(cfg.Port)
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	app := &Application{
		Echo:     e,
		config:   cfg,
		services: svcs,
	}

	app.configureLogger()
	app.configureMiddleware()

	if err := app.ConfigureRoutes(); err != nil {
		log.Err(err).Msg("Routes configuration error")
		return nil, errors.Join(ErrRoutesMapFailed, err)
	}

	collector.GetMetricsCollector().ExposeWebMetrics(e)

	if config.IsDevMode() {
		app.ConfigurePprof()
	}

	applicationMu.Lock()
	application = app
	applicationMu.Unlock()

	log.Info().Str("address", e.Server.Addr).Msg("Server address")
	return app, nil
}

// monitoringSkipper keeps scrapes and health checks out of traces and HTTP metrics.
func monitoringSkipper(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasPrefix(path, "/metrics") || strings.HasPrefix(path, "/health")
}

func (app *Application) configureMiddleware() {
	e := app.Echo

	e.Pre(middleware.RemoveTrailingSlash())

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return xid.New().String() },
	}))
	e.Use(middleware.BodyLimit(app.config.BodyLimit))

	e.Use(otelecho.Middleware("servicecheck", otelecho.WithSkipper(monitoringSkipper)))
	e.Use(prometheusMiddleware())

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
		IsDevelopment:         config.IsDevMode(),
	})
	e.Use(echo.WrapMiddleware(secureMiddleware.Handler))

	if len(app.config.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: app.config.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{
				echo.HeaderOrigin,
				echo.HeaderContentType,
				echo.HeaderAccept,
			},
		}))
	}

	e.Use(middlewares.RequestLogger())

	middlewares.ConfigureValidator(e)
}

func (app *Application) configureLogger() {
	lechoLogger := lecho.From(log.Logger, lecho.WithTimestamp())
	app.Echo.Logger = lechoLogger
	app.logger = lechoLogger
}

func (app *Application) ConfigurePprof() {
	pprofGroup := app.Echo.Group("/debug/pprof")

	pprofGroup.GET("", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	pprofGroup.GET("/cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	pprofGroup.GET("/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	pprofGroup.GET("/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	pprofGroup.GET("/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))

	for _, profile := range rpprof.Profiles() {
		name := profile.Name()
		pprofGroup.GET("/"+name, echo.WrapHandler(pprof.Handler(name)))
	}
}
