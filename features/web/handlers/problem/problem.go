package problem

import (
	"errors"
	"fmt"
	"net/http"
	"servicecheck/features/web/handlers/response"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// errorHandler renders every error escaping a handler through the response
// envelope. Server errors are logged with the request id.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := err.Error()

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		message = fmt.Sprint(httpErr.Message)
	}

	if code == http.StatusNotFound {
		message = "The requested resource was not found"
	}

	if code >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Str("path", c.Request().URL.Path).
			Msg("Request failed")
	}

	if writeErr := response.Problem(c, code, message); writeErr != nil {
		log.Error().Err(writeErr).Msg("Failed to write error response")
	}
}

func MapRoutes(e *echo.Echo) {
	e.HTTPErrorHandler = errorHandler
}
