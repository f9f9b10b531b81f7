package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the body of every JSON API response.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Details   any    `json:"details,omitempty"`
	Input     string `json:"input,omitempty"`
	Path      string `json:"path,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func write(c echo.Context, code int, env Envelope) error {
	env.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
	return c.JSON(code, env)
}

func Success(c echo.Context, data any) error {
	return write(c, http.StatusOK, Envelope{Success: true, Data: data})
}

// Accepted is Success for work that continues after the response, such as a
// run started in the background.
func Accepted(c echo.Context, data any) error {
	return write(c, http.StatusAccepted, Envelope{Success: true, Data: data})
}

func Error(c echo.Context, code int, message string) error {
	return write(c, code, Envelope{Error: message})
}

func ErrorWithDetails(c echo.Context, code int, message string, details any) error {
	return write(c, code, Envelope{Error: message, Details: details})
}

// Problem reports an HTTP error by its status text with a human message.
func Problem(c echo.Context, code int, message string) error {
	return write(c, code, Envelope{
		Error:   http.StatusText(code),
		Message: message,
		Path:    c.Request().URL.Path,
	})
}

// NotFound echoes the looked-up input back to the caller.
func NotFound(c echo.Context, message string, input string) error {
	return write(c, http.StatusNotFound, Envelope{Error: message, Input: input})
}

func BadRequest(c echo.Context, message string) error {
	return Error(c, http.StatusBadRequest, message)
}
