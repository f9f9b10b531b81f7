package middlewares

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// quietPrefixes are polled by health checkers and scrapers; successful hits are logged
// at trace level only.
var quietPrefixes = []string{"/health", "/metrics"}

// RequestLogger logs every request with the id assigned by the RequestID
// middleware and, when tracing is on, the trace id set by otelecho.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			res := c.Response()
			status := res.Status
			if err != nil {
				status = errorStatus(err)
			}

			event := levelFor(req.URL.Path, status).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("remote_ip", c.RealIP()).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("bytes_out", formatByteCount(res.Size))

			if req.URL.RawQuery != "" {
				event = event.Str("query", req.URL.RawQuery)
			}
			if sc := trace.SpanContextFromContext(req.Context()); sc.HasTraceID() {
				event = event.Str("trace_id", sc.TraceID().String())
			}
			if err != nil {
				event = event.Err(err)
			}

			event.Msg("HTTP request")
			return err
		}
	}
}

func errorStatus(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return 500
}

func levelFor(path string, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return log.Error()
	case status >= 400:
		return log.Warn()
	case isQuiet(path):
		return log.Trace()
	default:
		return log.Debug()
	}
}

func isQuiet(path string) bool {
	for _, prefix := range quietPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func formatByteCount(bytes int64) string {
	if bytes <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(bytes))
}
