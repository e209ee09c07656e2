package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/jikgumate/internal/apperr"
)

// RequestLogger writes one structured line per request.  Server errors are
// logged at error level with their cause; everything else at info.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			req := c.Request()
			ev := log.Info()
			if status >= http.StatusInternalServerError {
				ev = log.Error().Err(err)
			}
			ev = ev.Str("method", req.Method).
				Str("path", c.Path()).
				Str("uri", req.RequestURI).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			if id, ok := IdentityFrom(c); ok {
				ev = ev.Uint64("user_id", id.UserID)
			}
			ev.Msg("request")
			return err
		}
	}
}

// statusOf predicts the status the error handler will write for err.
func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return apperr.Status(apperr.KindOf(err))
}
