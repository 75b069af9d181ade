package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/radioastro101/backend/internal/logging"
)

// HeaderRequestID carries the request ID back to the client.
const HeaderRequestID = echo.HeaderXRequestID

// RequestLogger attaches a request-scoped logger and request ID to every
// request. When logRequests is set each request is also logged on completion.
func RequestLogger(base logging.Logger, logRequests bool) echo.MiddlewareFunc {
	if base == nil {
		base = logging.Noop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, log := logging.WithRequest(req.Context(), base, req.Header.Get(HeaderRequestID))
			c.SetRequest(req.WithContext(ctx))
			c.Response().Header().Set(HeaderRequestID, logging.RequestID(ctx))

			start := time.Now()
			err := next(c)
			if logRequests {
				status := c.Response().Status
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if ae, ok := err.(*APIError); ok {
					status = ae.Status
				}
				log.Info(ctx, "request",
					logging.String("method", req.Method),
					logging.String("path", c.Path()),
					logging.Int("status", status),
					logging.Duration("latency", time.Since(start)),
				)
			}
			return err
		}
	}
}
