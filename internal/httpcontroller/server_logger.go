package httpcontroller

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/peepybureau/bpi/internal/logger"
)

// GetLogger returns the http module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("http")
}

// echoLogAdapter adapts Logger to the io.Writer echo logs to.
type echoLogAdapter struct {
	log logger.Logger
}

// Write implements io.Writer for echoLogAdapter
func (a *echoLogAdapter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		a.log.Info(msg)
	}
	return len(p), nil
}

// LoggingMiddleware writes one access log entry per request to the access
// module and observes request metrics.
func (s *Server) LoggingMiddleware() echo.MiddlewareFunc {
	access := logger.Global().Module("access")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				// let the error handler write the status before it is logged
				ctx.Error(err)
			}
			elapsed := time.Since(start)

			req := ctx.Request()
			res := ctx.Response()

			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			if s.metrics != nil {
				s.metrics.HTTP.ObserveRequest(req.Method, route, res.Status, elapsed)
			}

			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.String("route", route),
				logger.Int("status", res.Status),
				logger.Int64("bytes", res.Size),
				logger.Duration("latency", elapsed),
				logger.String("ip", ctx.RealIP()),
				logger.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
			}
			switch {
			case res.Status >= 500:
				access.Error("request failed", append(fields, logger.Error(err))...)
			case res.Status >= 400:
				access.Warn("request rejected", fields...)
			default:
				access.Info("request", fields...)
			}
			return nil
		}
	}
}
