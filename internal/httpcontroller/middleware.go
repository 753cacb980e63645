package httpcontroller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	api "github.com/peepybureau/bpi/internal/api/v1"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/logger"
)

// streamPath is never compressed or cached.
const streamPath = api.Prefix + "/stream"

// configureMiddleware sets up middleware for the server.
func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.RequestID())
	s.Echo.Use(s.LoggingMiddleware())
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(s.BodyLimitMiddleware())
	s.Echo.Use(s.SecureHeadersMiddleware())
	s.Echo.Use(s.GzipMiddleware())
	s.Echo.Use(s.CacheControlMiddleware())
}

// BodyLimitMiddleware caps request bodies slightly above the upload limit so
// multipart overhead does not trip it first.
func (s *Server) BodyLimitMiddleware() echo.MiddlewareFunc {
	limit := s.Settings.Images.MaxUploadSize
	if limit <= 0 {
		limit = 10 << 20
	}
	return middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: formatBytes(limit + 1<<20),
	})
}

// formatBytes renders n in the unit syntax BodyLimit parses.
func formatBytes(n int64) string {
	return strconv.FormatInt((n+1023)/1024, 10) + "K"
}

// SecureHeadersMiddleware sets the browser hardening headers. Uploaded
// images may live on another host, so images are allowed from https anywhere.
func (s *Server) SecureHeadersMiddleware() echo.MiddlewareFunc {
	cfg := middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data: https:; style-src 'self' 'unsafe-inline'; script-src 'self'",
	}
	if s.Settings.Security.SecureCookies {
		cfg.HSTSMaxAge = 31536000
	}
	return middleware.SecureWithConfig(cfg)
}

// GzipMiddleware configures Gzip compression for the server
func (s *Server) GzipMiddleware() echo.MiddlewareFunc {
	return middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     6,
		MinLength: 2048,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == streamPath
		},
	})
}

// CacheControlMiddleware sets cache headers by path. Pages and API responses
// reflect live data and are never cached.
func (s *Server) CacheControlMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			h := c.Response().Header()
			switch {
			case strings.HasPrefix(path, s.uploadsPrefix()+"/"):
				h.Set(echo.HeaderCacheControl, "public, max-age=604800, immutable")
			case path == streamPath:
			default:
				h.Set(echo.HeaderCacheControl, "no-store")
			}
			return next(c)
		}
	}
}

// customErrorHandler renders the JSON envelope for API paths and a plain
// error page elsewhere.
func (s *Server) customErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		api.HTTPErrorHandler(err, c)
		return
	}

	code := api.StatusForError(err)
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) && code < http.StatusInternalServerError {
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
	}
	if code >= http.StatusInternalServerError {
		GetLogger().Error("page request failed",
			logger.String("path", c.Request().URL.Path),
			logger.Error(err))
	}

	if rerr := c.Render(code, "error", s.pageData(c, "Error", errorPage{Code: code, Message: message})); rerr != nil {
		_ = c.String(code, message)
	}
}
