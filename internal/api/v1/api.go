// Package api implements the /api/v1 JSON and change stream endpoints.
package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/imageupload"
	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/observability/metrics"
	"github.com/peepybureau/bpi/internal/workspace"
)

// Prefix is where the API is mounted.
const Prefix = "/api/v1"

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	svc        *bureau.Service
	workspaces *workspace.Registry
	uploader   imageupload.Uploader
	metrics    *metrics.HTTPMetrics

	authMiddleware echo.MiddlewareFunc
	heartbeat      time.Duration
	startTime      time.Time

	// ctx ends open change streams on shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithAuthMiddleware sets the middleware guarding write routes.
func WithAuthMiddleware(mw echo.MiddlewareFunc) Option {
	return func(c *Controller) { c.authMiddleware = mw }
}

// WithUploader enables POST /uploads. Without it the endpoint answers 503.
func WithUploader(u imageupload.Uploader) Option {
	return func(c *Controller) { c.uploader = u }
}

// WithMetrics records stream metrics.
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithHeartbeat overrides the change stream heartbeat interval.
func WithHeartbeat(d time.Duration) Option {
	return func(c *Controller) { c.heartbeat = d }
}

// New creates the controller and registers its routes on e.
func New(e *echo.Echo, svc *bureau.Service, workspaces *workspace.Registry, settings *conf.Settings, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		Echo:       e,
		Group:      e.Group(Prefix),
		Settings:   settings,
		svc:        svc,
		workspaces: workspaces,
		heartbeat:  defaultHeartbeat,
		startTime:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.authMiddleware == nil {
		// fail closed when no authorizer is wired
		c.authMiddleware = func(echo.HandlerFunc) echo.HandlerFunc {
			return func(echo.Context) error {
				return echo.NewHTTPError(http.StatusUnauthorized, "Sign in required.")
			}
		}
	}

	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"specimen routes", c.initSpecimenRoutes},
		{"field note routes", c.initFieldNoteRoutes},
		{"transcript routes", c.initTranscriptRoutes},
		{"settings routes", c.initSettingsRoutes},
		{"upload routes", c.initUploadRoutes},
		{"stream routes", c.initStreamRoutes},
		{"workspace routes", c.initWorkspaceRoutes},
	}
	for _, initializer := range routeInitializers {
		initializer.fn()
		GetLogger().Debug("routes registered", logger.String("group", initializer.name))
	}
}

// HealthCheck reports process and database status.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now().Format(time.RFC3339),
		"uptime_seconds": time.Since(c.startTime).Seconds(),
	}

	dbStatus := "connected"
	if _, err := c.svc.SiteSettings(ctx.Request().Context()); err != nil {
		dbStatus = "disconnected"
		response["status"] = "degraded"
		response["database_error"] = err.Error()
	}
	response["database_status"] = dbStatus

	if c.uploader != nil {
		response["image_provider"] = c.uploader.Name()
	}

	code := http.StatusOK
	if dbStatus != "connected" {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, response)
}

// Shutdown ends open change streams and waits for them to return.
func (c *Controller) Shutdown() {
	c.cancel()
	c.wg.Wait()
	GetLogger().Debug("API controller shut down")
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil && code < http.StatusInternalServerError {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

func generateCorrelationID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// HandleError logs err and writes the error envelope.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	log := GetLogger().With(
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("method", ctx.Request().Method),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("ip", ctx.RealIP()),
		logger.Int("code", code))
	if code >= http.StatusInternalServerError {
		log.Error(message, logger.Error(err))
	} else {
		log.Debug(message, logger.Error(err))
	}
	return ctx.JSON(code, resp)
}

// handleServiceError maps a domain error to a status and writes it.
func (c *Controller) handleServiceError(ctx echo.Context, err error) error {
	code := StatusForError(err)
	return c.HandleError(ctx, err, messageFor(err, code), code)
}

// StatusForError maps error categories to HTTP status codes.
func StatusForError(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if errors.Is(err, imageupload.ErrNotConfigured) {
		return http.StatusServiceUnavailable
	}

	switch errors.CategoryOf(err) {
	case errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryAuthorization:
		return http.StatusForbidden
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryImageUpload, errors.CategoryNetwork:
		return http.StatusBadGateway
	case errors.CategoryConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error, code int) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	switch {
	case code == http.StatusServiceUnavailable && errors.Is(err, imageupload.ErrNotConfigured):
		return "Image upload is not configured."
	case code < http.StatusInternalServerError:
		return err.Error()
	case code == http.StatusBadGateway:
		return "Image upload failed."
	default:
		return "Internal server error."
	}
}

// HTTPErrorHandler writes the error envelope for errors that escaped a
// handler, such as middleware rejections.
func HTTPErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}
	code := StatusForError(err)
	resp := NewErrorResponse(err, messageFor(err, code), code)
	if code >= http.StatusInternalServerError {
		GetLogger().Error("unhandled API error",
			logger.String("correlation_id", resp.CorrelationID),
			logger.String("path", ctx.Request().URL.Path),
			logger.Error(err))
	}
	if err := ctx.JSON(code, resp); err != nil {
		GetLogger().Warn("failed to write error response", logger.Error(err))
	}
}

// actor returns the admin performing a write.
func actor(ctx echo.Context) bureau.Actor {
	return bureau.Actor{Email: adminEmail(ctx)}
}
