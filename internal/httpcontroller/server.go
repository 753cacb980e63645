// internal/httpcontroller/server.go
package httpcontroller

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/acme/autocert"

	api "github.com/peepybureau/bpi/internal/api/v1"
	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/imageupload"
	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/observability"
	"github.com/peepybureau/bpi/internal/security"
	"github.com/peepybureau/bpi/internal/workspace"
)

// Server encapsulates the Echo server, the pages and the JSON API.
type Server struct {
	Echo       *echo.Echo
	Settings   *conf.Settings
	Authorizer *security.Authorizer
	APIV1      *api.Controller

	svc        *bureau.Service
	workspaces *workspace.Registry
	uploader   imageupload.Uploader
	metrics    *observability.Metrics

	// Page routes
	pageRoutes map[string]PageRouteConfig
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithUploader enables image uploads.
func WithUploader(u imageupload.Uploader) Option {
	return func(s *Server) { s.uploader = u }
}

// WithMetrics enables request metrics and, when configured, /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds the server and registers every route.
func New(settings *conf.Settings, svc *bureau.Service, workspaces *workspace.Registry, authorizer *security.Authorizer, opts ...Option) *Server {
	configureDefaultSettings(settings)

	s := &Server{
		Echo:       echo.New(),
		Settings:   settings,
		Authorizer: authorizer,
		svc:        svc,
		workspaces: workspaces,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()
	s.initializeServer()
	return s
}

// initializeServer configures and initializes the server.
func (s *Server) initializeServer() {
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.Debug = s.Settings.Main.Debug
	s.initLogger()
	s.Echo.HTTPErrorHandler = s.customErrorHandler
	s.setupTemplateRenderer()
	s.configureMiddleware()
	s.initRoutes()

	apiOpts := []api.Option{
		api.WithAuthMiddleware(s.Authorizer.RequireAdmin()),
		api.WithUploader(s.uploader),
	}
	if s.metrics != nil {
		apiOpts = append(apiOpts, api.WithMetrics(s.metrics.HTTP))
	}
	s.APIV1 = api.New(s.Echo, s.svc, s.workspaces, s.Settings, apiOpts...)
}

// configureDefaultSettings sets default values for server settings.
func configureDefaultSettings(settings *conf.Settings) {
	if settings.WebServer.Port == "" {
		settings.WebServer.Port = "8080"
	}
	if settings.WebServer.ReadTimeout <= 0 {
		settings.WebServer.ReadTimeout = 30 * time.Second
	}
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	server := &http.Server{
		Addr:              s.Settings.ListenAddress(),
		ReadHeaderTimeout: 10 * time.Second,
		// no write timeout, change streams stay open
		ReadTimeout: s.Settings.WebServer.ReadTimeout,
		IdleTimeout: 2 * time.Minute,
	}

	if s.Settings.WebServer.AutoTLS {
		cfg, err := s.autoTLSConfig()
		if err != nil {
			return err
		}
		server.TLSConfig = cfg
		s.Echo.TLSServer = server
	} else {
		s.Echo.Server = server
	}

	GetLogger().Info("HTTP server starting",
		logger.String("address", server.Addr),
		logger.Bool("auto_tls", s.Settings.WebServer.AutoTLS),
		logger.Bool("google_auth", s.Settings.GoogleAuthConfigured()),
		logger.Bool("uploads", s.uploader != nil))

	if err := s.Echo.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// autoTLSConfig points echo's autocert manager at security.host and returns
// the TLS config that serves its certificates.
func (s *Server) autoTLSConfig() (*tls.Config, error) {
	cacheDir := s.Settings.WebServer.CertCache
	if cacheDir == "" {
		configPaths, err := conf.GetDefaultConfigPaths()
		if err != nil {
			return nil, err
		}
		cacheDir = configPaths[0]
	}

	s.Echo.AutoTLSManager.Prompt = autocert.AcceptTOS
	s.Echo.AutoTLSManager.Cache = autocert.DirCache(cacheDir)
	s.Echo.AutoTLSManager.HostPolicy = autocert.HostWhitelist(s.Settings.Security.Host)
	return s.Echo.AutoTLSManager.TLSConfig(), nil
}

// Shutdown ends change streams, closes workspaces and drains in-flight
// requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	GetLogger().Info("HTTP server shutting down")
	s.APIV1.Shutdown()
	s.workspaces.CloseAll()
	return s.Echo.Shutdown(ctx)
}

// initLogger routes echo's own logger to the http module and silences it
// outside debug mode.
func (s *Server) initLogger() {
	s.Echo.Logger.SetOutput(&echoLogAdapter{log: GetLogger()})
	if s.Settings.Main.Debug {
		s.Echo.Logger.SetLevel(log.DEBUG)
	} else {
		s.Echo.Logger.SetLevel(log.WARN)
	}
}
