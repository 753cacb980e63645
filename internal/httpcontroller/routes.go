// internal/httpcontroller/routes.go
package httpcontroller

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/security"
)

// PageRouteConfig defines the structure for each full page route.
type PageRouteConfig struct {
	Path         string
	TemplateName string
	Title        string
	Handler      func(*Server, echo.Context) error
}

// initRoutes initializes the routes for the server.
func (s *Server) initRoutes() {
	s.initAuthRoutes()

	routes := []PageRouteConfig{
		{Path: "/", TemplateName: "gallery", Title: "Specimen Gallery", Handler: (*Server).handleGallery},
		{Path: "/specimen/:id", TemplateName: "specimen", Title: "Dossier", Handler: (*Server).handleSpecimen},
		{Path: "/fieldnotes", TemplateName: "fieldnotes", Title: "Field Notes", Handler: (*Server).handleFieldNotes},
		{Path: security.AdminPath, TemplateName: "admin", Title: "Agent Terminal", Handler: (*Server).handleAdmin},
	}
	s.pageRoutes = make(map[string]PageRouteConfig, len(routes))
	for _, route := range routes {
		s.pageRoutes[route.Path] = route
		s.Echo.GET(route.Path, func(c echo.Context) error {
			return route.Handler(s, c)
		})
	}

	if s.metrics != nil && s.Settings.Metrics.Enabled {
		s.Echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	if s.Settings.Images.Provider == conf.ImageProviderLocal && s.Settings.Images.Local.Path != "" {
		s.Echo.Static(s.uploadsPrefix(), s.Settings.Images.Local.Path)
	}
}

// uploadsPrefix is the path locally stored images are served from.
func (s *Server) uploadsPrefix() string {
	if p := strings.TrimRight(s.Settings.Images.Local.URLPrefix, "/"); p != "" {
		return p
	}
	return "/uploads"
}
