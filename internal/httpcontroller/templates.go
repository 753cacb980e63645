package httpcontroller

import (
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/security"
)

// ViewsFs holds the page templates.
//
//go:embed views/*.html
var ViewsFs embed.FS

// Banner is the marquee shown on every page.
type Banner struct {
	Message string
	Status  datastore.SiteStatus
	Color   string
}

// PageData is passed to every page template.
type PageData struct {
	Title      string
	SiteName   string
	Banner     Banner
	AdminEmail string
	Content    any
}

// TemplateRenderer is a custom HTML template renderer for Echo framework.
type TemplateRenderer struct {
	templates *template.Template
}

// Render renders a template with the given data.
func (t *TemplateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

// parseTemplates parses the embedded views once.
func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFunctions()).ParseFS(ViewsFs, "views/*.html")
}

// setupTemplateRenderer configures the template renderer for the server
func (s *Server) setupTemplateRenderer() {
	tmpl, err := parseTemplates()
	if err != nil {
		// the views are embedded, a parse failure is a build defect
		panic(err)
	}
	s.Echo.Renderer = &TemplateRenderer{templates: tmpl}
}

// pageData assembles the shared page fields. Settings failures fall back to
// the default banner so pages still render.
func (s *Server) pageData(c echo.Context, title string, content any) PageData {
	settings, err := s.svc.SiteSettings(c.Request().Context())
	if err != nil {
		GetLogger().Warn("site settings unavailable, using defaults", logger.Error(err))
		settings = bureau.DefaultSiteSettings()
	}

	name := s.Settings.Main.Name
	if name == "" {
		name = "Bureau of Peepy Investigation"
	}
	return PageData{
		Title:    title,
		SiteName: name,
		Banner: Banner{
			Message: settings.MarqueeMessage,
			Status:  settings.SiteStatus,
			Color:   bureau.BannerColor(settings.SiteStatus),
		},
		AdminEmail: security.SessionEmail(c.Request()),
		Content:    content,
	}
}
