package httpcontroller

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/security"
	"github.com/peepybureau/bpi/internal/workspace"
)

// deepLinkWait bounds how long the admin page waits for workspace snapshots
// before giving up on a deep link.
const deepLinkWait = 5 * time.Second

// Option lists for the filter forms.
var (
	gallerySorts = []string{bureau.SortDate, bureau.SortName, bureau.SortThreat}
	noteSorts    = []string{bureau.NoteSortDate, bureau.NoteSortTitle, bureau.NoteSortCategory}
)

// galleryPage is the content of the gallery view.
type galleryPage struct {
	Specimens    []datastore.Specimen
	Filter       bureau.GalleryFilter
	Statuses     []datastore.Status
	ThreatLevels []datastore.ThreatLevel
	Sorts        []string
}

// dossierPage is the content of the specimen view. Dossier is nil when the
// specimen does not exist.
type dossierPage struct {
	Dossier  *bureau.Dossier
	NotFound string
}

// fieldNotesPage is the content of the field notes view.
type fieldNotesPage struct {
	Notes      []datastore.FieldNote
	Filter     bureau.NoteFilter
	Categories []datastore.NoteCategory
	Sorts      []string
	// SpecimenNames resolves related specimen ids for the note cards.
	SpecimenNames map[string]string
}

// adminPage is the content of the admin view.
type adminPage struct {
	Screen      security.Screen
	Email       string
	SignInURL   string
	SignInReady bool
	Workspace   *workspace.View
	Notice      string
}

type errorPage struct {
	Code    int
	Message string
}

// renderPage renders the template registered for the matched route.
func (s *Server) renderPage(c echo.Context, code int, title string, content any) error {
	route, ok := s.pageRoutes[c.Path()]
	if !ok {
		return fmt.Errorf("no page route for %s", c.Path())
	}
	if title == "" {
		title = route.Title
	}
	return c.Render(code, route.TemplateName, s.pageData(c, title, content))
}

// handleGallery renders GET /?status=&threat=&sort=
func (s *Server) handleGallery(c echo.Context) error {
	filter := bureau.GalleryFilter{
		Status: datastore.Status(c.QueryParam("status")),
		Threat: datastore.ThreatLevel(c.QueryParam("threat")),
		Sort:   c.QueryParam("sort"),
	}
	specimens, err := s.svc.Gallery(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return s.renderPage(c, http.StatusOK, "", galleryPage{
		Specimens:    specimens,
		Filter:       filter,
		Statuses:     datastore.Statuses,
		ThreatLevels: datastore.ThreatLevels,
		Sorts:        gallerySorts,
	})
}

// handleSpecimen renders GET /specimen/:id
func (s *Server) handleSpecimen(c echo.Context) error {
	dossier, err := s.svc.Dossier(c.Request().Context(), c.Param("id"))
	if errors.IsNotFound(err) {
		return s.renderPage(c, http.StatusNotFound, "Not Found", dossierPage{NotFound: bureau.SpecimenNotFound})
	}
	if err != nil {
		return err
	}
	return s.renderPage(c, http.StatusOK, orDefault(dossier.Specimen.Name, "Unknown"), dossierPage{Dossier: dossier})
}

// handleFieldNotes renders GET /fieldnotes?category=&sort=
func (s *Server) handleFieldNotes(c echo.Context) error {
	ctx := c.Request().Context()
	filter := bureau.NoteFilter{
		Category: datastore.NoteCategory(c.QueryParam("category")),
		Sort:     c.QueryParam("sort"),
	}
	notes, err := s.svc.FieldNotes(ctx, filter)
	if err != nil {
		return err
	}
	specimens, err := s.svc.AdminSpecimens(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(specimens))
	for i := range specimens {
		names[specimens[i].ID] = bureau.AssociateName(&specimens[i])
	}

	return s.renderPage(c, http.StatusOK, "", fieldNotesPage{
		Notes:         notes,
		Filter:        filter,
		Categories:    datastore.NoteCategories,
		Sorts:         noteSorts,
		SpecimenNames: names,
	})
}

// handleAdmin renders the sign-in, denied or dashboard screen. On the
// dashboard the edit, editNote, editTranscript and newTranscriptFor query
// parameters open the matching record in the caller's workspace.
func (s *Server) handleAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	email := security.SessionEmail(c.Request())

	screen, err := s.Authorizer.Resolve(ctx, email)
	if err != nil {
		return err
	}
	page := adminPage{
		Screen:      screen,
		Email:       email,
		SignInURL:   "/auth/" + security.ProviderGoogle + "?return=" + security.AdminPath,
		SignInReady: s.Settings.GoogleAuthConfigured(),
	}
	if screen != security.ScreenDashboard {
		return s.renderPage(c, http.StatusOK, "", page)
	}

	key := security.SessionID(c.Request())
	if key == "" {
		key = email
	}
	w := s.workspaces.GetOrOpen(context.WithoutCancel(ctx), key)

	waitCtx, cancel := context.WithTimeout(ctx, deepLinkWait)
	defer cancel()
	if _, _, err := w.OpenFromQuery(waitCtx, c.QueryParams()); err != nil {
		switch {
		case waitCtx.Err() != nil:
			page.Notice = "Workspace is still loading, try the link again."
		case errors.IsNotFound(err):
			page.Notice = "The requested record no longer exists."
		default:
			GetLogger().Warn("deep link failed", logger.Error(err))
			page.Notice = err.Error()
		}
	}

	view := w.View()
	page.Workspace = &view
	return s.renderPage(c, http.StatusOK, "", page)
}
