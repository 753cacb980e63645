package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/imageupload"
	"github.com/peepybureau/bpi/internal/security"
	"github.com/peepybureau/bpi/internal/workspace"
)

const (
	adminHeader = "X-Test-Admin"
	chief       = "chief@bureau.example"
)

// testAdmin trusts adminHeader in place of a session cookie.
func testAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		email := c.Request().Header.Get(adminHeader)
		if email == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Sign in required.")
		}
		c.Set(security.ContextKeyAdmin, email)
		return next(c)
	}
}

type testEnv struct {
	e          *echo.Echo
	controller *Controller
	svc        *bureau.Service
	settings   *conf.Settings
}

func setupTestEnvironment(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	return setupTestEnvironmentWith(t, nil, opts...)
}

// setupTestEnvironmentWith lets configure adjust settings before routes are
// registered.
func setupTestEnvironmentWith(t *testing.T, configure func(*conf.Settings), opts ...Option) *testEnv {
	t.Helper()

	settings := &conf.Settings{}
	settings.Database.Driver = conf.DriverSQLite
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "api.db")
	settings.Images.MaxUploadSize = 1 << 20
	if configure != nil {
		configure(settings)
	}

	store, err := datastore.New(settings, nil)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	svc := bureau.New(store, bureau.Options{})
	registry := workspace.NewRegistry(svc, time.Hour)
	t.Cleanup(registry.CloseAll)

	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	opts = append([]Option{WithAuthMiddleware(testAdmin)}, opts...)
	c := New(e, svc, registry, settings, opts...)
	t.Cleanup(c.Shutdown)

	return &testEnv{e: e, controller: c, svc: svc, settings: settings}
}

func (env *testEnv) do(t *testing.T, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if admin {
		req.Header.Set(adminHeader, chief)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type saveResult struct {
	Specimen datastore.Specimen `json:"specimen"`
	Created  bool               `json:"created"`
	Warning  string             `json:"warning"`
}

func (env *testEnv) createSpecimen(t *testing.T, name string) datastore.Specimen {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/v1/specimens", map[string]any{
		"name":    name,
		"mugshot": "https://img.example/" + name + ".png",
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[saveResult](t, rec).Specimen
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database_status"])
}

func TestSpecimenLifecycle(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	rec := env.do(t, http.MethodPost, "/api/v1/specimens", map[string]any{"name": "Peepy"}, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, decode[ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodPost, "/api/v1/specimens", map[string]any{"name": "Peepy"}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decode[ErrorResponse](t, rec)
	assert.Equal(t, bureau.MsgMugshotRequired, errResp.Message)
	assert.NotEmpty(t, errResp.CorrelationID)

	sp := env.createSpecimen(t, "Peepy")
	assert.Equal(t, chief, sp.CreatedBy)
	assert.Equal(t, datastore.StatusActive, sp.Status)

	rec = env.do(t, http.MethodPut, "/api/v1/specimens/"+sp.ID, map[string]any{
		"name":        "Peepy",
		"threatLevel": "HIGH",
	}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[saveResult](t, rec)
	assert.False(t, updated.Created)
	assert.Equal(t, datastore.ThreatHigh, updated.Specimen.ThreatLevel)

	rec = env.do(t, http.MethodGet, "/api/v1/specimens?threat=HIGH", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]datastore.Specimen](t, rec), 1)

	rec = env.do(t, http.MethodDelete, "/api/v1/specimens/"+sp.ID, nil, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, bureau.MsgConfirmationMissing, decode[ErrorResponse](t, rec).Message)

	rec = env.do(t, http.MethodDelete, "/api/v1/specimens/"+sp.ID+"?confirm=peepy", nil, true)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/specimens/"+sp.ID, nil, false)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decode[ErrorResponse](t, rec).Code)
}

func TestSpecimenLinkedNotesAndDossier(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	rec := env.do(t, http.MethodPost, "/api/v1/fieldnotes", map[string]any{
		"title":    "Nest sites",
		"category": "LOCATION",
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	note := decode[datastore.FieldNote](t, rec)

	rec = env.do(t, http.MethodPost, "/api/v1/specimens", map[string]any{
		"name":        "Peepy",
		"mugshot":     "https://img.example/p.png",
		"linkedNotes": []string{note.ID},
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sp := decode[saveResult](t, rec).Specimen

	rec = env.do(t, http.MethodGet, "/api/v1/specimens/"+sp.ID+"/dossier", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var dossier struct {
		Specimen   datastore.Specimen    `json:"specimen"`
		FieldNotes []datastore.FieldNote `json:"fieldNotes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dossier))
	assert.Equal(t, sp.ID, dossier.Specimen.ID)
	require.Len(t, dossier.FieldNotes, 1)
	assert.Equal(t, note.ID, dossier.FieldNotes[0].ID)

	rec = env.do(t, http.MethodGet, "/api/v1/fieldnotes?category=SPECIES", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]datastore.FieldNote](t, rec))
}

func TestTranscriptRequiresSpecimen(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	rec := env.do(t, http.MethodPost, "/api/v1/transcripts", map[string]any{"title": "Interview"}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, bureau.MsgSpecimenRequired, decode[ErrorResponse](t, rec).Message)

	sp := env.createSpecimen(t, "Peepy")
	rec = env.do(t, http.MethodPost, "/api/v1/transcripts", map[string]any{
		"title":            "Interview",
		"relatedSpecimens": []string{sp.ID},
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tr := decode[datastore.Transcript](t, rec)

	rec = env.do(t, http.MethodDelete, "/api/v1/transcripts/"+tr.ID, nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t)

	rec := env.do(t, http.MethodGet, "/api/v1/settings", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	public := decode[PublicSettings](t, rec)
	assert.Equal(t, bureau.DefaultMarquee, public.MarqueeMessage)
	assert.Equal(t, datastore.SiteOperational, public.SiteStatus)

	rec = env.do(t, http.MethodPut, "/api/v1/settings", map[string]any{
		"allowedAdmins":  []string{},
		"marqueeMessage": "closed",
	}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, bureau.MsgAdminRequired, decode[ErrorResponse](t, rec).Message)

	rec = env.do(t, http.MethodPut, "/api/v1/settings", map[string]any{
		"allowedAdmins":  []string{chief},
		"marqueeMessage": "/// LOCKDOWN ///",
		"siteStatus":     "LOCKDOWN",
	}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/settings", nil, false)
	public = decode[PublicSettings](t, rec)
	assert.Equal(t, datastore.SiteLockdown, public.SiteStatus)
	assert.Equal(t, "#990000", public.BannerColor)

	rec = env.do(t, http.MethodGet, "/api/v1/settings/admin", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errors.ValidationError("bad"), http.StatusBadRequest},
		{"not found", errors.NotFound("specimens", "x"), http.StatusNotFound},
		{"not configured", imageupload.ErrNotConfigured, http.StatusServiceUnavailable},
		{"upload", errors.Newf("boom").Category(errors.CategoryImageUpload).Build(), http.StatusBadGateway},
		{"echo", echo.NewHTTPError(http.StatusTeapot, "tea"), http.StatusTeapot},
		{"wrapped", fmt.Errorf("outer: %w", errors.NotFound("fieldNotes", "y")), http.StatusNotFound},
		{"plain", errors.NewStd("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StatusForError(tt.err))
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	t.Parallel()

	resp := NewErrorResponse(errors.NewStd("dial tcp 10.0.0.5:3306: refused"), "Internal server error.", http.StatusInternalServerError)
	assert.Equal(t, "Internal server error.", resp.Error)
	assert.Len(t, resp.CorrelationID, 12)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, http.StatusInternalServerError, StatusForError(ctx.Err()))
}
