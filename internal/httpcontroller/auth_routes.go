package httpcontroller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/markbates/goth/gothic"

	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/security"
)

// authRateLimit is the per-client sign-in request budget per second.
const authRateLimit = 10

// initAuthRoutes initializes all authentication related routes
func (s *Server) initAuthRoutes() {
	limiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(authRateLimit))

	s.Echo.GET("/auth/:provider", s.handleGothProvider, limiter)
	s.Echo.GET("/auth/:provider/callback", s.handleGothCallback, limiter)
	s.Echo.GET("/logout", s.handleLogout)
}

// handleGothProvider starts the provider redirect. ?return= names the page to
// come back to.
func (s *Server) handleGothProvider(c echo.Context) error {
	provider := c.Param("provider")
	if provider != security.ProviderGoogle || !s.Settings.GoogleAuthConfigured() {
		return echo.NewHTTPError(http.StatusNotFound, "Sign-in provider is not available.")
	}

	if err := security.RememberReturnPath(c, c.QueryParam("return")); err != nil {
		GetLogger().Warn("failed to remember return path", logger.Error(err))
	}

	// gothic reads the provider from the query
	query := c.Request().URL.Query()
	query.Set("provider", provider)
	c.Request().URL.RawQuery = query.Encode()

	gothic.BeginAuthHandler(c.Response(), c.Request())
	return nil
}

// handleGothCallback completes sign-in and starts the admin session. Whether
// the account may use the dashboard is decided on each request, not here.
func (s *Server) handleGothCallback(c echo.Context) error {
	provider := c.Param("provider")
	log := GetLogger().With(logger.String("provider", provider))

	query := c.Request().URL.Query()
	query.Set("provider", provider)
	c.Request().URL.RawQuery = query.Encode()

	user, err := gothic.CompleteUserAuth(c.Response(), c.Request())
	if err != nil {
		log.Warn("sign-in failed", logger.Error(err))
		if s.metrics != nil {
			s.metrics.HTTP.RecordAuth("failed")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Authentication failed. Please try again.")
	}

	// read before StartSession replaces the session values
	returnTo := security.ReturnPath(c.Request())

	if err := security.StartSession(c, user.UserID, user.Email); err != nil {
		log.Error("failed to start session", logger.Error(err))
		return err
	}
	if err := gothic.Logout(c.Response(), c.Request()); err != nil {
		log.Debug("failed to clear oauth state", logger.Error(err))
	}

	log.Info("signed in", logger.String("email", user.Email))
	return c.Redirect(http.StatusSeeOther, returnTo)
}

// handleLogout ends the session and returns to the gallery.
func (s *Server) handleLogout(c echo.Context) error {
	if err := security.EndSession(c); err != nil {
		GetLogger().Warn("failed to clear session", logger.Error(err))
	}
	return c.Redirect(http.StatusSeeOther, "/")
}
