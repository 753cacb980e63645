package security

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ContextKeyAdmin holds the admin email on requests that passed RequireAdmin.
const ContextKeyAdmin = "admin_email"

// RequireAdmin rejects requests without an admin session. JSON clients get a
// 401 or 403; page requests are redirected to the admin screen.
func (a *Authorizer) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			email := SessionEmail(c.Request())
			screen, err := a.Resolve(c.Request().Context(), email)
			if err != nil {
				return err
			}

			switch screen {
			case ScreenDashboard:
				c.Set(ContextKeyAdmin, strings.ToLower(strings.TrimSpace(email)))
				return next(c)
			case ScreenAuth:
				if wantsJSON(c) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Sign in required.")
				}
			default:
				if wantsJSON(c) {
					return echo.NewHTTPError(http.StatusForbidden, "Admin access required.")
				}
			}
			return c.Redirect(http.StatusSeeOther, AdminPath)
		}
	}
}

// AdminEmail returns the email set by RequireAdmin.
func AdminEmail(c echo.Context) string {
	email, _ := c.Get(ContextKeyAdmin).(string)
	return email
}

func wantsJSON(c echo.Context) bool {
	r := c.Request()
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
		strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}
