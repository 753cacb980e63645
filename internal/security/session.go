package security

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/markbates/goth/gothic"

	"github.com/peepybureau/bpi/internal/errors"
)

// AdminSessionName is the cookie holding the signed-in identity. The gothic
// session only carries OAuth state.
const AdminSessionName = "bpi_admin"

func sessionValue(r *http.Request, key string) string {
	if gothic.Store == nil {
		return ""
	}
	session, err := gothic.Store.Get(r, AdminSessionName)
	if err != nil {
		return ""
	}
	v, _ := session.Values[key].(string)
	return v
}

// SessionEmail returns the signed-in email, or "" without a session.
func SessionEmail(r *http.Request) string {
	return sessionValue(r, SessionKeyEmail)
}

// SessionID returns a stable id for the signed-in session, used to key the
// admin workspace. Empty without a session.
func SessionID(r *http.Request) string {
	if id := sessionValue(r, SessionKeyUserID); id != "" {
		return id
	}
	return SessionEmail(r)
}

// StartSession replaces any existing session values with the signed-in
// identity. Read ReturnPath before calling it.
func StartSession(c echo.Context, userID, email string) error {
	session, err := gothic.Store.Get(c.Request(), AdminSessionName)
	if err != nil && session == nil {
		return sessionError(err)
	}
	session.Values = map[any]any{
		SessionKeyUserID: userID,
		SessionKeyEmail:  email,
	}
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return sessionError(err)
	}
	return nil
}

// EndSession clears the admin and OAuth session cookies.
func EndSession(c echo.Context) error {
	w, r := c.Response(), c.Request()
	if session, err := gothic.Store.Get(r, AdminSessionName); session != nil {
		session.Values = map[any]any{}
		session.Options.MaxAge = -1
		if err = session.Save(r, w); err != nil {
			return sessionError(err)
		}
	}
	if err := gothic.Logout(w, r); err != nil {
		return sessionError(err)
	}
	return nil
}

// RememberReturnPath stores where to go after sign-in.
func RememberReturnPath(c echo.Context, raw string) error {
	session, err := gothic.Store.Get(c.Request(), AdminSessionName)
	if err != nil && session == nil {
		return sessionError(err)
	}
	session.Values[SessionKeyReturnTo] = SafeReturnPath(raw)
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return sessionError(err)
	}
	return nil
}

// ReturnPath returns the remembered post sign-in path.
func ReturnPath(r *http.Request) string {
	return SafeReturnPath(sessionValue(r, SessionKeyReturnTo))
}

func sessionError(err error) error {
	return errors.New(err).
		Component("security").
		Category(errors.CategoryAuthorization).
		Build()
}
