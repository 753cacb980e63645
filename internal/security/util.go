package security

import (
	"net/url"
	"strings"
)

// SafeReturnPath accepts only same-origin absolute paths for post sign-in
// redirects. Anything else falls back to the dashboard.
func SafeReturnPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return AdminPath
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return AdminPath
	}
	return u.RequestURI()
}
