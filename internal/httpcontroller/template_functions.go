// internal/httpcontroller/template_functions.go
package httpcontroller

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/redact"
)

// templateFunctions returns the functions available to every view.
func templateFunctions() template.FuncMap {
	titleCaser := cases.Title(language.English)
	return template.FuncMap{
		"title": func(s string) string {
			return titleCaser.String(strings.ToLower(s))
		},
		"statusClass":   func(s datastore.Status) string { return bureau.StatusClass(s) },
		"threatClass":   func(t datastore.ThreatLevel) string { return bureau.ThreatClass(t) },
		"categoryColor": func(c datastore.NoteCategory) string { return bureau.CategoryColor(c) },
		"redact":        redact.Render,
		"preview":       func(s string) string { return redact.Preview(s, redact.PreviewLength) },
		"excerpt":       func(s string, n int) string { return redact.Excerpt(s, n) },
		"placeholder":   placeholderImage,
		"orDefault":     orDefault,
		"timestamp":     formatTimestamp,
		"add":           func(a, b int) int { return a + b },
	}
}

// placeholderImage returns an inline SVG data URL with label centred on a
// dark panel, used where a record has no image.
func placeholderImage(label string, width, height int) template.URL {
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
		`<rect fill="#1a1a1a" width="%d" height="%d"/>`+
		`<text fill="#333" font-family="Courier New" font-size="14" x="%d" y="%d" text-anchor="middle">%s</text></svg>`,
		width, height, width, height, width, height, width/2, height/2, template.HTMLEscapeString(label))
	return template.URL("data:image/svg+xml," + url.PathEscape(svg)) //nolint:gosec // constant markup, label escaped
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format("2006-01-02 15:04 MST")
}
