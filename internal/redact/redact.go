// Package redact renders the [REDACTED:text] markup used in lore, notes and
// field note content.
package redact

import (
	"html/template"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/k3a/html2text"
)

// PreviewLength is the card preview length in runes.
const PreviewLength = 150

// Placeholder replaces hidden spans in previews and plain text.
const Placeholder = "[REDACTED]"

var (
	markup = regexp.MustCompile(`\[REDACTED:(.*?)\]`)

	escaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)
)

const revealSpan = `<span class="redacted" title="Hover to reveal">$1</span>`

// Render escapes text, turns each redaction span into a reveal-on-hover
// element and converts newlines to line breaks. Escaping runs first so the
// hidden text cannot reintroduce markup.
func Render(text string) template.HTML {
	if text == "" {
		return ""
	}
	escaped := escaper.Replace(text)
	revealed := markup.ReplaceAllString(escaped, revealSpan)
	return template.HTML(strings.ReplaceAll(revealed, "\n", "<br>")) //nolint:gosec // input escaped above
}

// Mask replaces every redaction span with the placeholder.
func Mask(text string) string {
	return markup.ReplaceAllLiteralString(text, Placeholder)
}

// Preview returns the masked text cut to n runes, with "..." appended when
// something was cut. n <= 0 selects PreviewLength.
func Preview(text string, n int) string {
	if n <= 0 {
		n = PreviewLength
	}
	masked := Mask(text)
	if utf8.RuneCountInString(masked) <= n {
		return masked
	}
	runes := []rune(masked)
	return string(runes[:n]) + "..."
}

// PlainText returns text without markup and with hidden spans masked, for
// meta descriptions and event summaries.
func PlainText(text string) string {
	if text == "" {
		return ""
	}
	rendered := strings.ReplaceAll(escaper.Replace(Mask(text)), "\n", "<br>")
	return strings.TrimSpace(html2text.HTML2TextWithOptions(rendered, html2text.WithUnixLineBreaks()))
}

// Excerpt is PlainText cut to n runes.
func Excerpt(text string, n int) string {
	return Preview(PlainText(text), n)
}

// HasRedactions reports whether text contains any redaction span.
func HasRedactions(text string) bool {
	return markup.MatchString(text)
}
