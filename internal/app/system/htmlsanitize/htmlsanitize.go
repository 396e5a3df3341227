// Package htmlsanitize cleans user-supplied text before it is stored
// or rendered. Form fields go through StripTags; the few rich-text
// surfaces (announcements, closure remarks) go through Sanitize.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy   = buildRichPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

func buildRichPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("u", "s", "sub", "sup", "mark")
	p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
	return p
}

// Sanitize strips dangerous markup but keeps basic formatting, lists,
// links and tables.
func Sanitize(s string) string {
	return richPolicy.Sanitize(s)
}

// SanitizeToHTML sanitizes and wraps the result for direct use in a
// template without re-escaping.
func SanitizeToHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}

// StripTags removes all markup, leaving plain text. Used for form
// fields that must never carry HTML, like names and team labels.
func StripTags(s string) string {
	return strictPolicy.Sanitize(s)
}

// IsPlainText reports whether s contains no markup at all. A lone < or
// > does not count as markup.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<") || !strings.Contains(s, ">")
}

// PlainTextToHTML escapes s and converts newlines to <br> inside a
// single paragraph.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(s)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// PrepareForDisplay renders stored text for a template: plain text gets
// paragraph treatment, anything with markup gets sanitized as-is.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return template.HTML(PlainTextToHTML(s))
	}
	return SanitizeToHTML(s)
}
