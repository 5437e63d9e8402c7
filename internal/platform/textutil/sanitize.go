package textutil

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// PlainText strips all markup from caller-supplied free text. Maintenance
// descriptions and notes are rendered back to tenants and vendors, so stored
// values carry no HTML.
func PlainText(value string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(value)))
}
