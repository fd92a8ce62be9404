// Package templates renders the single HTML page layout shared by converted
// documents and the site index.
package templates

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"time"
)

// DateLayout is the footer date format, e.g. "March 05, 2025".
const DateLayout = "January 02, 2006"

//go:embed assets/page.html
var pageSource string

var pageTemplate = template.Must(template.New("page").Option("missingkey=error").Parse(pageSource))

// Page is the data handed to the layout. Body is trusted HTML produced by the
// Markdown renderer and is emitted as is; Title and Date are escaped.
type Page struct {
	Title string
	Body  template.HTML
	Date  string
}

// FormatDate renders t in the footer date format.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// RenderPage fills the layout. It has no side effects.
func RenderPage(p Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("render page %q: %w", p.Title, err)
	}
	return buf.Bytes(), nil
}
