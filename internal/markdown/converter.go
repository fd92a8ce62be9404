// Package markdown renders source documents into complete HTML pages.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/mdpages/internal/docs"
	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
	"git.home.luguber.info/inful/mdpages/internal/logfields"
	"git.home.luguber.info/inful/mdpages/internal/templates"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Page is a converted document ready to be written.
type Page struct {
	OutputPath string // Absolute location under the output root
	Rel        string // Source-relative path of the document
	Title      string
	HTML       []byte
}

// Converter turns Markdown documents into full HTML pages. It holds no
// per-document state, so a single instance serves a whole run.
type Converter struct {
	layout docs.Layout
	engine goldmark.Markdown
	now    func() time.Time
	logger *slog.Logger
}

// NewConverter creates a converter writing pages under layout.OutputRoot.
func NewConverter(layout docs.Layout) *Converter {
	return &Converter{
		layout: layout,
		engine: NewEngine(),
		now:    time.Now,
		logger: slog.Default(),
	}
}

// WithClock sets the time source used for the page footer date.
func (c *Converter) WithClock(now func() time.Time) *Converter {
	c.now = now
	return c
}

// WithLogger sets a custom logger.
func (c *Converter) WithLogger(logger *slog.Logger) *Converter {
	c.logger = logger
	return c
}

// NewEngine builds the goldmark instance used for page bodies: tables, fenced
// code, a "[TOC]" marker, hard line breaks, heading ids and raw HTML passthrough.
func NewEngine() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.Table, TOC),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
	)
}

// Convert reads doc from disk and renders it.
func (c *Converter) Convert(doc docs.Document) (Page, error) {
	content, err := doc.Read()
	if err != nil {
		return Page{}, err
	}
	return c.Render(doc, content)
}

// Render converts already loaded content. Content that is not valid UTF-8 is
// rejected with a decode error.
func (c *Converter) Render(doc docs.Document, content []byte) (Page, error) {
	if !utf8.Valid(content) {
		return Page{}, errors.DecodeError("source document is not valid UTF-8").
			WithContext("path", doc.Rel).
			Build()
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	var body bytes.Buffer
	if err := c.engine.Convert(content, &body); err != nil {
		return Page{}, errors.WrapError(err, errors.CategoryRender, "failed to render markdown").
			WithContext("path", doc.Rel).
			Build()
	}

	title := ExtractTitle(string(content), doc.Stem())
	out, err := templates.RenderPage(templates.Page{
		Title: title,
		Body:  template.HTML(body.String()), // #nosec G203 - rendered Markdown is trusted page content
		Date:  templates.FormatDate(c.now()),
	})
	if err != nil {
		return Page{}, errors.WrapError(err, errors.CategoryRender, fmt.Sprintf("failed to render page %s", doc.Rel)).
			WithContext("path", doc.Rel).
			Build()
	}

	c.logger.Debug("Document rendered", logfields.File(doc.Rel), slog.String("title", title))
	return Page{
		OutputPath: c.layout.OutputPath(doc.Rel),
		Rel:        doc.Rel,
		Title:      title,
		HTML:       out,
	}, nil
}
