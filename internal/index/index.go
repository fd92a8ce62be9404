// Package index generates the navigation page listing every rendered document
// in the output tree, grouped by folder.
package index

import (
	"bytes"
	"html/template"
	"io/fs"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/mdpages/internal/docs"
	ferrors "git.home.luguber.info/inful/mdpages/internal/foundation/errors"
	"git.home.luguber.info/inful/mdpages/internal/logfields"
	"git.home.luguber.info/inful/mdpages/internal/markdown"
	"git.home.luguber.info/inful/mdpages/internal/templates"
)

const (
	// Title is used both as the page title and the top heading.
	Title = "Site Index"
	// RootGroup labels pages directly under the output root.
	RootGroup = "Root"
)

var bodyTemplate = template.Must(template.New("index").Funcs(template.FuncMap{"pageref": pageRef}).Parse(`<h1>{{ .Title }}</h1>
{{ range .Groups }}<h2>{{ .Label }}</h2>
<ul>
{{ range .Entries }}  <li><a href="{{ pageref .Href }}">{{ .Label }}</a></li>
{{ end }}</ul>
{{ end }}`))

// pageRef turns a slash-separated relative path into a link target. Segments
// are percent-escaped, and a first segment containing a colon gets a "./"
// prefix so it is not read as a URL scheme (RFC 3986, section 4.2).
func pageRef(rel string) template.URL {
	segments := strings.Split(rel, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	ref := strings.Join(segments, "/")
	if strings.Contains(segments[0], ":") {
		ref = "./" + ref
	}
	return template.URL(ref) // #nosec G203 - relative path, escaped above
}

// Entry links one rendered page.
type Entry struct {
	Label string
	Href  string // Slash-separated, relative to the output root
}

// Group holds the entries of one folder.
type Group struct {
	Label   string
	Entries []Entry
}

// Builder renders the index page.
type Builder struct {
	now    func() time.Time
	logger *slog.Logger
}

// NewBuilder creates an index builder.
func NewBuilder() *Builder {
	return &Builder{now: time.Now, logger: slog.Default()}
}

// WithClock sets the time source for the footer date.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithLogger sets a custom logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Collect scans outputRoot for rendered pages. Groups appear in walk order
// (files of a folder before its subfolders, names compared byte-wise) and
// index.html is skipped at every depth.
func (b *Builder) Collect(outputRoot string) ([]Group, error) {
	var groups []Group
	pos := map[string]int{}

	err := docs.WalkSorted(outputRoot, func(dir, rel string, entry fs.DirEntry) error {
		name := entry.Name()
		if path.Ext(name) != docs.OutputExt || name == docs.IndexName {
			return nil
		}
		// Keyed by directory: a folder named like the root label is its own group.
		i, ok := pos[dir]
		if !ok {
			label := dir
			if dir == "." {
				label = RootGroup
			}
			i = len(groups)
			pos[dir] = i
			groups = append(groups, Group{Label: label})
		}
		groups[i].Entries = append(groups[i].Entries, Entry{
			Label: markdown.Humanize(strings.TrimSuffix(name, docs.OutputExt)),
			Href:  rel,
		})
		return nil
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to scan output tree").
			WithContext("path", outputRoot).
			Build()
	}
	return groups, nil
}

// Build renders the index page for outputRoot. ok is false when there are no
// pages to list; the caller should then leave any existing index untouched.
func (b *Builder) Build(outputRoot string) ([]byte, bool, error) {
	groups, err := b.Collect(outputRoot)
	if err != nil {
		return nil, false, err
	}
	if len(groups) == 0 {
		return nil, false, nil
	}

	var body bytes.Buffer
	data := struct {
		Title  string
		Groups []Group
	}{Title: Title, Groups: groups}
	if err := bodyTemplate.Execute(&body, data); err != nil {
		return nil, false, ferrors.WrapError(err, ferrors.CategoryRender, "failed to render index body").Build()
	}

	out, err := templates.RenderPage(templates.Page{
		Title: Title,
		Body:  template.HTML(body.String()), // #nosec G203 - produced by an escaping template above
		Date:  templates.FormatDate(b.now()),
	})
	if err != nil {
		return nil, false, ferrors.WrapError(err, ferrors.CategoryRender, "failed to render index page").Build()
	}
	return out, true, nil
}

// Write builds the index and stores it as index.html under outputRoot.
// It reports whether a page was written.
func (b *Builder) Write(outputRoot string) (bool, error) {
	out, ok, err := b.Build(outputRoot)
	if err != nil {
		return false, err
	}
	if !ok {
		b.logger.Debug("No rendered pages, index not written", logfields.Path(outputRoot))
		return false, nil
	}

	target := filepath.Join(outputRoot, docs.IndexName)
	if err := docs.WriteFile(target, bytes.NewReader(out)); err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write index").
			WithContext("path", target).
			Build()
	}
	b.logger.Info("Index updated", logfields.Output(target))
	return true, nil
}
