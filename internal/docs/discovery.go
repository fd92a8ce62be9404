package docs

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	derrors "git.home.luguber.info/inful/mdpages/internal/docs/errors"
	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
	"git.home.luguber.info/inful/mdpages/internal/logfields"
)

// Document is a source Markdown file. Identity is Rel.
type Document struct {
	Rel  string // Slash-separated path relative to the content root
	Path string // Absolute path to the file
}

// Name returns the file name including extension.
func (d Document) Name() string { return path.Base(d.Rel) }

// Stem returns the file name without its last extension.
func (d Document) Stem() string {
	name := d.Name()
	return strings.TrimSuffix(name, path.Ext(name))
}

// Read loads the document content. Failures are classified as decode errors:
// a document that cannot be read cannot be converted.
func (d Document) Read() ([]byte, error) {
	content, err := os.ReadFile(d.Path) // #nosec G304 - path comes from discovery under the content root
	if err != nil {
		return nil, errors.WrapError(fmt.Errorf("%w: %w", derrors.ErrFileReadFailed, err), errors.CategoryDecode, "failed to read source document").
			WithContext("path", d.Rel).
			Build()
	}
	return content, nil
}

// Discovery finds source documents under a content root.
type Discovery struct {
	layout    Layout
	extension string
}

// NewDiscovery creates a discovery over layout.ContentRoot matching files that end with extension.
func NewDiscovery(layout Layout, extension string) *Discovery {
	return &Discovery{layout: layout, extension: extension}
}

// Discover returns all matching documents in WalkSorted order.
func (d *Discovery) Discover() ([]Document, error) {
	var found []Document
	err := WalkSorted(d.layout.ContentRoot, func(_, rel string, entry fs.DirEntry) error {
		if !strings.HasSuffix(entry.Name(), d.extension) {
			return nil
		}
		found = append(found, Document{Rel: rel, Path: d.layout.SourcePath(rel)})
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to discover source documents").
			WithContext("path", d.layout.ContentRoot).
			Build()
	}

	slog.Debug("Source documents discovered", logfields.Path(d.layout.ContentRoot), logfields.Count(len(found)))
	return found, nil
}
