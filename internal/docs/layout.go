package docs

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	derrors "git.home.luguber.info/inful/mdpages/internal/docs/errors"
)

const (
	// StateSuffix is appended to a source file name to form its fingerprint file name.
	StateSuffix = ".hash"
	// OutputExt replaces the source extension on rendered pages.
	OutputExt = ".html"
	// IndexName is the generated navigation page at the output root.
	IndexName = "index.html"
)

// Layout maps a source-relative path onto the mirrored output and state trees.
type Layout struct {
	ContentRoot string
	OutputRoot  string
	StateRoot   string
}

// OutputRel returns the slash-separated output path relative to the output root.
// Only the last extension is replaced, so "notes.v2.md" becomes "notes.v2.html".
func (l Layout) OutputRel(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel)) + OutputExt
}

// OutputPath returns the rendered page location for a source document.
func (l Layout) OutputPath(rel string) string {
	return filepath.Join(l.OutputRoot, filepath.FromSlash(l.OutputRel(rel)))
}

// StatePath returns the fingerprint record location for a source document.
func (l Layout) StatePath(rel string) string {
	return filepath.Join(l.StateRoot, filepath.FromSlash(rel)+StateSuffix)
}

// SourcePath returns the absolute location of a source document.
func (l Layout) SourcePath(rel string) string {
	return filepath.Join(l.ContentRoot, filepath.FromSlash(rel))
}

// Rel converts an absolute path under the content root into a source-relative path.
func (l Layout) Rel(abs string) (string, error) {
	return relTo(l.ContentRoot, abs)
}

func relTo(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", derrors.ErrOutsideRoot, abs, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s not under %s", derrors.ErrOutsideRoot, abs, root)
	}
	return filepath.ToSlash(rel), nil
}
