package docs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/mdpages/internal/docs/errors"
)

func TestLayoutMirrorsPaths(t *testing.T) {
	base := t.TempDir()
	l := Layout{
		ContentRoot: filepath.Join(base, "content"),
		OutputRoot:  filepath.Join(base, "docs"),
		StateRoot:   filepath.Join(base, "memory"),
	}

	tests := []struct {
		rel, output, state string
	}{
		{"index.md", "docs/index.html", "memory/index.md.hash"},
		{"guides/setup.md", "docs/guides/setup.html", "memory/guides/setup.md.hash"},
		{"a/b/notes.v2.md", "docs/a/b/notes.v2.html", "memory/a/b/notes.v2.md.hash"},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, filepath.Join(base, filepath.FromSlash(tt.output)), l.OutputPath(tt.rel))
			assert.Equal(t, filepath.Join(base, filepath.FromSlash(tt.state)), l.StatePath(tt.rel))
			assert.Equal(t, filepath.Join(base, "content", filepath.FromSlash(tt.rel)), l.SourcePath(tt.rel))
		})
	}
}

func TestLayoutRel(t *testing.T) {
	base := t.TempDir()
	l := Layout{ContentRoot: filepath.Join(base, "content")}

	rel, err := l.Rel(filepath.Join(base, "content", "sub", "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "sub/a.md", rel)

	_, err = l.Rel(filepath.Join(base, "elsewhere", "a.md"))
	require.ErrorIs(t, err, derrors.ErrOutsideRoot)
}
