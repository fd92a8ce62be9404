package helpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.home.luguber.info/inful/mdpages/internal/config"
)

// Site is a throwaway base directory with the content/docs/memory layout.
type Site struct {
	t    *testing.T
	Base string
	Cfg  *config.Config
}

// NewSite creates an empty site with publishing disabled.
func NewSite(t *testing.T) *Site {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.Base = t.TempDir()
	cfg.Publish.Enabled = false
	cfg.History.Enabled = false
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize config: %v", err)
	}
	return &Site{t: t, Base: cfg.Paths.Base, Cfg: cfg}
}

// WriteSource creates or replaces a document under the content root.
func (s *Site) WriteSource(rel, content string) {
	s.t.Helper()
	p := filepath.Join(s.Cfg.ContentDir(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		s.t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		s.t.Fatalf("write %s: %v", rel, err)
	}
}

// Output returns assertions rooted at the output tree.
func (s *Site) Output() *FileAssertions { return NewFileAssertions(s.t, s.Cfg.OutputDir()) }

// State returns assertions rooted at the fingerprint tree.
func (s *Site) State() *FileAssertions { return NewFileAssertions(s.t, s.Cfg.StateDir()) }

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
