package config

import (
	"path/filepath"

	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
)

// PathsConfig holds the base directory and the three trees mirrored under it.
type PathsConfig struct {
	Base    string `yaml:"base"`
	Content string `yaml:"content"`
	Output  string `yaml:"output"`
	State   string `yaml:"state"`
}

// Normalize resolves the base directory to an absolute path and fills empty
// path fields with their defaults.
func (c *Config) Normalize() error {
	if c.Paths.Base == "" {
		c.Paths.Base = "."
	}
	abs, err := filepath.Abs(c.Paths.Base)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to resolve base directory").
			WithContext("base", c.Paths.Base).
			Build()
	}
	c.Paths.Base = abs

	if c.Paths.Content == "" {
		c.Paths.Content = defaultContentDir
	}
	if c.Paths.Output == "" {
		c.Paths.Output = defaultOutputDir
	}
	if c.Paths.State == "" {
		c.Paths.State = defaultStateDir
	}
	if c.Markdown.Extension == "" {
		c.Markdown.Extension = ".md"
	}
	if c.Publish.Backend == "" {
		c.Publish.Backend = BackendCLI
	}
	if c.Publish.GitBinary == "" {
		c.Publish.GitBinary = "git"
	}
	if c.History.Path == "" {
		c.History.Path = defaultHistory
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = defaultSubject
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = defaultDebounce
	}
	return nil
}

// ContentDir returns the absolute source root.
func (c *Config) ContentDir() string { return c.resolve(c.Paths.Content) }

// OutputDir returns the absolute output root.
func (c *Config) OutputDir() string { return c.resolve(c.Paths.Output) }

// StateDir returns the absolute fingerprint root.
func (c *Config) StateDir() string { return c.resolve(c.Paths.State) }

// HistoryPath returns the absolute path of the run history database.
func (c *Config) HistoryPath() string { return c.resolve(c.History.Path) }

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Paths.Base, p)
}
