// Package commands implements the mdpages command line.
package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mdpages/internal/config"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default: mdpages.yaml, optional)"`
	BaseDir string           `name:"base-dir" short:"b" help:"Directory holding the content, docs and memory trees; overrides paths.base"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build       BuildCmd       `cmd:"" default:"withargs" help:"Convert changed pages, rebuild the index and publish (default)"`
	Init        InitCmd        `cmd:"" help:"Write an example configuration file"`
	Watch       WatchCmd       `cmd:"" help:"Rebuild whenever content changes or on a fixed interval"`
	History     HistoryCmd     `cmd:"" help:"List recent runs"`
	VersionInfo VersionInfoCmd `cmd:"" name:"version" help:"Show version and build information"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// LoadConfig reads the configuration named by --config, or the optional
// default file, and applies the --base-dir override.
func (c *CLI) LoadConfig() (*config.Config, error) {
	path, required := c.Config, true
	if path == "" {
		path, required = config.DefaultFile, false
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, err
	}
	if c.BaseDir != "" {
		cfg.Paths.Base = c.BaseDir
		if err := cfg.Normalize(); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}
