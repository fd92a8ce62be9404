package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/mdpages/internal/config"
	"git.home.luguber.info/inful/mdpages/internal/daemon"
	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
	"git.home.luguber.info/inful/mdpages/internal/logfields"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	NoPush   bool          `name:"no-push" help:"Convert and index without committing or pushing"`
	Debounce time.Duration `help:"Quiet period after a change before rebuilding (overrides watch.debounce)"`
	Interval time.Duration `help:"Also rebuild on this interval, e.g. 15m (overrides watch.interval)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if w.NoPush {
		cfg.Publish.Enabled = false
	}
	if err := w.applyOverrides(cfg); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunWatch(ctx, cfg, g)
}

func (w *WatchCmd) applyOverrides(cfg *config.Config) error {
	if w.Debounce > 0 {
		cfg.Watch.Debounce = w.Debounce
	}
	if w.Interval != 0 {
		cfg.Watch.Interval = w.Interval
	}
	return cfg.Validate()
}

// RunWatch runs once at startup and then after every debounced content change
// or interval tick until ctx is canceled.
func RunWatch(ctx context.Context, cfg *config.Config, g *Global) error {
	logger := g.logger()
	if err := os.MkdirAll(cfg.ContentDir(), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create content directory").
			WithContext("path", cfg.ContentDir()).
			Build()
	}

	s := openSession(cfg, os.Stdout, logger)
	defer s.Close()

	run := func(ctx context.Context, trigger string) {
		rep, err := s.run(ctx, trigger)
		if err != nil {
			logger.Error("Run failed", logfields.Error(err))
			return
		}
		printReport(os.Stdout, cfg, rep)
		if err := rep.Err(); err != nil {
			logger.Warn("Run finished with errors", logfields.Outcome(string(rep.Outcome)), logfields.Error(err))
		}
	}

	return daemon.NewWatcher(cfg.ContentDir(), cfg.Markdown.Extension, cfg.Watch.Debounce, cfg.Watch.Interval, run).
		WithLogger(logger).
		Run(ctx)
}
