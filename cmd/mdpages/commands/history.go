package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"git.home.luguber.info/inful/mdpages/internal/config"
	"git.home.luguber.info/inful/mdpages/internal/eventstore"
	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of runs to show" default:"10"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	return RunHistory(context.Background(), cfg, h.Limit, os.Stdout)
}

// RunHistory prints the most recent runs, newest first.
func RunHistory(ctx context.Context, cfg *config.Config, limit int, out io.Writer) error {
	if !cfg.History.Enabled {
		return errors.ValidationError("run history is disabled (history.enabled: false)").Build()
	}
	if _, err := os.Stat(cfg.HistoryPath()); err != nil {
		_, _ = fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	store, err := eventstore.NewSQLiteStore(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	projection := eventstore.NewRunHistoryProjection(store, limit)
	if err := projection.Rebuild(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to read run history").
			WithContext("path", cfg.HistoryPath()).
			Build()
	}

	runs := projection.History()
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	_, _ = fmt.Fprintf(out, "%-19s  %-8s  %-16s  %9s  %7s  %6s  %s\n",
		"STARTED", "TRIGGER", "OUTCOME", "CONVERTED", "SKIPPED", "FAILED", "COMMIT")
	for _, r := range runs {
		_, _ = fmt.Fprintf(out, "%-19s  %-8s  %-16s  %9d  %7d  %6d  %s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Trigger, r.Status,
			r.Converted, r.Skipped, r.Failed, shortHash(r.Commit))
		for _, p := range r.FailedPaths {
			_, _ = fmt.Fprintf(out, "    failed: %s\n", p)
		}
		if r.Error != "" {
			_, _ = fmt.Fprintf(out, "    error: %s\n", r.Error)
		}
	}
	return nil
}

func shortHash(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
