package git

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/mdpages/internal/config"
	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
	"git.home.luguber.info/inful/mdpages/internal/retry"
)

// Result describes one publish attempt.
type Result struct {
	Attempted bool   // Staging was started
	Pushed    bool   // The push completed
	Commit    string // Hash of the created commit, if any
	Err       error  // First failure, classified as a publish error
}

// OK reports whether the publish went all the way through.
func (r Result) OK() bool { return r.Attempted && r.Pushed && r.Err == nil }

// Publisher commits and pushes the generated trees.
type Publisher interface {
	// Publish stages the output and state trees, commits them with a message
	// counting changed and pushes. Steps run in order and the first failure
	// stops the sequence.
	Publish(ctx context.Context, changed []string) Result
}

// Options are shared by the publishing backends.
type Options struct {
	BaseDir     string   // Repository working directory
	Paths       []string // Trees to stage, absolute or relative to BaseDir
	Remote      string
	Branch      string
	Timeout     time.Duration
	AuthorName  string
	AuthorEmail string
	Retry       retry.Policy // Applied to the push step only
	Now         func() time.Time
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// relPaths returns Paths relative to BaseDir where possible.
func (o Options) relPaths() []string {
	out := make([]string, 0, len(o.Paths))
	for _, p := range o.Paths {
		if filepath.IsAbs(p) {
			if rel, err := filepath.Rel(o.BaseDir, p); err == nil {
				p = rel
			}
		}
		out = append(out, filepath.ToSlash(p))
	}
	return out
}

// CommitMessage formats the commit message for n changed pages on day.
func CommitMessage(n int, day time.Time) string {
	return fmt.Sprintf("Update %d page(s) - %s", n, day.Format(time.DateOnly))
}

// withTimeout bounds ctx when a timeout is configured.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// pushWithRetry runs push under the retry policy, retrying network failures
// while ctx is live.
func (o Options) pushWithRetry(ctx context.Context, log *slog.Logger, push func() error) error {
	attempt := 0
	return o.Retry.Do(ctx, func(err error) bool {
		return ctx.Err() == nil && errors.HasCategory(ClassifyPublishError(err, StepPush, o.Remote), errors.CategoryNetwork)
	}, func() error {
		attempt++
		if attempt > 1 {
			log.Warn("Retrying push", slog.Int("attempt", attempt))
		}
		return push()
	})
}

// NoopPublisher is used when publishing is disabled.
type NoopPublisher struct{}

// Publish does nothing and reports that no attempt was made.
func (NoopPublisher) Publish(context.Context, []string) Result { return Result{} }

// FromConfig selects the publisher for cfg. paths are the trees to stage.
func FromConfig(cfg *config.Config, logger *slog.Logger, now func() time.Time) Publisher {
	if !cfg.Publish.Enabled {
		return NoopPublisher{}
	}
	opts := Options{
		BaseDir:     cfg.Paths.Base,
		Paths:       []string{cfg.OutputDir(), cfg.StateDir()},
		Remote:      cfg.Publish.Remote,
		Branch:      cfg.Publish.Branch,
		Timeout:     cfg.Publish.Timeout,
		AuthorName:  cfg.Publish.AuthorName,
		AuthorEmail: cfg.Publish.AuthorEmail,
		Retry: retry.NewPolicy(retry.BackoffMode(cfg.Publish.RetryBackoff),
			cfg.Publish.RetryDelay, 0, cfg.Publish.PushRetries),
		Now:         now,
		Logger:      logger,
	}
	if cfg.Publish.Backend == config.BackendGoGit {
		return NewGoGitPublisher(opts).WithTokenEnv(cfg.Publish.TokenEnv)
	}
	return NewCLIPublisher(opts, NewExecRunner(cfg.Publish.GitBinary))
}
