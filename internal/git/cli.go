package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/mdpages/internal/logfields"
)

// Runner executes an external command in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner runs the git binary.
type ExecRunner struct {
	Binary string
}

// NewExecRunner creates a runner for binary, defaulting to "git" from PATH.
func NewExecRunner(binary string) *ExecRunner {
	if binary == "" {
		binary = "git"
	}
	return &ExecRunner{Binary: binary}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.Binary, args...) // #nosec G204 - binary comes from configuration
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return msg, fmt.Errorf("%s %s: %w", r.Binary, args[0], ctxErr)
		}
		if msg != "" {
			return msg, fmt.Errorf("%s %s: %w: %s", r.Binary, args[0], err, msg)
		}
		return msg, fmt.Errorf("%s %s: %w", r.Binary, args[0], err)
	}
	return out.String(), nil
}

// CLIPublisher publishes with the git command line tool.
type CLIPublisher struct {
	opts   Options
	runner Runner
}

// NewCLIPublisher creates a publisher that drives git through runner.
func NewCLIPublisher(opts Options, runner Runner) *CLIPublisher {
	return &CLIPublisher{opts: opts.withDefaults(), runner: runner}
}

// Publish implements Publisher: git add, git commit, git push.
func (p *CLIPublisher) Publish(ctx context.Context, changed []string) Result {
	ctx, cancel := withTimeout(ctx, p.opts.Timeout)
	defer cancel()

	log := p.opts.Logger.With(logfields.Backend("cli"), logfields.Remote(p.opts.Remote))
	res := Result{Attempted: true}
	start := time.Now()

	fail := func(step string, err error) Result {
		res.Err = ClassifyPublishError(err, step, p.opts.Remote)
		log.Error("Publish failed", logfields.Stage(step), logfields.Error(res.Err))
		return res
	}

	addArgs := append([]string{"add", "--"}, p.opts.relPaths()...)
	if _, err := p.runner.Run(ctx, p.opts.BaseDir, addArgs...); err != nil {
		return fail(StepStage, err)
	}

	commitArgs := p.identityArgs()
	commitArgs = append(commitArgs, "commit", "-m", CommitMessage(len(changed), p.opts.Now()))
	if _, err := p.runner.Run(ctx, p.opts.BaseDir, commitArgs...); err != nil {
		return fail(StepCommit, err)
	}
	if out, err := p.runner.Run(ctx, p.opts.BaseDir, "rev-parse", "HEAD"); err == nil {
		res.Commit = strings.TrimSpace(out)
	}

	pushArgs := []string{"push"}
	if p.opts.Remote != "" {
		pushArgs = append(pushArgs, p.opts.Remote)
		if p.opts.Branch != "" {
			pushArgs = append(pushArgs, p.opts.Branch)
		}
	}
	if err := p.opts.pushWithRetry(ctx, log, func() error {
		_, err := p.runner.Run(ctx, p.opts.BaseDir, pushArgs...)
		return err
	}); err != nil {
		return fail(StepPush, err)
	}

	res.Pushed = true
	log.Info("Published", logfields.Commit(res.Commit), logfields.Count(len(changed)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return res
}

// identityArgs sets the commit identity for one invocation without touching
// the repository configuration.
func (p *CLIPublisher) identityArgs() []string {
	var args []string
	if p.opts.AuthorName != "" {
		args = append(args, "-c", "user.name="+p.opts.AuthorName)
	}
	if p.opts.AuthorEmail != "" {
		args = append(args, "-c", "user.email="+p.opts.AuthorEmail)
	}
	return args
}
