package git

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/mdpages/internal/logfields"
)

// tokenUser is the username sent with token authentication; hosting
// providers ignore it but go-git requires a non-empty value.
const tokenUser = "token"

// GoGitPublisher publishes in process with go-git.
type GoGitPublisher struct {
	opts     Options
	tokenEnv string
}

// NewGoGitPublisher creates an in-process publisher.
func NewGoGitPublisher(opts Options) *GoGitPublisher {
	return &GoGitPublisher{opts: opts.withDefaults()}
}

// WithTokenEnv names an environment variable holding an HTTP token used
// for the push. An unset or empty variable means no authentication.
func (p *GoGitPublisher) WithTokenEnv(name string) *GoGitPublisher {
	p.tokenEnv = name
	return p
}

func (p *GoGitPublisher) auth() transport.AuthMethod {
	if p.tokenEnv == "" {
		return nil
	}
	token := os.Getenv(p.tokenEnv)
	if token == "" {
		return nil
	}
	return &http.BasicAuth{Username: tokenUser, Password: token}
}

// Publish implements Publisher.
func (p *GoGitPublisher) Publish(ctx context.Context, changed []string) Result {
	ctx, cancel := withTimeout(ctx, p.opts.Timeout)
	defer cancel()

	log := p.opts.Logger.With(logfields.Backend("gogit"), logfields.Remote(p.opts.Remote))
	res := Result{Attempted: true}
	start := time.Now()

	fail := func(step string, err error) Result {
		res.Err = ClassifyPublishError(err, step, p.opts.Remote)
		log.Error("Publish failed", logfields.Stage(step), logfields.Error(res.Err))
		return res
	}

	repo, err := git.PlainOpenWithOptions(p.opts.BaseDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return fail(StepStage, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fail(StepStage, err)
	}

	root := wt.Filesystem.Root()
	for _, path := range p.opts.Paths {
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.opts.BaseDir, path)
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fail(StepStage, relErr)
		}
		if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
			return fail(StepStage, err)
		}
		if err := ctx.Err(); err != nil {
			return fail(StepStage, err)
		}
	}

	commitOpts := &git.CommitOptions{}
	if p.opts.AuthorName != "" || p.opts.AuthorEmail != "" {
		commitOpts.Author = &object.Signature{
			Name:  p.opts.AuthorName,
			Email: p.opts.AuthorEmail,
			When:  p.opts.Now(),
		}
	}
	hash, err := wt.Commit(CommitMessage(len(changed), p.opts.Now()), commitOpts)
	if err != nil {
		return fail(StepCommit, err)
	}
	res.Commit = hash.String()

	pushOpts := &git.PushOptions{RemoteName: p.opts.Remote, Auth: p.auth()}
	if p.opts.Branch != "" {
		ref := "refs/heads/" + p.opts.Branch
		pushOpts.RefSpecs = []gitconfig.RefSpec{gitconfig.RefSpec(ref + ":" + ref)}
	}
	if err := p.opts.pushWithRetry(ctx, log, func() error {
		if err := repo.PushContext(ctx, pushOpts); err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
			return err
		}
		return nil
	}); err != nil {
		return fail(StepPush, err)
	}

	res.Pushed = true
	log.Info("Published", logfields.Commit(res.Commit), logfields.Count(len(changed)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return res
}
