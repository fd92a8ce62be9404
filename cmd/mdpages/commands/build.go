package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"git.home.luguber.info/inful/mdpages/internal/config"
	"git.home.luguber.info/inful/mdpages/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	NoPush bool `name:"no-push" help:"Convert and index without committing or pushing"`
	Wait   bool `help:"Wait for Enter before exiting"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err == nil {
		if b.NoPush {
			cfg.Publish.Enabled = false
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		err = RunBuild(ctx, cfg, os.Stdout, g)
		stop()
	}
	if b.Wait {
		waitForEnter(os.Stdin, os.Stdout)
	}
	return err
}

// RunBuild performs one run and prints progress and the summary to out.
func RunBuild(ctx context.Context, cfg *config.Config, out io.Writer, g *Global) error {
	printBanner(out)

	s := openSession(cfg, out, g.logger())
	defer s.Close()

	rep, err := s.run(ctx, "cli")
	if err != nil {
		return err
	}
	printReport(out, cfg, rep)
	return rep.Err()
}

func printBanner(out io.Writer) {
	rule := strings.Repeat("=", 60)
	_, _ = fmt.Fprintf(out, "%s\n  mdpages: Markdown to HTML\n%s\n", rule, rule)
}

func printReport(out io.Writer, cfg *config.Config, rep *pipeline.Report) {
	if rep.Outcome == pipeline.OutcomeNothingFound {
		_, _ = fmt.Fprintf(out, "\nNo %s files found in the content folder.\n", cfg.Markdown.Extension)
		_, _ = fmt.Fprintf(out, "Add your Markdown files to: %s\n", cfg.ContentDir())
		return
	}

	_, _ = fmt.Fprintf(out, "\n%s\n", rep.Summary())
	for _, f := range rep.Failed {
		_, _ = fmt.Fprintf(out, "  Failed: %s (%s): %v\n", f.Rel, f.Stage, f.Err)
	}

	switch rep.Outcome {
	case pipeline.OutcomeUpToDate:
		// Failed documents were not converted, so the tree is not up to date.
		if len(rep.Failed) == 0 {
			_, _ = fmt.Fprintln(out, "Nothing to push - all files are up to date.")
		}
	case pipeline.OutcomePublishDisabled:
		_, _ = fmt.Fprintln(out, "\nPublishing disabled - pages were written but not committed.")
	case pipeline.OutcomePublishedOk:
		if c := shortHash(rep.Publish.Commit); c != "" {
			_, _ = fmt.Fprintf(out, "\nPushed commit %s successfully.\n", c)
		} else {
			_, _ = fmt.Fprintln(out, "\nPushed successfully.")
		}
	case pipeline.OutcomePublishFailed:
		_, _ = fmt.Fprintf(out, "\nGit error: %v\n", rep.Publish.Err)
		_, _ = fmt.Fprintln(out, "Check that you are connected to the internet and have push access to the remote.")
	}
}

// waitForEnter blocks until a line (or EOF) is read from in.
func waitForEnter(in io.Reader, out io.Writer) {
	_, _ = fmt.Fprint(out, "\nDone. Press Enter to close.")
	_, _ = bufio.NewReader(in).ReadString('\n')
	_, _ = fmt.Fprintln(out)
}
