package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdpages/internal/eventstore"
	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
	"git.home.luguber.info/inful/mdpages/internal/git"
	"git.home.luguber.info/inful/mdpages/internal/incremental"
	"git.home.luguber.info/inful/mdpages/internal/notify"
	helpers "git.home.luguber.info/inful/mdpages/internal/testutil/testutils"
)

var fixed = time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC)

type fakePublisher struct {
	calls [][]string
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, changed []string) git.Result {
	f.calls = append(f.calls, append([]string(nil), changed...))
	if f.err != nil {
		return git.Result{Attempted: true, Err: errors.PublishError("git push failed").WithCause(f.err).Build()}
	}
	return git.Result{Attempted: true, Pushed: true, Commit: "c0ffee"}
}

type fakeNotifier struct{ msgs []notify.Published }

func (f *fakeNotifier) NotifyPublished(_ context.Context, msg notify.Published) error {
	f.msgs = append(f.msgs, msg)
	return nil
}
func (f *fakeNotifier) Close() {}

func newRunner(site *helpers.Site, pub git.Publisher, opts ...Option) *Runner {
	base := []Option{WithClock(helpers.FixedClock(fixed)), WithPublisher(pub)}
	return New(site.Cfg, append(base, opts...)...)
}

func run(t *testing.T, r *Runner) *Report {
	t.Helper()
	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	return rep
}

func TestRunNothingFound(t *testing.T) {
	site := helpers.NewSite(t)
	pub := &fakePublisher{}

	rep := run(t, newRunner(site, pub))

	assert.Equal(t, OutcomeNothingFound, rep.Outcome)
	assert.Empty(t, pub.calls)
	for _, dir := range []string{site.Cfg.ContentDir(), site.Cfg.OutputDir(), site.Cfg.StateDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	site.Output().AssertFileNotExists("index.html")
	assert.NoError(t, rep.Err())
}

func TestRunConvertsAndPublishes(t *testing.T) {
	site := helpers.NewSite(t)
	site.WriteSource("a.md", "# Alpha\n\nHello\n")
	site.WriteSource("guides/setup.md", "Setup steps\n")
	pub := &fakePublisher{}

	rep := run(t, newRunner(site, pub))

	assert.Equal(t, OutcomePublishedOk, rep.Outcome)
	assert.Equal(t, []string{"a.md", "guides/setup.md"}, rep.Discovered)
	assert.Equal(t, []string{"a.md", "guides/setup.md"}, rep.Converted)
	assert.Zero(t, rep.Skipped)
	assert.True(t, rep.IndexWritten)
	assert.Equal(t, "c0ffee", rep.Publish.Commit)
	require.Len(t, pub.calls, 1)
	assert.Equal(t, []string{"a.md", "guides/setup.md"}, pub.calls[0])

	site.Output().
		AssertFileContains("a.html", "<title>Alpha</title>").
		AssertFileContains("guides/setup.html", "<title>Setup</title>").
		AssertFileContains("index.html", `<a href="guides/setup.html">Setup</a>`)
	site.State().
		AssertFileEquals("a.md.hash", incremental.SHA256Hasher{}.Hash([]byte("# Alpha\n\nHello\n"))).
		AssertFileExists("guides/setup.md.hash")

	for _, rel := range []string{"a.html", "guides/setup.html", "index.html"} {
		info, err := os.Stat(filepath.Join(site.Cfg.OutputDir(), filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm(), rel)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	site := helpers.NewSite(t)
	site.WriteSource("a.md", "# A\n")
	site.WriteSource("b/c.md", "# C\n")
	pub := &fakePublisher{}

	run(t, newRunner(site, pub))
	snapshot := readTree(t, site.Base)

	rep := run(t, newRunner(site, pub))

	assert.Equal(t, OutcomeUpToDate, rep.Outcome)
	assert.Empty(t, rep.Converted)
	assert.Equal(t, 2, rep.Skipped)
	assert.Len(t, pub.calls, 1, "no publish without changes")
	if diff := cmp.Diff(snapshot, readTree(t, site.Base)); diff != "" {
		t.Errorf("second run modified the tree (-before +after):\n%s", diff)
	}
}

func TestRunDetectsChangesAndRestores(t *testing.T) {
	site := helpers.NewSite(t)
	site.WriteSource("a.md", "# One\n")
	site.WriteSource("b.md", "# Bee\n")
	pub := &fakePublisher{}
	run(t, newRunner(site, pub))

	site.WriteSource("a.md", "# Two\n")
	rep := run(t, newRunner(site, pub))
	assert.Equal(t, []string{"a.md"}, rep.Converted)
	assert.Equal(t, 1, rep.Skipped)
	site.Output().AssertFileContains("a.html", "<title>Two</title>")

	// Restoring the original content is a change relative to the last record.
	site.WriteSource("a.md", "# One\n")
	rep = run(t, newRunner(site, pub))
	assert.Equal(t, []string{"a.md"}, rep.Converted)
	site.Output().AssertFileContains("a.html", "<title>One</title>")

	require.Len(t, pub.calls, 3)
	assert.Equal(t, []string{"a.md"}, pub.calls[2])
}

func TestRunDetectsNewFiles(t *testing.T) {
	site := helpers.NewSite(t)
	site.WriteSource("a.md", "# A\n")
	pub := &fakePublisher{}
	run(t, newRunner(site, pub))

	site.WriteSource("z/new.md", "# New\n")
	rep := run(t, newRunner(site, pub))

	assert.Equal(t, []string{"z/new.md"}, rep.Converted)
	site.Output().AssertFileContains("index.html", `<a href="z/new.html">New</a>`)
}

func TestRunPublishDisabled(t *testing.T) {
	site := helpers.NewSite(t)
	site.WriteSource("a.md", "# A\n")

	rep, err := New(site.Cfg, WithClock(helpers.FixedClock(fixed))).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomePublishDisabled, rep.Outcome)
	assert.False(t, rep.Publish.Attempted)
	assert.NoError(t, rep.Err())
	site.Output().AssertFileExists("index.html")
}

func TestRunPublishFailure(t *testing.T) {
	site := helpers.NewSite(t)
	site.WriteSource("a.md", "# A\n")
	pub := &fakePublisher{err: stderrors.New("remote hung up")}

	rep := run(t, newRunner(site, pub))

	assert.Equal(t, OutcomePublishFailed, rep.Outcome)
	require.Error(t, rep.Err())
	assert.True(t, errors.HasCategory(rep.Err(), errors.CategoryPublish))
	site.State().AssertFileExists("a.md.hash")

	// The next run has nothing new, so it does not retry the push.
	rep = run(t, newRunner(site, pub))
	assert.Equal(t, OutcomeUpToDate, rep.Outcome)
	assert.Len(t, pub.calls, 1)
}

func TestRunIsolatesDecodeFailures(t *testing.T) {
	site := helpers.NewSite(t)
	site.WriteSource("a.md", "# A\n")
	site.WriteSource("bad.md", string([]byte{'#', ' ', 0xff, 0xfe, '\n'}))
	site.WriteSource("c.md", "# C\n")
	pub := &fakePublisher{}

	rep := run(t, newRunner(site, pub))

	assert.Equal(t, []string{"a.md", "c.md"}, rep.Converted)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, "bad.md", rep.Failed[0].Rel)
	assert.Equal(t, StageConvert, rep.Failed[0].Stage)
	assert.Equal(t, OutcomePublishedOk, rep.Outcome)
	assert.True(t, errors.HasCategory(rep.Err(), errors.CategoryDecode))

	site.Output().AssertFileNotExists("bad.html")
	site.State().AssertFileNotExists("bad.md.hash")

	// The failed document is retried on the next run.
	rep = run(t, newRunner(site, pub))
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, 2, rep.Skipped)
}

func TestRunOutputWriteFailureKeepsFingerprint(t *testing.T) {
	site := helpers.NewSite(t)
	site.WriteSource("a.md", "# A\n")
	site.WriteSource("b.md", "# B\n")
	// A directory where the page should go makes the page write fail.
	require.NoError(t, os.MkdirAll(filepath.Join(site.Cfg.OutputDir(), "a.html", "x"), 0o750))
	pub := &fakePublisher{}

	rep := run(t, newRunner(site, pub))

	require.Len(t, rep.Failed, 1)
	assert.Equal(t, "a.md", rep.Failed[0].Rel)
	assert.Equal(t, StageWrite, rep.Failed[0].Stage)
	assert.Equal(t, []string{"b.md"}, rep.Converted)
	site.State().AssertFileNotExists("a.md.hash").AssertFileExists("b.md.hash")
}

func TestRunProgressAndNotification(t *testing.T) {
	site := helpers.NewSite(t)
	site.WriteSource("a.md", "# A\n")
	var out bytes.Buffer
	notifier := &fakeNotifier{}

	run(t, newRunner(site, &fakePublisher{}, WithProgress(&out), WithNotifier(notifier), WithRunIDs(func() string { return "run-1" })))

	assert.Equal(t, "  Converting: a.md\n  Updated index.html\n", out.String())
	require.Len(t, notifier.msgs, 1)
	assert.Equal(t, "run-1", notifier.msgs[0].RunID)
	assert.Equal(t, "c0ffee", notifier.msgs[0].Commit)
	assert.Equal(t, []string{"a.md"}, notifier.msgs[0].Pages)
}

func TestRunRecordsHistory(t *testing.T) {
	site := helpers.NewSite(t)
	site.WriteSource("a.md", "# A\n")
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	run(t, newRunner(site, &fakePublisher{}, WithEventStore(store), WithRunIDs(func() string { return "run-1" })))

	events, err := store.GetByRunID(context.Background(), "run-1")
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.Type())
	}
	assert.Equal(t, []string{
		eventstore.TypeRunStarted,
		eventstore.TypeDocumentConverted,
		eventstore.TypeRunCompleted,
	}, types)

	proj := eventstore.NewRunHistoryProjection(store, 5)
	require.NoError(t, proj.Rebuild(context.Background()))
	history := proj.History()
	require.Len(t, history, 1)
	assert.Equal(t, string(OutcomePublishedOk), history[0].Status)
	assert.Equal(t, 1, history[0].Converted)
}

func TestRunCanceled(t *testing.T) {
	site := helpers.NewSite(t)
	site.WriteSource("a.md", "# A\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := newRunner(site, &fakePublisher{}).Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryRuntime))
	assert.Empty(t, rep.Converted)
}

func TestReportSummary(t *testing.T) {
	rep := &Report{Converted: []string{"a.md"}, Skipped: 3}
	assert.Equal(t, "Converted: 1 file(s)  |  Skipped (unchanged): 3", rep.Summary())

	rep.Failed = []FileFailure{{Rel: "x.md", Err: stderrors.New("boom")}}
	assert.True(t, strings.HasSuffix(rep.Summary(), "Failed: 1"))
}

// readTree maps every file under root to its content.
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}
