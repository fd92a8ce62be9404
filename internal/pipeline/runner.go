// Package pipeline runs one incremental build: discover documents, convert
// the changed ones, rebuild the index and publish.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/mdpages/internal/config"
	"git.home.luguber.info/inful/mdpages/internal/docs"
	"git.home.luguber.info/inful/mdpages/internal/eventstore"
	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
	"git.home.luguber.info/inful/mdpages/internal/git"
	"git.home.luguber.info/inful/mdpages/internal/incremental"
	"git.home.luguber.info/inful/mdpages/internal/index"
	"git.home.luguber.info/inful/mdpages/internal/logfields"
	"git.home.luguber.info/inful/mdpages/internal/markdown"
	"git.home.luguber.info/inful/mdpages/internal/metrics"
	"git.home.luguber.info/inful/mdpages/internal/notify"
	"git.home.luguber.info/inful/mdpages/internal/state"
)

// Output directories are served by a web server, so they stay world-readable.
const dirPerms = 0o755

// Runner executes runs against one configuration. Runs are sequential; a
// Runner must not be used from several goroutines at once.
type Runner struct {
	cfg       *config.Config
	layout    docs.Layout
	publisher git.Publisher
	store     state.FingerprintStore
	hasher    incremental.Hasher
	recorder  metrics.Recorder
	events    eventstore.Store
	notifier  notify.Notifier
	now       func() time.Time
	newID     func() string
	trigger   string
	progress  io.Writer
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithPublisher replaces the publisher selected from the configuration.
func WithPublisher(p git.Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithStore replaces the file-backed fingerprint store.
func WithStore(s state.FingerprintStore) Option {
	return func(r *Runner) { r.store = s }
}

// WithClock sets the time source for page dates, commit messages and reports.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithRunIDs sets the run ID generator.
func WithRunIDs(newID func() string) Option {
	return func(r *Runner) { r.newID = newID }
}

// WithRecorder enables metrics.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithEventStore records run history.
func WithEventStore(s eventstore.Store) Option {
	return func(r *Runner) { r.events = s }
}

// WithNotifier announces successful publishes.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithTrigger labels runs in the history ("cli", "watch", "interval").
func WithTrigger(trigger string) Option {
	return func(r *Runner) { r.trigger = trigger }
}

// WithProgress sets where per-document progress lines are printed.
func WithProgress(w io.Writer) Option {
	return func(r *Runner) { r.progress = w }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// LayoutFor derives the content, output and state roots from cfg.
func LayoutFor(cfg *config.Config) docs.Layout {
	return docs.Layout{
		ContentRoot: cfg.ContentDir(),
		OutputRoot:  cfg.OutputDir(),
		StateRoot:   cfg.StateDir(),
	}
}

// New creates a runner for cfg. cfg must already be normalized.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		layout:   LayoutFor(cfg),
		hasher:   incremental.SHA256Hasher{},
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
		newID:    uuid.NewString,
		trigger:  "cli",
		progress: io.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = state.NewFileStore(r.layout).WithLogger(r.logger)
	}
	if r.publisher == nil {
		r.publisher = git.FromConfig(cfg, r.logger, r.now)
	}
	return r
}

// Layout returns the roots the runner operates on.
func (r *Runner) Layout() docs.Layout { return r.layout }

// Run performs one complete run. The returned error is non-nil only when the
// run could not proceed at all (unusable roots, cancellation); per-document
// and publish failures are recorded in the report instead.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{RunID: r.newID(), Started: r.now()}
	log := r.logger.With(logfields.RunID(rep.RunID))
	r.emit(ctx, log, func() (eventstore.Event, error) {
		return eventstore.NewRunStarted(rep.RunID, rep.Started, eventstore.RunStartedPayload{
			ContentRoot: r.layout.ContentRoot,
			OutputRoot:  r.layout.OutputRoot,
			Trigger:     r.trigger,
		})
	})

	documents, err := r.discover(log)
	if err != nil {
		return r.finish(ctx, log, rep), err
	}
	for _, d := range documents {
		rep.Discovered = append(rep.Discovered, d.Rel)
	}
	if len(documents) == 0 {
		rep.Outcome = OutcomeNothingFound
		log.Info("No documents found", logfields.Path(r.layout.ContentRoot))
		return r.finish(ctx, log, rep), nil
	}

	if err := r.convertAll(ctx, log, rep, documents); err != nil {
		return r.finish(ctx, log, rep), err
	}

	if len(rep.Converted) == 0 {
		rep.Outcome = OutcomeUpToDate
		return r.finish(ctx, log, rep), nil
	}

	r.writeIndex(log, rep)
	r.publish(ctx, log, rep)
	return r.finish(ctx, log, rep), nil
}

func (r *Runner) discover(log *slog.Logger) ([]docs.Document, error) {
	start := time.Now()
	defer func() { r.recorder.ObserveStageDuration(StageDiscover, time.Since(start)) }()

	for _, dir := range []string{r.layout.ContentRoot, r.layout.OutputRoot, r.layout.StateRoot} {
		if err := os.MkdirAll(dir, dirPerms); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create directory").
				WithContext("path", dir).
				Fatal().
				Build()
		}
	}

	found, err := docs.NewDiscovery(r.layout, r.cfg.Markdown.Extension).Discover()
	if err != nil {
		return nil, err
	}
	log.Debug("Discovery complete", logfields.Count(len(found)), logfields.Path(r.layout.ContentRoot))
	return found, nil
}

func (r *Runner) convertAll(ctx context.Context, log *slog.Logger, rep *Report, documents []docs.Document) error {
	start := time.Now()
	defer func() { r.recorder.ObserveStageDuration(StageConvert, time.Since(start)) }()

	detector := incremental.NewDetector(r.store, r.hasher).WithLogger(log)
	converter := markdown.NewConverter(r.layout).WithClock(r.now).WithLogger(log)

	for _, d := range documents {
		if err := ctx.Err(); err != nil {
			return errors.RuntimeError("run canceled").WithCause(err).Build()
		}

		stage, digest, err := r.processDocument(log, detector, converter, d)
		switch {
		case err != nil:
			rep.Failed = append(rep.Failed, FileFailure{Rel: d.Rel, Stage: stage, Err: err})
			log.Error("Document failed", logfields.File(d.Rel), logfields.Stage(stage), logfields.Error(err))
			r.emit(ctx, log, func() (eventstore.Event, error) {
				return eventstore.NewDocumentFailed(rep.RunID, r.now(), d.Rel, stage, err)
			})
		case digest == "":
			rep.Skipped++
		default:
			rep.Converted = append(rep.Converted, d.Rel)
			r.emit(ctx, log, func() (eventstore.Event, error) {
				return eventstore.NewDocumentConverted(rep.RunID, r.now(), d.Rel, digest)
			})
		}
	}

	r.recorder.AddDocuments(metrics.DocumentConverted, len(rep.Converted))
	r.recorder.AddDocuments(metrics.DocumentSkipped, rep.Skipped)
	r.recorder.AddDocuments(metrics.DocumentFailed, len(rep.Failed))
	return nil
}

// processDocument converts d when its content changed. It returns the new
// digest on conversion, an empty digest when d is unchanged, and the failing
// stage with an error otherwise. The page is written before the fingerprint,
// so a failed page write never marks the document as done.
func (r *Runner) processDocument(log *slog.Logger, detector *incremental.Detector, converter *markdown.Converter, d docs.Document) (string, string, error) {
	content, err := d.Read()
	if err != nil {
		return StageRead, "", err
	}

	change, err := detector.Check(d.Rel, content)
	if err != nil {
		return StageDetect, "", err
	}
	if !change.Changed {
		return "", "", nil
	}

	_, _ = fmt.Fprintf(r.progress, "  Converting: %s\n", d.Rel)
	page, err := converter.Render(d, content)
	if err != nil {
		return StageConvert, "", err
	}

	if err := writePage(page); err != nil {
		return StageWrite, "", err
	}
	if err := r.store.Write(d.Rel, change.Digest); err != nil {
		return StageState, "", err
	}
	log.Info("Document converted", logfields.File(d.Rel), logfields.Output(page.OutputPath))
	return "", change.Digest, nil
}

func writePage(page markdown.Page) error {
	if err := os.MkdirAll(filepath.Dir(page.OutputPath), dirPerms); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", page.Rel).
			Build()
	}
	if err := docs.WriteFile(page.OutputPath, bytes.NewReader(page.HTML)); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write page").
			WithContext("path", page.Rel).
			Build()
	}
	return nil
}

func (r *Runner) writeIndex(log *slog.Logger, rep *Report) {
	start := time.Now()
	defer func() { r.recorder.ObserveStageDuration(StageIndex, time.Since(start)) }()

	written, err := index.NewBuilder().WithClock(r.now).WithLogger(log).Write(r.layout.OutputRoot)
	if err != nil {
		// Pages are already in place; publish them with the previous index.
		rep.Failed = append(rep.Failed, FileFailure{Rel: docs.IndexName, Stage: StageIndex, Err: err})
		log.Error("Index update failed", logfields.Error(err))
		return
	}
	rep.IndexWritten = written
	if written {
		_, _ = fmt.Fprintln(r.progress, "  Updated index.html")
	}
}

func (r *Runner) publish(ctx context.Context, log *slog.Logger, rep *Report) {
	start := time.Now()
	rep.Publish = r.publisher.Publish(ctx, rep.Converted)
	r.recorder.ObserveStageDuration(StagePublish, time.Since(start))

	switch {
	case !rep.Publish.Attempted:
		rep.Outcome = OutcomePublishDisabled
		log.Info("Publishing disabled, pages left uncommitted", logfields.Count(len(rep.Converted)))
		return
	case rep.Publish.Err != nil:
		rep.Outcome = OutcomePublishFailed
		r.recorder.IncPublishResult(false)
		return
	}

	rep.Outcome = OutcomePublishedOk
	r.recorder.IncPublishResult(true)
	if r.notifier == nil {
		return
	}
	msg := notify.Published{
		RunID:     rep.RunID,
		Commit:    rep.Publish.Commit,
		Pages:     rep.Converted,
		Timestamp: r.now(),
	}
	if err := r.notifier.NotifyPublished(ctx, msg); err != nil {
		log.Warn("Publish notification failed", logfields.Error(err))
	}
}

func (r *Runner) finish(ctx context.Context, log *slog.Logger, rep *Report) *Report {
	rep.Finished = r.now()
	if rep.Outcome != "" {
		r.recorder.IncRunOutcome(string(rep.Outcome))
	}
	r.recorder.ObserveRunDuration(rep.Duration())
	r.recorder.SetLastRun(rep.Finished)

	payload := eventstore.RunCompletedPayload{
		Outcome:    string(rep.Outcome),
		Discovered: len(rep.Discovered),
		Converted:  len(rep.Converted),
		Skipped:    rep.Skipped,
		Failed:     len(rep.Failed),
		Commit:     rep.Publish.Commit,
		DurationMS: rep.Duration().Milliseconds(),
	}
	if err := rep.Err(); err != nil {
		payload.Error = err.Error()
	}
	// Use a fresh context so a canceled run is still recorded.
	r.emit(context.WithoutCancel(ctx), log, func() (eventstore.Event, error) {
		return eventstore.NewRunCompleted(rep.RunID, rep.Finished, payload)
	})

	log.Info("Run finished",
		logfields.Outcome(string(rep.Outcome)),
		slog.Int("converted", len(rep.Converted)),
		slog.Int("skipped", rep.Skipped),
		slog.Int("failed", len(rep.Failed)),
		logfields.DurationMS(float64(rep.Duration().Milliseconds())))
	return rep
}

// emit appends an event when history is enabled. History problems are logged
// and never affect the run.
func (r *Runner) emit(ctx context.Context, log *slog.Logger, build func() (eventstore.Event, error)) {
	if r.events == nil {
		return
	}
	e, err := build()
	if err == nil {
		err = r.events.Append(ctx, e)
	}
	if err != nil {
		log.Warn("Failed to record run history", logfields.Error(err))
	}
}
