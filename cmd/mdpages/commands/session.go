package commands

import (
	"context"
	"io"
	"log/slog"

	"git.home.luguber.info/inful/mdpages/internal/config"
	"git.home.luguber.info/inful/mdpages/internal/eventstore"
	"git.home.luguber.info/inful/mdpages/internal/logfields"
	"git.home.luguber.info/inful/mdpages/internal/metrics"
	"git.home.luguber.info/inful/mdpages/internal/notify"
	"git.home.luguber.info/inful/mdpages/internal/pipeline"
)

// session holds the optional collaborators shared by every run of one
// command invocation.
type session struct {
	cfg      *config.Config
	out      io.Writer
	logger   *slog.Logger
	history  *eventstore.SQLiteStore
	notifier *notify.NATSNotifier
	recorder *metrics.PrometheusRecorder
	opts     []pipeline.Option
}

// openSession opens the run history and the notifier when configured. Neither
// is required for a run, so failures only produce warnings.
func openSession(cfg *config.Config, out io.Writer, logger *slog.Logger, opts ...pipeline.Option) *session {
	s := &session{cfg: cfg, out: out, logger: logger, opts: opts}

	if cfg.History.Enabled {
		store, err := eventstore.NewSQLiteStore(cfg.HistoryPath())
		if err != nil {
			logger.Warn("Run history unavailable", logfields.Path(cfg.HistoryPath()), logfields.Error(err))
		} else {
			s.history = store
		}
	}
	if cfg.Notify.Enabled() {
		n, err := notify.NewNATSNotifier(cfg.Notify.NATSURL, cfg.Notify.Subject)
		if err != nil {
			logger.Warn("Publish notifications unavailable", logfields.Error(err))
		} else {
			s.notifier = n
		}
	}
	if cfg.Metrics.Textfile != "" {
		s.recorder = metrics.NewPrometheusRecorder(nil)
	}
	return s
}

func (s *session) runner(trigger string) *pipeline.Runner {
	opts := []pipeline.Option{
		pipeline.WithTrigger(trigger),
		pipeline.WithProgress(s.out),
		pipeline.WithLogger(s.logger),
	}
	if s.history != nil {
		opts = append(opts, pipeline.WithEventStore(s.history))
	}
	if s.notifier != nil {
		opts = append(opts, pipeline.WithNotifier(s.notifier))
	}
	if s.recorder != nil {
		opts = append(opts, pipeline.WithRecorder(s.recorder))
	}
	return pipeline.New(s.cfg, append(opts, s.opts...)...)
}

// run performs one run and refreshes the metrics textfile.
func (s *session) run(ctx context.Context, trigger string) (*pipeline.Report, error) {
	rep, err := s.runner(trigger).Run(ctx)
	if s.recorder != nil {
		if werr := s.recorder.WriteTextfile(s.cfg.Metrics.Textfile); werr != nil {
			s.logger.Warn("Failed to write metrics textfile", logfields.Path(s.cfg.Metrics.Textfile), logfields.Error(werr))
		}
	}
	return rep, err
}

func (s *session) Close() {
	if s.notifier != nil {
		s.notifier.Close()
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Warn("Failed to close run history", logfields.Error(err))
		}
	}
}
