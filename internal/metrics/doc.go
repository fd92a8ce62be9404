// Package metrics records run statistics.
//
// Components receive a Recorder and default to NoopRecorder, so metrics cost
// nothing unless enabled. PrometheusRecorder keeps the counters in a private
// registry and can dump them in the node exporter textfile format after each
// run, which suits a command that exits instead of serving /metrics:
//
//	rec := metrics.NewPrometheusRecorder(nil)
//	runner := pipeline.New(cfg).WithRecorder(rec)
//	report, err := runner.Run(ctx)
//	_ = rec.WriteTextfile(cfg.Metrics.Textfile)
package metrics
