package metrics

import "time"

// DocumentResult labels the fate of one document in a run.
type DocumentResult string

const (
	DocumentConverted DocumentResult = "converted"
	DocumentSkipped   DocumentResult = "skipped"
	DocumentFailed    DocumentResult = "failed"
)

// Recorder defines observability hooks for runs. Implementations must be safe
// to call with a nil receiver.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	AddDocuments(result DocumentResult, n int)
	IncRunOutcome(outcome string)
	IncPublishResult(success bool)
	SetLastRun(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) AddDocuments(DocumentResult, int)           {}
func (NoopRecorder) IncRunOutcome(string)                       {}
func (NoopRecorder) IncPublishResult(bool)                      {}
func (NoopRecorder) SetLastRun(time.Time)                       {}
