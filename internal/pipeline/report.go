package pipeline

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
	"git.home.luguber.info/inful/mdpages/internal/git"
)

// Outcome is the final state of a run.
type Outcome string

const (
	// OutcomeNothingFound means the content root holds no documents.
	OutcomeNothingFound Outcome = "nothing_found"
	// OutcomeUpToDate means no document changed; nothing was published.
	OutcomeUpToDate Outcome = "up_to_date"
	// OutcomePublishedOk means changed pages were committed and pushed.
	OutcomePublishedOk Outcome = "published"
	// OutcomePublishFailed means pages were converted but the publish step failed.
	OutcomePublishFailed Outcome = "publish_failed"
	// OutcomePublishDisabled means pages were converted and publishing is turned off.
	OutcomePublishDisabled Outcome = "publish_disabled"
)

// Stage names, used in logs, metrics and failure records.
const (
	StageDiscover = "discover"
	StageRead     = "read"
	StageDetect   = "detect"
	StageConvert  = "convert"
	StageWrite    = "write"
	StageState    = "state"
	StageIndex    = "index"
	StagePublish  = "publish"
)

// FileFailure records a document that could not be processed this run.
type FileFailure struct {
	Rel   string
	Stage string
	Err   error
}

// Report summarizes one run.
type Report struct {
	RunID        string
	Outcome      Outcome
	Discovered   []string // Source-relative paths in walk order
	Converted    []string
	Skipped      int
	Failed       []FileFailure
	IndexWritten bool
	Publish      git.Result
	Started      time.Time
	Finished     time.Time
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Err summarizes the run as an error for exit status purposes: the publish
// failure if any, otherwise the first document failure. A clean run returns nil.
func (r *Report) Err() error {
	if r.Publish.Err != nil {
		return r.Publish.Err
	}
	if len(r.Failed) == 0 {
		return nil
	}
	first := r.Failed[0]
	return errors.WrapError(first.Err, errors.GetCategory(first.Err),
		fmt.Sprintf("%d document(s) failed, first: %s", len(r.Failed), first.Rel)).
		WithContext("stage", first.Stage).
		Build()
}

// Summary is the one-line human readable result.
func (r *Report) Summary() string {
	s := fmt.Sprintf("Converted: %d file(s)  |  Skipped (unchanged): %d", len(r.Converted), r.Skipped)
	if n := len(r.Failed); n > 0 {
		s += fmt.Sprintf("  |  Failed: %d", n)
	}
	return s
}
