package eventstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event type names.
const (
	TypeRunStarted        = "RunStarted"
	TypeDocumentConverted = "DocumentConverted"
	TypeDocumentFailed    = "DocumentFailed"
	TypeRunCompleted      = "RunCompleted"
)

func newEvent(runID, eventType string, at time.Time, payload any) (*BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: at,
		EventPayload:   data,
	}, nil
}

// RunStartedPayload describes the roots a run operates on.
type RunStartedPayload struct {
	ContentRoot string `json:"content_root"`
	OutputRoot  string `json:"output_root"`
	Trigger     string `json:"trigger,omitempty"` // "cli", "watch", "interval"
}

// NewRunStarted is emitted once per run before discovery.
func NewRunStarted(runID string, at time.Time, p RunStartedPayload) (Event, error) {
	return newEvent(runID, TypeRunStarted, at, p)
}

// DocumentPayload identifies one processed document.
type DocumentPayload struct {
	Path   string `json:"path"`
	Digest string `json:"digest,omitempty"`
	Stage  string `json:"stage,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewDocumentConverted is emitted after a page and its fingerprint are written.
func NewDocumentConverted(runID string, at time.Time, path, digest string) (Event, error) {
	return newEvent(runID, TypeDocumentConverted, at, DocumentPayload{Path: path, Digest: digest})
}

// NewDocumentFailed is emitted when a document is skipped because of an error.
func NewDocumentFailed(runID string, at time.Time, path, stage string, cause error) (Event, error) {
	p := DocumentPayload{Path: path, Stage: stage}
	if cause != nil {
		p.Error = cause.Error()
	}
	return newEvent(runID, TypeDocumentFailed, at, p)
}

// RunCompletedPayload is the final summary of a run.
type RunCompletedPayload struct {
	Outcome    string `json:"outcome"`
	Discovered int    `json:"discovered"`
	Converted  int    `json:"converted"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Commit     string `json:"commit,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// NewRunCompleted is emitted once per run after the publish gate.
func NewRunCompleted(runID string, at time.Time, p RunCompletedPayload) (Event, error) {
	return newEvent(runID, TypeRunCompleted, at, p)
}
