package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

const runStatusRunning = "running"

// RunSummary is a read model of one run.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Status      string        `json:"status"` // "running" or the final outcome
	Trigger     string        `json:"trigger,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Discovered  int           `json:"discovered"`
	Converted   int           `json:"converted"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	FailedPaths []string      `json:"failed_paths,omitempty"`
	Commit      string        `json:"commit,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// RunHistoryProjection rebuilds run summaries from stored events.
type RunHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	maxSize int
}

// NewRunHistoryProjection creates a projection backed by store keeping at
// most maxSize runs.
func NewRunHistoryProjection(store Store, maxSize int) *RunHistoryProjection {
	if maxSize <= 0 {
		maxSize = 20
	}
	return &RunHistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		maxSize: maxSize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = make(map[string]*RunSummary)
	for _, e := range events {
		p.applyLocked(e)
	}
	return nil
}

// Apply folds a single event into the projection.
func (p *RunHistoryProjection) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
}

func (p *RunHistoryProjection) applyLocked(e Event) {
	runID := e.RunID()
	if runID == "" {
		return
	}
	summary, ok := p.runs[runID]
	if !ok {
		summary = &RunSummary{RunID: runID, Status: runStatusRunning, StartedAt: e.Timestamp()}
		p.runs[runID] = summary
	}

	switch e.Type() {
	case TypeRunStarted:
		summary.StartedAt = e.Timestamp()
		var payload RunStartedPayload
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			summary.Trigger = payload.Trigger
		}

	case TypeDocumentFailed:
		var payload DocumentPayload
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			summary.FailedPaths = append(summary.FailedPaths, payload.Path)
		}

	case TypeRunCompleted:
		done := e.Timestamp()
		summary.CompletedAt = &done
		summary.Duration = done.Sub(summary.StartedAt)
		var payload RunCompletedPayload
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			summary.Status = payload.Outcome
			summary.Discovered = payload.Discovered
			summary.Converted = payload.Converted
			summary.Skipped = payload.Skipped
			summary.Failed = payload.Failed
			summary.Commit = payload.Commit
			summary.Error = payload.Error
		}
	}
}

// History returns runs newest first, bounded by the projection size.
func (p *RunHistoryProjection) History() []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]RunSummary, 0, len(p.runs))
	for _, s := range p.runs {
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID > out[j].RunID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if len(out) > p.maxSize {
		out = out[:p.maxSize]
	}
	return out
}
