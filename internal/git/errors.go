package git

import (
	"strings"

	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
)

// Publish step names used in error context and logs.
const (
	StepStage  = "stage"
	StepCommit = "commit"
	StepPush   = "push"
)

// ClassifyPublishError wraps a failed publish step. Transport problems are
// marked as network errors; everything else stays in the publish category.
func ClassifyPublishError(err error, step, remote string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	l := strings.ToLower(err.Error())
	builder := errors.PublishError("git "+step+" failed").
		WithCause(err).
		WithContext("step", step)
	if remote != "" {
		builder.WithContext("remote", remote)
	}

	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "could not read username") ||
		strings.Contains(l, "permission denied") || strings.Contains(l, "not authorized"):
		builder.UserAction()
	case strings.Contains(l, "could not resolve host") || strings.Contains(l, "connection refused") ||
		strings.Contains(l, "connection reset") || strings.Contains(l, "timed out") ||
		strings.Contains(l, "deadline exceeded") || strings.Contains(l, "no route to host"):
		builder.WithCategory(errors.CategoryNetwork)
	case strings.Contains(l, "non-fast-forward") || strings.Contains(l, "rejected"):
		builder.WithContext("diverged", true).UserAction()
	}
	return builder.Build()
}
