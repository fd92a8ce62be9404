package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
	"git.home.luguber.info/inful/mdpages/internal/retry"
)

// Validate checks the normalized configuration for values no run can work with.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Markdown.Extension, ".") || len(c.Markdown.Extension) < 2 {
		return invalid("markdown.extension must start with a dot", "extension", c.Markdown.Extension)
	}

	roots := []struct{ name, dir string }{
		{"content", c.ContentDir()},
		{"output", c.OutputDir()},
		{"state", c.StateDir()},
	}
	for i, a := range roots {
		for _, b := range roots[i+1:] {
			if overlaps(a.dir, b.dir) {
				return invalid(fmt.Sprintf("paths.%s and paths.%s must not overlap", a.name, b.name), "path", b.dir)
			}
		}
	}

	switch c.Publish.Backend {
	case BackendCLI, BackendGoGit:
	default:
		return invalid(fmt.Sprintf("unknown publish backend %q (want cli or gogit)", c.Publish.Backend), "backend", string(c.Publish.Backend))
	}
	if c.Publish.Enabled && c.Publish.Remote == "" {
		return invalid("publish.remote is required when publishing is enabled", "remote", "")
	}
	if c.Publish.Timeout < 0 {
		return invalid("publish.timeout must not be negative", "timeout", c.Publish.Timeout.String())
	}
	if c.Publish.PushRetries < 0 {
		return invalid("publish.push_retries must not be negative", "push_retries", fmt.Sprint(c.Publish.PushRetries))
	}
	if b := c.Publish.RetryBackoff; b != "" && !retry.ValidMode(retry.BackoffMode(b)) {
		return invalid(fmt.Sprintf("unknown publish.retry_backoff %q (want fixed, linear or exponential)", b), "retry_backoff", b)
	}
	if c.Watch.Interval < 0 {
		return invalid("watch.interval must not be negative", "interval", c.Watch.Interval.String())
	}
	if c.Notify.Enabled() && c.Notify.Subject == "" {
		return invalid("notify.subject is required when notify.nats_url is set", "subject", "")
	}
	return nil
}

// overlaps reports whether a and b are the same directory or one contains the other.
func overlaps(a, b string) bool {
	sep := string(filepath.Separator)
	return a == b ||
		strings.HasPrefix(a+sep, b+sep) ||
		strings.HasPrefix(b+sep, a+sep)
}

func invalid(msg, key, value string) error {
	return errors.ValidationError(msg).WithContext(key, value).Build()
}
