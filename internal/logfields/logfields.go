package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyOutput     = "output"
	KeyCount      = "count"
	KeyOutcome    = "outcome"
	KeyBackend    = "backend"
	KeyRemote     = "remote"
	KeyCommit     = "commit"
	KeyDigest     = "digest"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Output(p string) slog.Attr       { return slog.String(KeyOutput, p) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Backend(b string) slog.Attr      { return slog.String(KeyBackend, b) }
func Remote(r string) slog.Attr       { return slog.String(KeyRemote, r) }
func Commit(c string) slog.Attr       { return slog.String(KeyCommit, c) }

// Digest logs a shortened content digest; full digests are noise in text logs.
func Digest(d string) slog.Attr {
	if len(d) > 12 {
		d = d[:12]
	}
	return slog.String(KeyDigest, d)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
