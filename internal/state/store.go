package state

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/mdpages/internal/docs"
	ferrors "git.home.luguber.info/inful/mdpages/internal/foundation/errors"
	"git.home.luguber.info/inful/mdpages/internal/logfields"
)

const dirPerms = 0o750

// FileStore keeps one fingerprint file per source document under the layout's state root.
type FileStore struct {
	layout docs.Layout
	logger *slog.Logger
}

// NewFileStore creates a store rooted at layout.StateRoot.
func NewFileStore(layout docs.Layout) *FileStore {
	return &FileStore{layout: layout, logger: slog.Default()}
}

// WithLogger sets a custom logger.
func (s *FileStore) WithLogger(logger *slog.Logger) *FileStore {
	s.logger = logger
	return s
}

// Path returns the mirrored record location for rel.
func (s *FileStore) Path(rel string) string {
	return s.layout.StatePath(rel)
}

// Read returns the stored digest for rel. Surrounding whitespace is ignored so
// records edited by hand or written with a trailing newline still match.
func (s *FileStore) Read(rel string) (string, bool, error) {
	path := s.Path(rel)
	data, err := os.ReadFile(path) // #nosec G304 - path is derived from the state root
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read fingerprint").
			WithContext("path", rel).
			Build()
	}
	return strings.TrimSpace(string(data)), true, nil
}

// Write stores digest for rel, creating parent directories as needed. The
// write goes through a temporary file and a rename so a crash never leaves a
// truncated record behind.
func (s *FileStore) Write(rel, digest string) error {
	path := s.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create state directory").
			WithContext("path", rel).
			Build()
	}
	if err := docs.WriteFile(path, strings.NewReader(digest)); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write fingerprint").
			WithContext("path", rel).
			Build()
	}
	s.logger.Debug("Fingerprint stored", logfields.File(rel), logfields.Digest(digest))
	return nil
}
