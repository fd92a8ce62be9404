package docs

import (
	"io"
	"os"

	"github.com/natefinch/atomic"
)

// FilePerms is the mode of every page, index and fingerprint written.
const FilePerms = 0o644

// WriteFile replaces path with the contents of r through a temporary file and
// a rename, then sets FilePerms.
func WriteFile(path string, r io.Reader) error {
	if err := atomic.WriteFile(path, r); err != nil {
		return err
	}
	// atomic.WriteFile leaves new files at the temporary file's 0600 mode.
	return os.Chmod(path, FilePerms)
}
