package incremental

import (
	"log/slog"

	"git.home.luguber.info/inful/mdpages/internal/logfields"
	"git.home.luguber.info/inful/mdpages/internal/state"
)

// Detector reports whether a document's content differs from the stored record.
type Detector struct {
	hasher Hasher
	store  state.FingerprintReader
	logger *slog.Logger
}

// NewDetector creates a detector reading records from store.
func NewDetector(store state.FingerprintReader, hasher Hasher) *Detector {
	if hasher == nil {
		hasher = SHA256Hasher{}
	}
	return &Detector{
		hasher: hasher,
		store:  store,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (d *Detector) WithLogger(logger *slog.Logger) *Detector {
	d.logger = logger
	return d
}

// Change is the result of comparing one document against its record.
type Change struct {
	Rel      string
	Digest   string
	Previous string
	Changed  bool
}

// Check fingerprints content and compares it with the record for rel. A
// missing record counts as changed. Check never writes.
func (d *Detector) Check(rel string, content []byte) (Change, error) {
	digest := d.hasher.Hash(content)
	previous, ok, err := d.store.Read(rel)
	if err != nil {
		return Change{}, err
	}

	ch := Change{
		Rel:      rel,
		Digest:   digest,
		Previous: previous,
		Changed:  !ok || previous != digest,
	}
	if ch.Changed {
		d.logger.Debug("Document changed", logfields.File(rel), logfields.Digest(digest), slog.Bool("new", !ok))
	}
	return ch, nil
}

// HasChanged is Check without the digests.
func (d *Detector) HasChanged(rel string, content []byte) (bool, error) {
	ch, err := d.Check(rel, content)
	if err != nil {
		return false, err
	}
	return ch.Changed, nil
}
