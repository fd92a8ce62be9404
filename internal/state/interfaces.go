package state

// FingerprintReader returns the stored fingerprint for a source-relative path.
// ok is false, with a nil error, when no record exists.
type FingerprintReader interface {
	Read(rel string) (digest string, ok bool, err error)
}

// FingerprintWriter persists the fingerprint for a source-relative path.
type FingerprintWriter interface {
	Write(rel, digest string) error
}

// FingerprintStore combines reading and writing.
type FingerprintStore interface {
	FingerprintReader
	FingerprintWriter
}
