// Package errors provides sentinel errors for source document discovery.
package errors

import "errors"

var (
	// ErrDirWalkFailed indicates filesystem traversal of a tree failed.
	ErrDirWalkFailed = errors.New("directory walk failed")

	// ErrFileReadFailed indicates reading a discovered source document failed.
	ErrFileReadFailed = errors.New("source document read failed")

	// ErrOutsideRoot indicates a path does not live under the expected root.
	ErrOutsideRoot = errors.New("path is outside root")
)
