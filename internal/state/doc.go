// Package state persists the last-known content fingerprint of every source
// document.
//
// Records live in a tree that mirrors the content tree: the fingerprint of
// content/guides/setup.md is stored at memory/guides/setup.md.hash as a
// lowercase hex string. Records are created on a document's first successful
// conversion, overwritten afterwards, and never removed automatically; a
// record for a deleted source file is harmless.
package state
