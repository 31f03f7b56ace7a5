// Package cas provides a filesystem-backed, content-addressed JSON store.
//
// Values are keyed by a content-derived hash: callers hash the bytes (or the canonical JSON encoding) of a value, then store and later retrieve it under
// (namespace, hash). Equal content always lands at the same path, so storing it twice is a no-op.
//
// Namespaces separate different kinds/versions of records (for example, "docs-v1") and must be filesystem-safe.
//
// Storage is rooted at DB.AbsRoot and uses a sharded directory structure:
//
//	<AbsRoot>/<namespace>/<hash[0:2]>/<hash[2:]>
//
// Writes go to a temp file in the destination directory and are renamed into place, so readers never see a partial record. WriteFileAtomic exposes the same
// technique for other files.
package cas
