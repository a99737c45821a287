package offlinestore

import "errors"

// Sentinel error kinds surfaced by the Offline Store. Per spec.md §7,
// CorruptDB/MissingDB/VersionMismatch are fatal to the offline resolver;
// StoreQueryError is treated by callers as a resolver-unavailable signal.
var (
	ErrCorruptDB       = errors.New("offlinestore: corrupt database file")
	ErrMissingDB       = errors.New("offlinestore: database file not found")
	ErrVersionMismatch = errors.New("offlinestore: schema version mismatch")
	ErrStoreQuery      = errors.New("offlinestore: query failed")
)
