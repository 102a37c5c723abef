package catalog

import "errors"

// ErrNotFound is returned by single-row lookups that find no matching row.
var ErrNotFound = errors.New("catalog: not found")

// ErrConflict is returned when a write would violate a uniqueness invariant
// (duplicate name, a second active provider, a second active snapshot for a
// profile, and so on).
var ErrConflict = errors.New("catalog: conflict")
