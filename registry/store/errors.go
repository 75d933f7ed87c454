package store

import "errors"

// Every store operation returns one of these sentinels (usually wrapped with
// context via %w) so callers can branch with errors.Is.
var (
	// ErrNotFound is returned when an entity, or a link in its resolution
	// chain, does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied is returned when the entity exists but the acting user
	// lacks the required permission.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFoundOrDenied deliberately collapses "missing" and "forbidden"
	// where existence must not be disclosed to non-owners.
	ErrNotFoundOrDenied = errors.New("not found or access denied")

	// ErrConflict is returned on uniqueness violations: duplicate version
	// strings, duplicate share grants.
	ErrConflict = errors.New("already exists")

	// ErrValidation is returned for malformed input such as an empty title or
	// an unknown enum value.
	ErrValidation = errors.New("invalid input")

	// ErrStorageInconsistency signals that the database and the blob storage
	// disagree and the operation could not reconcile them.
	ErrStorageInconsistency = errors.New("storage inconsistency")
)
