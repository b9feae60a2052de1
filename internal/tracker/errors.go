package tracker

import "errors"

// Sentinel errors for the tracker package. Using sentinels instead of
// ad-hoc fmt.Errorf allows callers to match with errors.Is for reliable
// error handling.
var (
	// ErrPathEscapesRoot is returned when a tracked path canonicalizes
	// outside the bound repository root.
	ErrPathEscapesRoot = errors.New("tracker: path escapes repository root")

	// ErrExcludedPattern is returned when a tracked path matches one of the
	// hard exclusion patterns (__pycache__, *.pyc/*.pyo, dotfiles outside
	// the allow-list).
	ErrExcludedPattern = errors.New("tracker: path matches excluded pattern")

	// ErrResourceCapExceeded is returned when recording a mutation would
	// push the ledger past MAX_FILES or MAX_BYTES.
	ErrResourceCapExceeded = errors.New("tracker: resource cap exceeded")

	// ErrAlreadyTracked is returned when TrackCreation is called twice for
	// the same path.
	ErrAlreadyTracked = errors.New("tracker: path already tracked")

	// ErrLockTimeout is returned when the advisory lock cannot be acquired
	// within the configured timeout. Fatal, non-retryable per spec.md.
	ErrLockTimeout = errors.New("tracker: advisory lock acquisition timed out")

	// ErrInvalidPath is returned for a tracked path containing a ".." or
	// empty path component.
	ErrInvalidPath = errors.New("tracker: invalid path component")
)
