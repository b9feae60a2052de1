package preflight

import "errors"

// ErrPreflightFailed is returned by Report.Err when one or more predicates
// failed. Callers inspect Report.Checks for the human-readable causes.
var ErrPreflightFailed = errors.New("preflight: one or more checks failed")
