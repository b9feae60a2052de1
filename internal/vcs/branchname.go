package vcs

import (
	"fmt"
	"regexp"
	"strings"
)

// branchNamePattern matches spec.md's BranchName grammar:
// [A-Za-z0-9/_.-]+, non-empty, length <= 255.
var branchNamePattern = regexp.MustCompile(`^[A-Za-z0-9/_.-]+$`)

// BranchName is a validated, filesystem- and git-safe branch identifier.
// Construct one with NewBranchName; the zero value is never valid.
type BranchName struct {
	value string
}

// NewBranchName validates s against spec.md's BranchName grammar and
// returns a BranchName wrapping it, or an error wrapping ErrValidation that
// describes the first violated constraint.
func NewBranchName(s string) (BranchName, error) {
	if s == "" {
		return BranchName{}, fmt.Errorf("%w: empty branch name", ErrValidation)
	}
	if len(s) > 255 {
		return BranchName{}, fmt.Errorf("%w: branch name exceeds 255 characters", ErrValidation)
	}
	if !branchNamePattern.MatchString(s) {
		return BranchName{}, fmt.Errorf("%w: branch name contains characters outside [A-Za-z0-9/_.-]", ErrValidation)
	}
	for _, edge := range []string{"/", "-", "."} {
		if strings.HasPrefix(s, edge) || strings.HasSuffix(s, edge) {
			return BranchName{}, fmt.Errorf("%w: branch name must not start or end with %q", ErrValidation, edge)
		}
	}
	return BranchName{value: s}, nil
}

// String returns the underlying branch name.
func (b BranchName) String() string {
	return b.value
}

// IsZero reports whether b was never validated via NewBranchName.
func (b BranchName) IsZero() bool {
	return b.value == ""
}
