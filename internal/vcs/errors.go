package vcs

import "errors"

// Sentinel errors for the vcs package. Using sentinels instead of ad-hoc
// fmt.Errorf allows callers to match with errors.Is for reliable error handling.
var (
	// ErrSubcommandNotAllowed is returned when a caller asks the wrapper to run
	// a git subcommand outside the whitelist.
	ErrSubcommandNotAllowed = errors.New("vcs: subcommand not in whitelist")

	// ErrCommandTimeout is returned when a git invocation exceeds its deadline.
	ErrCommandTimeout = errors.New("vcs: command timed out")

	// ErrBranchExists is returned when CreateAndSwitchBranch collides with an
	// existing local or remote branch.
	ErrBranchExists = errors.New("vcs: branch already exists")

	// ErrUnknownBranch is returned when SwitchBranch targets a branch that
	// does not exist.
	ErrUnknownBranch = errors.New("vcs: branch does not exist")

	// ErrDetachedHEAD is returned when the current branch cannot be resolved
	// to a symbolic name.
	ErrDetachedHEAD = errors.New("vcs: HEAD is detached")

	// ErrPathEscapesRepo is returned when a path argument canonicalizes
	// outside the bound repository root.
	ErrPathEscapesRepo = errors.New("vcs: path escapes repository root")

	// ErrNoRemote is returned when the requested remote has no configured URL.
	ErrNoRemote = errors.New("vcs: remote not configured")

	// ErrEmptyMessage is returned when Commit is called with a blank message.
	ErrEmptyMessage = errors.New("vcs: commit message must not be empty")

	// ErrValidation marks a static-contract violation on a caller-supplied
	// argument (branch name, path). Programmer error, not a runtime failure.
	ErrValidation = errors.New("vcs: validation error")

	// ErrNothingToCommit is returned by Commit when the index has no staged
	// changes relative to HEAD. Not a failure: the driver treats this as
	// the NO_OP terminal state.
	ErrNothingToCommit = errors.New("vcs: nothing to commit")
)
