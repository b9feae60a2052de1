// Package vcs wraps the git binary behind a closed set of operations: a
// fixed subcommand whitelist, argv-only invocation (never a shell), path
// containment checks, prompt suppression, and a per-call timeout.
//
// Every exported method takes or is bound to a Repo and is safe to call
// concurrently with other read-only methods; mutating methods (branch
// creation, staging, commit, push) are expected to be serialized by the
// caller, matching the single-threaded cooperative driver in
// internal/installer.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/boshu2/githooks-installer/internal/redact"
)

// DefaultTimeout is the wall-clock limit applied to a git invocation when
// the caller does not override it via WithTimeout.
const DefaultTimeout = 30 * time.Second

// subcommandWhitelist lists every git subcommand the wrapper is willing to
// run, and the flags permitted with it. A subcommand absent from this map
// is rejected before a process is ever spawned.
var subcommandWhitelist = map[string]map[string]bool{
	"status":       {"--porcelain=v1": true, "-z": true},
	"rev-parse":    {"--abbrev-ref": true, "--show-toplevel": true, "--verify": true},
	"branch":       {"--list": true, "-D": true, "-r": true},
	"switch":       {"-c": true},
	"checkout":     {"-b": true},
	"add":          {"--": true},
	"commit":       {"-m": true, "--file": true, "--author": true, "--allow-empty": false},
	"push":         {"-u": true, "--set-upstream": true},
	"remote":       {"get-url": true},
	"reset":        {"--hard": true},
	"diff":         {"--quiet": true, "--exit-code": true, "--cached": true, "--": true},
	"ls-files":     {"--": true},
	"worktree":     {"prune": true},
	"config":       {"--get": true},
}

// Repo is a canonicalized, immutable handle on a working tree root.
type Repo struct {
	root string
}

// NewRepo canonicalizes dir (resolving symlinks) and returns a Repo bound
// to the result. The directory need not yet be a git working tree; that
// predicate belongs to internal/preflight.
func NewRepo(dir string) (Repo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Repo{}, fmt.Errorf("vcs: resolve absolute path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// The directory may not exist yet on a symlink chain; fall back to
		// the absolute form so preflight can report "not a git repo" instead
		// of a confusing path-resolution error.
		resolved = abs
	}
	return Repo{root: resolved}, nil
}

// Root returns the canonical absolute repository root.
func (r Repo) Root() string {
	return r.root
}

// Git executes whitelisted git subcommands against one bound Repo.
type Git struct {
	repo    Repo
	timeout time.Duration
}

// New binds a Git wrapper to repo using DefaultTimeout.
func New(repo Repo) *Git {
	return &Git{repo: repo, timeout: DefaultTimeout}
}

// WithTimeout returns a copy of g using the given per-command timeout.
func (g *Git) WithTimeout(d time.Duration) *Git {
	cp := *g
	cp.timeout = d
	return &cp
}

// Repo returns the bound repository handle.
func (g *Git) Repo() Repo {
	return g.repo
}

// run executes a whitelisted subcommand with argv-only arguments (no shell
// interpolation), suppresses interactive prompting, and enforces the
// per-call timeout.
func (g *Git) run(ctx context.Context, subcommand string, args ...string) (stdout string, stderr string, err error) {
	allowedFlags, ok := subcommandWhitelist[subcommand]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrSubcommandNotAllowed, subcommand)
	}
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			continue
		}
		flag := a
		if idx := strings.IndexByte(a, '='); idx >= 0 {
			flag = a[:idx]
		}
		if !allowedFlags[a] && !allowedFlags[flag] {
			return "", "", fmt.Errorf("%w: flag %q not permitted for %q", ErrSubcommandNotAllowed, flag, subcommand)
		}
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	argv := append([]string{subcommand}, args...)
	cmd := exec.CommandContext(cctx, "git", argv...)
	cmd.Dir = g.repo.root
	cmd.Env = promptSuppressedEnv()

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	if cctx.Err() == context.DeadlineExceeded {
		return "", "", fmt.Errorf("%w: git %s after %s", ErrCommandTimeout, subcommand, g.timeout)
	}
	if runErr != nil {
		sanitized := redact.Message(strings.TrimSpace(errBuf.String()))
		return outBuf.String(), errBuf.String(), fmt.Errorf("vcs: git %s: %w: %s", subcommand, runErr, sanitized)
	}
	return outBuf.String(), errBuf.String(), nil
}

// promptSuppressedEnv returns the parent environment plus variables that
// make git fail fast instead of blocking on an interactive prompt.
func promptSuppressedEnv() []string {
	env := os.Environ()
	env = append(env,
		"GIT_TERMINAL_PROMPT=0",
		"GIT_ASKPASS=true",
		"SSH_ASKPASS=true",
		"GIT_SSH_COMMAND=ssh -oBatchMode=yes",
	)
	return env
}

// canonicalRelPath resolves relpath against the repo root and verifies the
// result lies strictly inside it, also after symlink resolution when the
// path exists, per spec.md's path-containment invariant. It returns the
// repo-relative, forward-slash form suitable for passing to git.
func (g *Git) canonicalRelPath(relpath string) (string, error) {
	if relpath == "" || strings.Contains(filepath.ToSlash(relpath), "../") || relpath == ".." {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesRepo, relpath)
	}
	joined := filepath.Join(g.repo.root, relpath)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("vcs: resolve %q: %w", relpath, err)
	}
	rootWithSep := g.repo.root + string(filepath.Separator)
	if !strings.HasPrefix(abs, rootWithSep) {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesRepo, relpath)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil && !strings.HasPrefix(resolved, rootWithSep) {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesRepo, relpath)
	}
	rel, err := filepath.Rel(g.repo.root, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesRepo, relpath)
	}
	return filepath.ToSlash(rel), nil
}

// IsWorkingTreeClean reports whether porcelain status is empty.
func (g *Git) IsWorkingTreeClean(ctx context.Context) (bool, error) {
	out, _, err := g.run(ctx, "status", "--porcelain=v1")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

// CurrentBranch returns the non-empty symbolic branch name, or
// ErrDetachedHEAD if HEAD is not attached to a branch.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	out, _, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(out)
	if branch == "" || branch == "HEAD" {
		return "", ErrDetachedHEAD
	}
	return branch, nil
}

// TopLevel returns git's own notion of the working tree root, used by
// internal/preflight to confirm the bound Repo.Root() matches it exactly.
func (g *Git) TopLevel(ctx context.Context) (string, error) {
	out, _, err := g.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(strings.TrimSpace(out))
	if err != nil {
		return strings.TrimSpace(out), nil
	}
	return resolved, nil
}

// BranchExists reports whether name exists as a local branch.
func (g *Git) BranchExists(ctx context.Context, name BranchName) (bool, error) {
	out, _, err := g.run(ctx, "branch", "--list", name.String())
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// RemoteBranchExists reports whether name exists on the given remote,
// queried without network access via the local remote-tracking refs.
func (g *Git) RemoteBranchExists(ctx context.Context, remote string, name BranchName) (bool, error) {
	out, _, err := g.run(ctx, "branch", "-r", "--list", fmt.Sprintf("%s/%s", remote, name.String()))
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// CreateAndSwitchBranch creates name from the current HEAD and switches to
// it. Fails with ErrBranchExists if name is already taken.
func (g *Git) CreateAndSwitchBranch(ctx context.Context, name BranchName) error {
	exists, err := g.BranchExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %q", ErrBranchExists, name)
	}
	_, _, err = g.run(ctx, "switch", "-c", name.String())
	return err
}

// SwitchBranch switches the working tree to an existing branch.
func (g *Git) SwitchBranch(ctx context.Context, name BranchName) error {
	exists, err := g.BranchExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %q", ErrUnknownBranch, name)
	}
	_, _, err = g.run(ctx, "switch", name.String())
	return err
}

// DeleteBranch force-deletes a local branch. Used by installer rollback;
// failure is non-fatal to the caller's own rollback sequence.
func (g *Git) DeleteBranch(ctx context.Context, name BranchName) error {
	_, _, err := g.run(ctx, "branch", "-D", name.String())
	return err
}

// HardResetTo resets the working tree and index to ref, discarding commits.
// Used only during rollback, on the feature branch, never on the starting
// branch.
func (g *Git) HardResetTo(ctx context.Context, ref string) error {
	_, _, err := g.run(ctx, "reset", "--hard", ref)
	return err
}

// StagePath adds relpath to the index. Per spec.md's stage-unchanged
// policy, callers should treat IsPathUnchanged==true as a reason to skip
// calling StagePath rather than treating a subsequent "nothing to stage"
// outcome as an error; StagePath itself always attempts the add.
func (g *Git) StagePath(ctx context.Context, relpath string) error {
	rel, err := g.canonicalRelPath(relpath)
	if err != nil {
		return err
	}
	_, _, err = g.run(ctx, "add", "--", rel)
	return err
}

// IsPathUnchanged reports whether git considers relpath unchanged relative
// to HEAD (neither staged nor unstaged differences). A path git does not
// track is reported as changed. This underwrites the "stage-unchanged is a
// no-op success" policy in spec.md §4.1.
func (g *Git) IsPathUnchanged(ctx context.Context, relpath string) (bool, error) {
	rel, err := g.canonicalRelPath(relpath)
	if err != nil {
		return false, err
	}
	listed, _, err := g.run(ctx, "ls-files", "--", rel)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(listed) == "" {
		return false, nil
	}
	_, _, err = g.run(ctx, "diff", "--quiet", "--exit-code", "HEAD", "--", rel)
	if err == nil {
		return true, nil
	}
	if exitCode(err) == 1 {
		return false, nil
	}
	return false, err
}

// exitCode extracts the process exit code from an error returned by
// g.run, or -1 if err does not wrap an *exec.ExitError (timeout, lookup
// failure, or success).
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// StagedPaths returns the set of repo-relative paths currently in the
// index (added, modified, deleted, or renamed), used by
// internal/tracker.ValidateStaging.
func (g *Git) StagedPaths(ctx context.Context) (map[string]bool, error) {
	out, _, err := g.run(ctx, "status", "--porcelain=v1")
	if err != nil {
		return nil, err
	}
	paths := map[string]bool{}
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		indexStatus := line[0]
		if indexStatus == ' ' || indexStatus == '?' {
			continue
		}
		rest := strings.TrimSpace(line[3:])
		if arrow := strings.Index(rest, " -> "); arrow >= 0 {
			rest = rest[arrow+4:]
		}
		paths[filepath.ToSlash(rest)] = true
	}
	return paths, nil
}

// Commit creates exactly one commit from the current index. If the index
// has no staged changes relative to HEAD, Commit returns ErrNothingToCommit
// so the driver can transition to the NO_OP terminal state instead of
// treating it as a failure.
func (g *Git) Commit(ctx context.Context, message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}
	_, _, err := g.run(ctx, "diff", "--quiet", "--exit-code", "--cached")
	if err == nil {
		return ErrNothingToCommit
	}
	if exitCode(err) != 1 {
		return err
	}
	_, _, err = g.run(ctx, "commit", "-m", message)
	return err
}

// Push pushes branch to origin, creating the upstream tracking ref.
func (g *Git) Push(ctx context.Context, branch BranchName) error {
	_, _, err := g.run(ctx, "push", "-u", "origin", branch.String())
	return err
}

// RemoteURL returns the URL configured for the named remote.
func (g *Git) RemoteURL(ctx context.Context, remote string) (string, error) {
	out, _, err := g.run(ctx, "remote", "get-url", remote)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoRemote, remote)
	}
	url := strings.TrimSpace(out)
	if url == "" {
		return "", fmt.Errorf("%w: %s", ErrNoRemote, remote)
	}
	return url, nil
}

// PruneWorktrees runs `git worktree prune`, used only as best-effort
// housekeeping; callers ignore its error.
func (g *Git) PruneWorktrees(ctx context.Context) error {
	_, _, err := g.run(ctx, "worktree", "prune")
	return err
}
