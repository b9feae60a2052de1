// Package preflight implements the Repository Validator (C3): a set of
// read-only predicates run once, before any mutation, to decide whether an
// installation may proceed. Nothing in this package ever writes to the
// working tree, the index, or the remote.
package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/boshu2/githooks-installer/internal/vcs"
)

// sensitiveRootPatterns are checked against the repository root only;
// matches deeper in the tree are the user's concern, not the installer's,
// per spec.md §4.3.
var sensitiveRootPatterns = []string{
	".env",
	"*.pem",
	"*.key",
	"*_rsa",
	"id_dsa",
	"id_ed25519",
	"*.p12",
	"*.pfx",
}

// Check is one named predicate with an optional human-readable cause,
// populated only when Passed is false.
type Check struct {
	Name   string
	Passed bool
	Cause  string
}

// Report aggregates every predicate in spec.md §4.3, evaluated in order;
// the first failure does not short-circuit the rest so the caller can
// surface every failing predicate at once.
type Report struct {
	Checks []Check

	// StartingBranch is the current branch name, captured as the
	// restoration target, valid only when the "known starting branch"
	// check passed.
	StartingBranch string
}

// OK reports whether every predicate passed.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Err returns ErrPreflightFailed wrapping every failing check's cause, or
// nil if the report is OK.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	var causes []string
	for _, c := range r.Checks {
		if !c.Passed {
			causes = append(causes, fmt.Sprintf("%s: %s", c.Name, c.Cause))
		}
	}
	return fmt.Errorf("%w: %s", ErrPreflightFailed, strings.Join(causes, "; "))
}

func (r *Report) add(name string, err error) {
	c := Check{Name: name, Passed: err == nil}
	if err != nil {
		c.Cause = err.Error()
	}
	r.Checks = append(r.Checks, c)
}

// Run evaluates every predicate in spec.md §4.3 against repo using g, and
// confirms plannedBranch does not already collide with a local or remote
// branch. Run never mutates state.
func Run(ctx context.Context, repo vcs.Repo, g *vcs.Git, plannedBranch vcs.BranchName) Report {
	var r Report

	isGit := checkIsWorkingTree(ctx, repo, g)
	r.add("is_git", isGit)

	r.add("is_clean", checkClean(ctx, g))

	branch, branchErr := checkBranchKnown(ctx, g)
	r.add("branch_known", branchErr)
	if branchErr == nil {
		r.StartingBranch = branch
	}

	r.add("no_conflicting_branch", checkNoCollision(ctx, g, plannedBranch))

	r.add("has_remote", checkHasRemote(ctx, g))

	r.add("no_sensitive_files_at_root", checkNoSensitiveFiles(repo))

	return r
}

func checkIsWorkingTree(ctx context.Context, repo vcs.Repo, g *vcs.Git) error {
	gitDir := filepath.Join(repo.Root(), ".git")
	if _, err := os.Stat(gitDir); err != nil {
		return fmt.Errorf("%s is not a git working tree (no .git found)", repo.Root())
	}
	top, err := g.TopLevel(ctx)
	if err != nil {
		return fmt.Errorf("could not resolve git top-level directory: %w", err)
	}
	if top != repo.Root() {
		return fmt.Errorf("resolved repository root %q does not match git's top-level %q", repo.Root(), top)
	}
	return nil
}

func checkClean(ctx context.Context, g *vcs.Git) error {
	clean, err := g.IsWorkingTreeClean(ctx)
	if err != nil {
		return fmt.Errorf("could not determine working tree status: %w", err)
	}
	if !clean {
		return fmt.Errorf("working tree has uncommitted changes; commit or stash before installing")
	}
	return nil
}

func checkBranchKnown(ctx context.Context, g *vcs.Git) (string, error) {
	branch, err := g.CurrentBranch(ctx)
	if err != nil {
		return "", fmt.Errorf("repository is in detached HEAD state; check out a branch before installing")
	}
	return branch, nil
}

func checkNoCollision(ctx context.Context, g *vcs.Git, plannedBranch vcs.BranchName) error {
	if plannedBranch.IsZero() {
		return nil
	}
	local, err := g.BranchExists(ctx, plannedBranch)
	if err != nil {
		return fmt.Errorf("could not check for local branch collision: %w", err)
	}
	if local {
		return fmt.Errorf("branch %q already exists locally", plannedBranch)
	}
	remote, err := g.RemoteBranchExists(ctx, "origin", plannedBranch)
	if err != nil {
		return fmt.Errorf("could not check for remote branch collision: %w", err)
	}
	if remote {
		return fmt.Errorf("branch %q already exists on origin", plannedBranch)
	}
	return nil
}

func checkHasRemote(ctx context.Context, g *vcs.Git) error {
	url, err := g.RemoteURL(ctx, "origin")
	if err != nil {
		return fmt.Errorf("no remote named origin is configured")
	}
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("remote origin has no URL")
	}
	return nil
}

func checkNoSensitiveFiles(repo vcs.Repo) error {
	entries, err := os.ReadDir(repo.Root())
	if err != nil {
		return fmt.Errorf("could not list repository root: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		for _, pattern := range sensitiveRootPatterns {
			if matched, _ := filepath.Match(pattern, e.Name()); matched {
				return fmt.Errorf("sensitive file %q found at repository root", e.Name())
			}
		}
	}
	return nil
}
