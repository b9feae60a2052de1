// Package installer implements the Transactional Installer (C4): the
// state machine that sequences preflight validation, branch creation,
// payload population, staging, commit, push, optional PR creation, and
// unconditional restoration of the starting branch.
package installer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"context"

	"github.com/boshu2/githooks-installer/internal/preflight"
	"github.com/boshu2/githooks-installer/internal/prcreate"
	"github.com/boshu2/githooks-installer/internal/tracker"
	"github.com/boshu2/githooks-installer/internal/vcs"
)

// InstallerVersion is stamped into the version marker and compared by
// --check and the idempotence guard. Overridden at link time via
// -ldflags when cmd/githooks-install is built for release.
var InstallerVersion = "dev"

// Options configures one run of the transaction. Every field is expected
// to already be resolved by internal/config before reaching Run; Run
// itself only fills in zero-value defaults that make sense for direct
// library callers and tests.
type Options struct {
	RepoRoot     string
	Source       fs.FS
	BranchPrefix string
	Force        bool
	IncludeCI    bool
	MaxFiles     int
	MaxBytes     int64
	GitTimeout   time.Duration
	LockTimeout  time.Duration
	Opener       prcreate.Opener // nil skips the PR step entirely
	Now          func() time.Time
	VerbosePrintf func(format string, args ...interface{})
}

func (o *Options) setDefaults() {
	if o.MaxFiles <= 0 {
		o.MaxFiles = tracker.DefaultMaxFiles
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = tracker.DefaultMaxBytes
	}
	if o.GitTimeout <= 0 {
		o.GitTimeout = vcs.DefaultTimeout
	}
	if o.LockTimeout <= 0 {
		o.LockTimeout = tracker.DefaultLockTimeout
	}
	if o.BranchPrefix == "" {
		o.BranchPrefix = "feat/githooks-installation"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.VerbosePrintf == nil {
		o.VerbosePrintf = func(string, ...interface{}) {}
	}
}

// Result summarizes a completed (or aborted) transaction.
type Result struct {
	State          State
	Branch         string
	StartingBranch string
	ManifestPath   string
	CreatedCount   int
	ModifiedCount  int
	DirectoryCount int
	PRUrl          string
	PRWarning      string
	RestorationFailed bool
	AlreadyInstalled  bool
}

// Run executes the full Safe Installation Transaction described in
// spec.md §4.4. The returned error, when non-nil, is always one of the
// typed errors in errors.go; Result.State names the terminal state
// regardless of whether err is nil.
func Run(ctx context.Context, opts Options) (Result, error) {
	opts.setDefaults()

	repo, err := vcs.NewRepo(opts.RepoRoot)
	if err != nil {
		return Result{State: StateAbort}, &ValidationError{State: StateInit, Field: "repo_root", Cause: err}
	}
	branchName := fmt.Sprintf("%s-%s", opts.BranchPrefix, opts.Now().Format("20060102-150405"))
	branch, err := vcs.NewBranchName(branchName)
	if err != nil {
		return Result{State: StateInit}, &ValidationError{State: StateInit, Field: "branch_name", Cause: err}
	}

	g := vcs.New(repo).WithTimeout(opts.GitTimeout)

	report := preflight.Run(ctx, repo, g, branch)
	if !report.OK() {
		var causes []string
		for _, c := range report.Checks {
			if !c.Passed {
				causes = append(causes, fmt.Sprintf("%s: %s", c.Name, c.Cause))
			}
		}
		return Result{State: StateAbort}, &PreflightError{State: StatePreflight, Causes: causes}
	}
	startingBranch := report.StartingBranch

	marker, installed, err := readVersionMarker(repo.Root())
	if err != nil {
		return Result{State: StateAbort, StartingBranch: startingBranch}, &ValidationError{State: StatePreflight, Field: "version_marker", Cause: err}
	}
	current := installed && marker.InstallerVersion == InstallerVersion
	if installed && current && !opts.Force {
		opts.VerbosePrintf("already installed at version %s, nothing to do\n", marker.InstallerVersion)
		return Result{State: StateNoOp, StartingBranch: startingBranch, AlreadyInstalled: true}, nil
	}

	trk, err := tracker.NewTracker(repo.Root(), opts.LockTimeout, tracker.WithCaps(opts.MaxFiles, opts.MaxBytes))
	if err != nil {
		return Result{State: StateAbort, StartingBranch: startingBranch}, &LockError{State: StateLocked, Cause: err}
	}
	defer trk.Close()

	tx := &transaction{
		opts:           opts,
		repo:           repo,
		g:              g,
		trk:            trk,
		branch:         branch,
		startingBranch: startingBranch,
		alreadyInstalled: installed,
		start:          opts.Now(),
	}

	result, err := tx.runGuarded(ctx)

	restoreErr := tx.restoreStartingBranch(ctx)
	if restoreErr != nil {
		result.RestorationFailed = true
		opts.VerbosePrintf("restoration failed: %v\n", restoreErr)
	}
	return result, err
}

// runGuarded recovers from a panic inside run so that the starting-branch
// restoration in Run always executes, per spec.md §4.4's "restoration
// happens last, unconditionally" ordering guarantee.
func (tx *transaction) runGuarded(ctx context.Context) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{State: StateRestore, Branch: tx.branch.String(), StartingBranch: tx.startingBranch}
			err = &ResourceError{State: StatePopulated, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	return tx.run(ctx)
}

// transaction holds the mutable state threaded through BRANCHED onward. It
// exists so Run's top half (preflight, idempotence, locking) stays a flat
// sequence while the mutating steps share context without a long parameter
// list on every call.
type transaction struct {
	opts             Options
	repo             vcs.Repo
	g                *vcs.Git
	trk              *tracker.Tracker
	branch           vcs.BranchName
	startingBranch   string
	alreadyInstalled bool
	start            time.Time
	branched         bool
}

func (tx *transaction) run(ctx context.Context) (Result, error) {
	if err := tx.g.CreateAndSwitchBranch(ctx, tx.branch); err != nil {
		return Result{State: StateAbort, StartingBranch: tx.startingBranch}, &VcsError{State: StateBranched, Subcommand: "switch", Cause: err}
	}
	tx.branched = true

	plan, err := BuildPlan(tx.opts.Source, tx.opts.IncludeCI)
	if err != nil {
		return tx.rollbackFull(ctx, &ResourceError{State: StatePopulated, Cause: err})
	}

	if err := tx.populate(plan); err != nil {
		return tx.rollbackFull(ctx, err)
	}

	manifestPath := "docs/githooks/.installation-manifest.json"
	if err := tx.trk.WriteManifest(manifestPath); err != nil {
		return tx.rollbackFull(ctx, &ResourceError{State: StatePopulated, Cause: err})
	}

	markerData, err := marshalVersionMarker(VersionMarker{
		InstallerVersion: InstallerVersion,
		InstalledAt:      tx.start,
		Source:           "embedded",
	})
	if err != nil {
		return tx.rollbackFull(ctx, &ResourceError{State: StatePopulated, Cause: err})
	}
	if err := tx.writeAndTrack(versionMarkerPath, markerData, false); err != nil {
		return tx.rollbackFull(ctx, err)
	}

	if err := tx.stage(ctx); err != nil {
		return tx.rollbackFull(ctx, err)
	}

	ledger := tx.trk.Ledger()
	message := BuildCommitMessage(len(ledger.CreatedFiles()), len(ledger.ModifiedFiles()), len(ledger.Directories), tx.opts.Now().Sub(tx.start), manifestPath, ledger.CreatedFiles())

	if err := tx.g.Commit(ctx, message); err != nil {
		if err == vcs.ErrNothingToCommit {
			return Result{
				State:          StateNoOp,
				Branch:         tx.branch.String(),
				StartingBranch: tx.startingBranch,
				ManifestPath:   manifestPath,
			}, nil
		}
		return tx.rollbackFull(ctx, &VcsError{State: StateStaged, Subcommand: "commit", Cause: err})
	}

	if err := tx.g.Push(ctx, tx.branch); err != nil {
		return Result{
			State:          StatePartialCommit,
			Branch:         tx.branch.String(),
			StartingBranch: tx.startingBranch,
			ManifestPath:   manifestPath,
		}, &VcsError{State: StateCommitted, Subcommand: "push", Cause: err}
	}

	result := Result{
		State:          StateDone,
		Branch:         tx.branch.String(),
		StartingBranch: tx.startingBranch,
		ManifestPath:   manifestPath,
		CreatedCount:   len(ledger.CreatedFiles()),
		ModifiedCount:  len(ledger.ModifiedFiles()),
		DirectoryCount: len(ledger.Directories),
	}

	if tx.opts.Opener != nil {
		prResult, prErr := tx.opts.Opener.Open(ctx, prcreate.Request{
			Repo:           tx.repo,
			HeadBranch:     tx.branch,
			BaseBranch:     tx.startingBranch,
		})
		if prErr != nil {
			result.PRWarning = prErr.Error()
		} else {
			result.PRUrl = prResult.URL
		}
	}

	return result, nil
}

// populate executes the InstallationPlan: create parent directories as
// needed, write each file, record every mutation with the tracker, and set
// the executable bit on hook, wrapper, and setup entries.
func (tx *transaction) populate(plan Plan) error {
	trackedDirs := map[string]bool{}

	for _, entry := range plan.Entries {
		dir := filepath.Dir(entry.Target)
		if dir != "." {
			if err := os.MkdirAll(filepath.Join(tx.repo.Root(), dir), 0o755); err != nil {
				return &ResourceError{State: StatePopulated, Cause: err}
			}
			if err := tx.trackAncestors(dir, trackedDirs); err != nil {
				return err
			}
		}

		content, err := fs.ReadFile(tx.opts.Source, entry.Source)
		if err != nil {
			return &ResourceError{State: StatePopulated, Cause: err}
		}

		if err := tx.writeAndTrack(entry.Target, content, false); err != nil {
			return err
		}
		if err := tx.setExecutable(entry.Target, entry.Kind); err != nil {
			return &ResourceError{State: StatePopulated, Cause: err}
		}
	}
	return nil
}

// trackAncestors records dir and every ancestor of dir under the payload
// root with the tracker, shallowest first, so the manifest lists each
// directory level the installation created.
func (tx *transaction) trackAncestors(dir string, seen map[string]bool) error {
	if dir == "." || dir == "" || seen[dir] {
		return nil
	}
	if err := tx.trackAncestors(filepath.Dir(dir), seen); err != nil {
		return err
	}
	if err := tx.trk.TrackDirectory(dir); err != nil {
		return &ResourceError{State: StatePopulated, Cause: err}
	}
	seen[dir] = true
	return nil
}

func (tx *transaction) setExecutable(target string, kind EntryKind) error {
	if !kind.Executable() {
		return nil
	}
	return os.Chmod(filepath.Join(tx.repo.Root(), target), 0o755)
}

// writeAndTrack writes content to target under the repository root and
// records the mutation with the tracker, classifying it as a modification
// when forceModified is true, or when the repository was already installed,
// --force was given, and target already exists.
func (tx *transaction) writeAndTrack(target string, content []byte, forceModified bool) error {
	full := filepath.Join(tx.repo.Root(), target)

	_, statErr := os.Stat(full)
	modify := forceModified || (tx.alreadyInstalled && tx.opts.Force && statErr == nil)

	if err := os.WriteFile(full, content, 0o644); err != nil {
		return &ResourceError{State: StatePopulated, Cause: err}
	}

	var trackErr error
	if modify {
		trackErr = tx.trk.TrackModification(target, content)
	} else {
		trackErr = tx.trk.TrackCreation(target, content)
	}
	if trackErr != nil {
		return &ResourceError{State: StatePopulated, Cause: trackErr}
	}
	return nil
}

// stage stages every tracked path and validates the result against the
// ledger, per spec.md §4.4's STAGED transition.
func (tx *transaction) stage(ctx context.Context) error {
	ledger := tx.trk.Ledger()
	for _, change := range ledger.Changes {
		if err := tx.g.StagePath(ctx, change.Path); err != nil {
			return &VcsError{State: StatePopulated, Subcommand: "add", Cause: err}
		}
	}

	report, err := tx.trk.ValidateStaging(ctx, tx.g)
	if err != nil {
		return &VcsError{State: StateStaged, Subcommand: "status", Cause: err}
	}
	if !report.OK() {
		return &StagingMismatchError{State: StateStaged, Missing: report.Missing, Unexpected: report.Unexpected}
	}
	return nil
}

// rollbackFull implements the POPULATED/STAGED failure policy of
// spec.md §4.4: discard the feature branch via a hard reset, delete it,
// restore the starting branch, and remove any file the ledger created
// that is not tracked on the starting branch, using the ledger as the
// sole authority, never a glob.
func (tx *transaction) rollbackFull(ctx context.Context, cause error) (Result, error) {
	_ = tx.g.HardResetTo(ctx, "HEAD")

	ledger := tx.trk.Ledger()
	for _, change := range ledger.Changes {
		if change.Kind == tracker.Created {
			// After the hard reset, a path tracked on the branch point is
			// back at its committed content and is left in place.
			if unchanged, err := tx.g.IsPathUnchanged(ctx, change.Path); err == nil && unchanged {
				continue
			}
			_ = os.Remove(filepath.Join(tx.repo.Root(), change.Path))
		}
	}

	if startingName, err := vcs.NewBranchName(tx.startingBranch); err == nil {
		if err := tx.g.SwitchBranch(ctx, startingName); err == nil {
			_ = tx.g.DeleteBranch(ctx, tx.branch)
		}
	}

	return Result{State: StateRestore, Branch: tx.branch.String(), StartingBranch: tx.startingBranch}, cause
}

// restoreStartingBranch runs unconditionally on every exit path once a
// branch switch has occurred, satisfying the invariant that branch
// restoration is attempted regardless of how the transaction ended.
func (tx *transaction) restoreStartingBranch(ctx context.Context) error {
	if !tx.branched {
		return nil
	}
	current, err := tx.g.CurrentBranch(ctx)
	if err == nil && current == tx.startingBranch {
		return nil
	}
	startingName, err := vcs.NewBranchName(tx.startingBranch)
	if err != nil {
		return fmt.Errorf("starting branch name %q rejected by validation: %w", tx.startingBranch, err)
	}
	return tx.g.SwitchBranch(ctx, startingName)
}
