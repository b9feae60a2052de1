package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/boshu2/githooks-installer/embedded"
	"github.com/boshu2/githooks-installer/internal/config"
	"github.com/boshu2/githooks-installer/internal/installer"
	"github.com/boshu2/githooks-installer/internal/prcreate"
	"github.com/boshu2/githooks-installer/internal/vcs"
)

const projectConfigName = ".githooks-installer.yaml"

// exitCodeError carries one of spec.md §6's exit codes through cobra's
// plain error-returning RunE contract, so runInstall/runCheck stay
// ordinary functions a test can call directly without the process exiting
// underneath it; only Execute ever calls os.Exit.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error { return e.err }

func exitCodeForError(err error) int {
	if err == nil {
		return 0
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return 1
}

func runInstall(cmd *cobra.Command, args []string) error {
	repoRoot := args[0]

	if flagCheck {
		return runCheck(repoRoot)
	}

	opts, err := config.Load(config.FlagOverrides{BranchPrefix: flagBranchPrefix}, repoRoot, projectConfigName)
	if err != nil {
		return &exitCodeError{code: 1, err: fmt.Errorf("loading configuration: %w", err)}
	}

	source, err := resolveSource(flagSource)
	if err != nil {
		return &exitCodeError{code: 1, err: fmt.Errorf("resolving payload source: %w", err)}
	}

	// A SIGINT/SIGTERM during the run cancels every in-flight git
	// subprocess and drives the same restoration path as a component
	// failure, per spec.md §5.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opener := resolveOpener(ctx, repoRoot)

	result, runErr := installer.Run(ctx, installer.Options{
		RepoRoot:      repoRoot,
		Source:        source,
		BranchPrefix:  opts.BranchPrefix,
		Force:         flagForce,
		IncludeCI:     !flagNoCI,
		MaxFiles:      opts.MaxFiles,
		MaxBytes:      opts.MaxBytes,
		GitTimeout:    opts.GitTimeout,
		Opener:        opener,
		VerbosePrintf: VerbosePrintf,
	})

	report(result, runErr)

	code := exitCodeFor(result, runErr)
	if code == 0 {
		return nil
	}
	return &exitCodeError{code: code, err: runErr}
}

// resolveSource returns the payload filesystem: an explicit --source
// directory when given, otherwise the binary's embedded default.
func resolveSource(path string) (fs.FS, error) {
	if path == "" {
		return embedded.PayloadFS(), nil
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("--source %q is not a directory", path)
	}
	return os.DirFS(path), nil
}

// resolveOpener builds the C5 PR opener from whatever authentication
// method is available, or returns nil when none is configured; a nil
// opener means the driver skips PR creation entirely rather than failing.
func resolveOpener(ctx context.Context, repoRoot string) prcreate.Opener {
	auth := prcreate.ResolveAuth()
	if auth.Kind == prcreate.AuthNone {
		return nil
	}

	remoteURL := ""
	if repo, err := vcs.NewRepo(repoRoot); err == nil {
		g := vcs.New(repo)
		if url, err := g.RemoteURL(ctx, "origin"); err == nil {
			remoteURL = url
		}
	}
	return prcreate.NewOpener(auth, remoteURL)
}

func report(result installer.Result, err error) {
	switch result.State {
	case installer.StateDone:
		fmt.Printf("githooks-install: installed on %s (%d created, %d modified)\n",
			result.Branch, result.CreatedCount, result.ModifiedCount)
		if result.PRUrl != "" {
			fmt.Printf("githooks-install: opened pull request %s\n", result.PRUrl)
		}
		if result.PRWarning != "" {
			fmt.Fprintf(os.Stderr, "githooks-install: pull request not opened: %s\n", result.PRWarning)
		}
	case installer.StateNoOp:
		fmt.Println("githooks-install: already installed and current, nothing to do")
	case installer.StatePartialCommit:
		fmt.Fprintf(os.Stderr, "githooks-install: committed to %s but push failed: %v\n", result.Branch, err)
		fmt.Fprintf(os.Stderr, "githooks-install: the feature branch and its commit were left in place for inspection\n")
	default:
		if err != nil {
			fmt.Fprintf(os.Stderr, "githooks-install: %v\n", err)
		}
		if result.RestorationFailed {
			fmt.Fprintf(os.Stderr, "githooks-install: warning: could not restore starting branch %s\n", result.StartingBranch)
		}
	}
}

// exitCodeFor maps a driver outcome to spec.md §6's exit codes.
func exitCodeFor(result installer.Result, err error) int {
	switch result.State {
	case installer.StateDone, installer.StateNoOp:
		return 0
	case installer.StatePartialCommit:
		return 3
	case installer.StateAbort:
		var preflightErr *installer.PreflightError
		var lockErr *installer.LockError
		switch {
		case errors.As(err, &preflightErr):
			return 1
		case errors.As(err, &lockErr):
			return 4
		default:
			return 2
		}
	case installer.StateRestore:
		return 2
	default:
		var lockErr *installer.LockError
		if errors.As(err, &lockErr) {
			return 4
		}
		return 2
	}
}
