package installer

import (
	"context"
	"fmt"

	"github.com/boshu2/githooks-installer/internal/preflight"
	"github.com/boshu2/githooks-installer/internal/vcs"
)

// Status is the read-only result of CheckStatus, the --check code path:
// preflight plus idempotence, with no mutation of the working tree.
type Status struct {
	PreflightOK     bool
	PreflightCauses []string
	Installed       bool
	Current         bool
	InstalledBy     string
}

// CheckStatus runs the same predicates Run does before branching, plus the
// idempotence check, without ever switching branches or touching the
// working tree.
func CheckStatus(ctx context.Context, repoRoot string) (Status, error) {
	repo, err := vcs.NewRepo(repoRoot)
	if err != nil {
		return Status{}, &ValidationError{State: StateInit, Field: "repo_root", Cause: err}
	}
	g := vcs.New(repo)

	probe, err := vcs.NewBranchName("feat/githooks-installation-probe")
	if err != nil {
		return Status{}, &ValidationError{State: StateInit, Field: "branch_name", Cause: err}
	}

	report := preflight.Run(ctx, repo, g, probe)
	status := Status{PreflightOK: report.OK()}
	for _, c := range report.Checks {
		if !c.Passed {
			status.PreflightCauses = append(status.PreflightCauses, fmt.Sprintf("%s: %s", c.Name, c.Cause))
		}
	}

	marker, installed, err := readVersionMarker(repo.Root())
	if err != nil {
		return status, &ValidationError{State: StatePreflight, Field: "version_marker", Cause: err}
	}
	status.Installed = installed
	if installed {
		status.Current = marker.InstallerVersion == InstallerVersion
		status.InstalledBy = marker.Source
	}
	return status, nil
}
