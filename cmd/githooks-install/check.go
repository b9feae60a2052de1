package main

import (
	"context"
	"fmt"

	"github.com/boshu2/githooks-installer/internal/installer"
)

// runCheck implements --check: preflight plus idempotence, with no
// mutation, per spec.md §6.
func runCheck(repoRoot string) error {
	status, err := installer.CheckStatus(context.Background(), repoRoot)
	if err != nil {
		return &exitCodeError{code: 1, err: fmt.Errorf("check failed: %w", err)}
	}

	if !status.PreflightOK {
		fmt.Println("githooks-install: not ready to install")
		for _, cause := range status.PreflightCauses {
			fmt.Printf("  - %s\n", cause)
		}
		return &exitCodeError{code: 1}
	}

	switch {
	case status.Installed && status.Current:
		fmt.Println("githooks-install: installed and current")
		return nil
	case status.Installed:
		fmt.Printf("githooks-install: installed but stale (installed by %s)\n", status.InstalledBy)
		return &exitCodeError{code: 1}
	default:
		fmt.Println("githooks-install: not installed")
		return &exitCodeError{code: 1}
	}
}
