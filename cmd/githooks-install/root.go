// Package main implements the githooks-install command line surface (C8):
// a cobra command tree that wires C1-C7 together and maps driver outcomes
// onto the exit codes documented in spec.md §6.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagSource       string
	flagCheck        bool
	flagForce        bool
	flagNoCI         bool
	flagVerbose      bool
	flagDebug        bool
	flagBranchPrefix string
)

// rootCmd is githooks-install itself; it takes the target repository path
// as its sole positional argument and performs the full transaction unless
// --check is given.
var rootCmd = &cobra.Command{
	Use:   "githooks-install <repo-path>",
	Short: "Install the tracked git hooks bundle into a repository",
	Long: `githooks-install lays out a fixed bundle of git hooks, developer-setup
scripts, and CI templates into a target repository on a dedicated feature
branch, commits only the files it wrote, pushes the branch, and opens a
pull request when GitHub authentication is available.

Run it against a clean working tree with a known remote:

  githooks-install /path/to/repo

Use --check to ask whether a repository is already installed and current
without mutating anything.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runInstall,
}

// Execute runs rootCmd and is the only place in this package that calls
// os.Exit, so runInstall/runCheck stay plain functions a test can call
// directly.
func Execute() {
	err := rootCmd.Execute()
	os.Exit(exitCodeForError(err))
}

func init() {
	rootCmd.Flags().StringVar(&flagSource, "source", "", "directory containing the installable payload tree (defaults to the embedded payload)")
	rootCmd.Flags().BoolVarP(&flagCheck, "check", "c", false, "run preflight and report installation status only; make no mutations")
	rootCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "proceed even if already installed; tracked files become modifications")
	rootCmd.Flags().BoolVar(&flagNoCI, "no-ci", false, "skip installation of continuous-integration templates")
	rootCmd.Flags().StringVar(&flagBranchPrefix, "branch-prefix", "", "override the feature branch name prefix")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug output, including full diagnostics")
}

// GetVerbose reports whether verbose output is enabled, which --debug also
// implies, for use by subcommands.
func GetVerbose() bool {
	return flagVerbose || flagDebug
}

// GetDebug returns the debug flag value for use by subcommands.
func GetDebug() bool {
	return flagDebug
}

// VerbosePrintf prints only when verbose or debug mode is enabled.
func VerbosePrintf(format string, args ...interface{}) {
	if GetVerbose() {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// DebugPrintf prints only when debug mode is enabled.
func DebugPrintf(format string, args ...interface{}) {
	if flagDebug {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
