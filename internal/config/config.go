// Package config resolves installer.Options from (highest to lowest
// priority):
//  1. Command-line flags
//  2. Environment variables (GITHOOKS_*)
//  3. Project config (.githooks-installer.yaml in the target repository)
//  4. Defaults
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults mirror spec.md §4.1/§4.2/§4.4.
const (
	DefaultBranchPrefix = "feat/githooks-installation"
	DefaultMaxFiles     = 1000
	DefaultMaxBytes     = 100 * 1024 * 1024
	DefaultGitTimeout   = 30 * time.Second
)

// Options holds every tunable named in spec.md §6.
type Options struct {
	BranchPrefix string        `yaml:"branch_prefix"`
	MaxFiles     int           `yaml:"max_files"`
	MaxBytes     int64         `yaml:"max_bytes"`
	GitTimeout   time.Duration `yaml:"-"`
	GitTimeoutS  int           `yaml:"git_timeout_seconds"`
}

// Defaults returns the built-in option values before any override layer is
// applied.
func Defaults() Options {
	return Options{
		BranchPrefix: DefaultBranchPrefix,
		MaxFiles:     DefaultMaxFiles,
		MaxBytes:     DefaultMaxBytes,
		GitTimeout:   DefaultGitTimeout,
	}
}

// FlagOverrides carries only the fields a caller explicitly set via CLI
// flags; zero values mean "not set, fall through to the next layer".
type FlagOverrides struct {
	BranchPrefix string
	MaxFiles     int
	MaxBytes     int64
	GitTimeout   time.Duration
}

// Load resolves Options for repoRoot using the precedence order documented
// on the package. projectConfigName is the basename looked up in
// repoRoot (".githooks-installer.yaml" in normal operation).
func Load(flags FlagOverrides, repoRoot, projectConfigName string) (Options, error) {
	opts := Defaults()

	if err := applyProjectFile(&opts, filepath.Join(repoRoot, projectConfigName)); err != nil {
		return Options{}, err
	}
	applyEnv(&opts)
	applyFlags(&opts, flags)

	if opts.GitTimeoutS > 0 {
		opts.GitTimeout = time.Duration(opts.GitTimeoutS) * time.Second
	}
	return opts, nil
}

func applyProjectFile(opts *Options, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var fileOpts Options
	if err := yaml.Unmarshal(data, &fileOpts); err != nil {
		return err
	}
	mergeNonZero(opts, fileOpts)
	return nil
}

func applyEnv(opts *Options) {
	if v := os.Getenv("GITHOOKS_INSTALLER_BRANCH_PREFIX"); v != "" {
		opts.BranchPrefix = v
	}
	if v := os.Getenv("GITHOOKS_MAX_FILES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxFiles = n
		}
	}
	if v := os.Getenv("GITHOOKS_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			opts.MaxBytes = n
		}
	}
	if v := os.Getenv("GITHOOKS_GIT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.GitTimeout = time.Duration(n) * time.Second
		}
	}
}

func applyFlags(opts *Options, flags FlagOverrides) {
	if flags.BranchPrefix != "" {
		opts.BranchPrefix = flags.BranchPrefix
	}
	if flags.MaxFiles > 0 {
		opts.MaxFiles = flags.MaxFiles
	}
	if flags.MaxBytes > 0 {
		opts.MaxBytes = flags.MaxBytes
	}
	if flags.GitTimeout > 0 {
		opts.GitTimeout = flags.GitTimeout
	}
}

func mergeNonZero(dst *Options, src Options) {
	if src.BranchPrefix != "" {
		dst.BranchPrefix = src.BranchPrefix
	}
	if src.MaxFiles > 0 {
		dst.MaxFiles = src.MaxFiles
	}
	if src.MaxBytes > 0 {
		dst.MaxBytes = src.MaxBytes
	}
	if src.GitTimeoutS > 0 {
		dst.GitTimeoutS = src.GitTimeoutS
	}
}
