// Package tracker implements the File Tracker (C2): the single source of
// truth for what the installer created or modified, so the commit step can
// stage exactly those files and nothing else. It enforces path containment,
// exclusion patterns, and resource caps at record time, and serializes
// itself to the on-disk installation manifest.
package tracker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/boshu2/githooks-installer/internal/vcs"
)

// DefaultMaxFiles and DefaultMaxBytes are the resource caps from spec.md
// §3, overridable via GITHOOKS_MAX_FILES / GITHOOKS_MAX_BYTES (see
// internal/config).
const (
	DefaultMaxFiles = 1000
	DefaultMaxBytes = 100 * 1024 * 1024
)

// allowedDotfiles lists the dotfile basenames exempt from the
// "no dotfiles other than a small allow-list" exclusion rule.
var allowedDotfiles = map[string]bool{
	".gitignore":                   true,
	".githooks-version.json":       true,
	".installation-manifest.json":  true,
}

// MutationKind distinguishes a brand-new file from an overwrite of an
// existing one, per spec.md's TrackedChange model.
type MutationKind string

const (
	Created  MutationKind = "created"
	Modified MutationKind = "modified"
)

// Change is one recorded filesystem mutation. Appended to the ledger
// exactly once per mutation; never deleted.
type Change struct {
	Path   string       `json:"path"`
	Kind   MutationKind `json:"kind"`
	Bytes  int64        `json:"bytes"`
	SHA256 string       `json:"sha256"`
}

// Ledger is the ordered sequence of Changes plus the directories the
// installer created along the way. It is append-only within one
// transaction and is never shared across transactions.
type Ledger struct {
	Changes     []Change `json:"changes"`
	Directories []string `json:"directories"`
}

// CreatedFiles returns the repo-relative paths of every Created change, in
// ledger order.
func (l Ledger) CreatedFiles() []string {
	return l.filesByKind(Created)
}

// ModifiedFiles returns the repo-relative paths of every Modified change,
// in ledger order.
func (l Ledger) ModifiedFiles() []string {
	return l.filesByKind(Modified)
}

func (l Ledger) filesByKind(kind MutationKind) []string {
	var out []string
	for _, c := range l.Changes {
		if c.Kind == kind {
			out = append(out, c.Path)
		}
	}
	return out
}

// TotalBytes sums the byte sizes of every tracked change.
func (l Ledger) TotalBytes() int64 {
	var total int64
	for _, c := range l.Changes {
		total += c.Bytes
	}
	return total
}

// Paths returns the set of every tracked file path (created or modified),
// not including directories.
func (l Ledger) Paths() map[string]bool {
	set := make(map[string]bool, len(l.Changes))
	for _, c := range l.Changes {
		set[c.Path] = true
	}
	return set
}

// Tracker owns one Ledger and the advisory lock protecting the bound
// repository's working tree for the duration of one installation
// transaction.
type Tracker struct {
	repoRoot string
	maxFiles int
	maxBytes int64
	ledger   Ledger
	seen     map[string]bool
	lock     *flock.Flock
}

// Option configures a Tracker constructed by NewTracker.
type Option func(*Tracker)

// WithCaps overrides the default MAX_FILES / MAX_BYTES resource caps.
func WithCaps(maxFiles int, maxBytes int64) Option {
	return func(t *Tracker) {
		if maxFiles > 0 {
			t.maxFiles = maxFiles
		}
		if maxBytes > 0 {
			t.maxBytes = maxBytes
		}
	}
}

// NewTracker acquires the advisory lock on repoRoot and returns a Tracker
// ready to record mutations. Acquisition is bounded by timeout; failure is
// fatal and non-retryable (ErrLockTimeout), per spec.md §4.2.
func NewTracker(repoRoot string, timeout time.Duration, opts ...Option) (*Tracker, error) {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	fl, err := acquireLock(repoRoot, timeout)
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		repoRoot: repoRoot,
		maxFiles: DefaultMaxFiles,
		maxBytes: DefaultMaxBytes,
		seen:     make(map[string]bool),
		lock:     fl,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Close releases the advisory lock. Safe to call multiple times.
func (t *Tracker) Close() error {
	if t.lock == nil {
		return nil
	}
	err := t.lock.Unlock()
	t.lock = nil
	return err
}

// Ledger returns a copy of the current ledger state.
func (t *Tracker) Ledger() Ledger {
	cp := Ledger{
		Changes:     append([]Change(nil), t.ledger.Changes...),
		Directories: append([]string(nil), t.ledger.Directories...),
	}
	return cp
}

// TrackCreation records a brand-new file at relpath with the given
// content, computing its size and SHA-256 digest. Fails if the path is
// already tracked, violates containment/exclusion rules, or would exceed
// the resource caps.
func (t *Tracker) TrackCreation(relpath string, content []byte) error {
	return t.track(relpath, content, Created)
}

// TrackModification records an overwrite of an existing file at relpath.
func (t *Tracker) TrackModification(relpath string, content []byte) error {
	return t.track(relpath, content, Modified)
}

func (t *Tracker) track(relpath string, content []byte, kind MutationKind) error {
	rel, err := t.canonicalize(relpath)
	if err != nil {
		return err
	}
	if t.seen[rel] {
		return fmt.Errorf("%w: %q", ErrAlreadyTracked, rel)
	}
	if err := checkExclusions(rel); err != nil {
		return err
	}

	newCount := len(t.ledger.Changes) + 1
	newBytes := t.ledger.TotalBytes() + int64(len(content))
	if newCount > t.maxFiles {
		return fmt.Errorf("%w: %d files exceeds cap of %d", ErrResourceCapExceeded, newCount, t.maxFiles)
	}
	if newBytes > t.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds cap of %d", ErrResourceCapExceeded, newBytes, t.maxBytes)
	}

	sum := sha256.Sum256(content)
	t.ledger.Changes = append(t.ledger.Changes, Change{
		Path:   rel,
		Kind:   kind,
		Bytes:  int64(len(content)),
		SHA256: hex.EncodeToString(sum[:]),
	})
	t.seen[rel] = true
	return nil
}

// TrackDirectory records a directory creation for bookkeeping. Directories
// do not count against MAX_FILES or MAX_BYTES.
func (t *Tracker) TrackDirectory(relpath string) error {
	rel, err := t.canonicalize(relpath)
	if err != nil {
		return err
	}
	for _, d := range t.ledger.Directories {
		if d == rel {
			return nil
		}
	}
	t.ledger.Directories = append(t.ledger.Directories, rel)
	return nil
}

// canonicalize verifies relpath stays inside the repository root after
// symlink-free join resolution and rejects ".." / empty components.
func (t *Tracker) canonicalize(relpath string) (string, error) {
	if relpath == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	cleaned := filepath.ToSlash(filepath.Clean(relpath))
	for _, part := range strings.Split(cleaned, "/") {
		if part == "" || part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, relpath)
		}
	}
	joined := filepath.Join(t.repoRoot, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("tracker: resolve %q: %w", relpath, err)
	}
	rootWithSep := t.repoRoot + string(filepath.Separator)
	if abs != t.repoRoot && !strings.HasPrefix(abs, rootWithSep) {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesRoot, relpath)
	}
	return cleaned, nil
}

// checkExclusions rejects paths matching spec.md's hard exclusion
// patterns, checked against every path component, not just the basename.
func checkExclusions(relpath string) error {
	for _, part := range strings.Split(relpath, "/") {
		if part == "__pycache__" {
			return fmt.Errorf("%w: %q", ErrExcludedPattern, relpath)
		}
		if strings.HasSuffix(part, ".pyc") || strings.HasSuffix(part, ".pyo") {
			return fmt.Errorf("%w: %q", ErrExcludedPattern, relpath)
		}
		if strings.HasPrefix(part, ".") && !allowedDotfiles[part] {
			return fmt.Errorf("%w: %q", ErrExcludedPattern, relpath)
		}
	}
	return nil
}

// StagingReport is returned by ValidateStaging: Missing is tracked but not
// staged (and not reported unchanged by git); Unexpected is staged but not
// tracked.
type StagingReport struct {
	Missing    []string
	Unexpected []string
}

// OK reports whether the staging area exactly matches the ledger, modulo
// paths git reports as unchanged.
func (r StagingReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Unexpected) == 0
}

// ValidateStaging asserts that the set of paths in the index equals the
// set of tracked mutations, modulo paths git reports as unchanged (the
// stage-unchanged policy of spec.md §4.1). Both Missing and Unexpected
// members of the result indicate a fatal condition per spec.md §4.4/§7.
func (t *Tracker) ValidateStaging(ctx context.Context, g *vcs.Git) (StagingReport, error) {
	staged, err := g.StagedPaths(ctx)
	if err != nil {
		return StagingReport{}, err
	}

	tracked := t.ledger.Paths()
	var report StagingReport

	for path := range tracked {
		if staged[path] {
			continue
		}
		unchanged, err := g.IsPathUnchanged(ctx, path)
		if err != nil {
			return StagingReport{}, err
		}
		if !unchanged {
			report.Missing = append(report.Missing, path)
		}
	}

	for path := range staged {
		if !tracked[path] {
			report.Unexpected = append(report.Unexpected, path)
		}
	}

	return report, nil
}

// ParseLedger reparses a manifest previously produced by WriteManifest.
// Round-tripping a ledger through WriteManifest and ParseLedger yields the
// same ordered sequence of changes (modulo the manifest's own entry, which
// is appended only after serialization), per spec.md §8's round-trip law.
func ParseLedger(data []byte) (Ledger, error) {
	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return Ledger{}, fmt.Errorf("tracker: parse manifest: %w", err)
	}
	return l, nil
}

// WriteManifest serializes the ledger to path (relative to the repository
// root) and records that write itself as a tracked creation, per
// spec.md's "the serialization itself is recorded as a tracked creation
// before commit". path's parent directory must already exist or be
// trackable via TrackDirectory by the caller beforehand.
func (t *Tracker) WriteManifest(relpath string) error {
	data, err := json.MarshalIndent(t.ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("tracker: marshal manifest: %w", err)
	}
	data = append(data, '\n')

	abs := filepath.Join(t.repoRoot, relpath)
	if err := os.WriteFile(abs, data, 0644); err != nil {
		return fmt.Errorf("tracker: write manifest: %w", err)
	}
	return t.TrackCreation(relpath, data)
}
