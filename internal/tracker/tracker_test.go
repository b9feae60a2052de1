package tracker

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/boshu2/githooks-installer/internal/vcs"
)

func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0644); err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, "add", "README.md")
	runGit(t, dir, "commit", "-m", "initial")
	return dir
}

func runGit(t *testing.T, cwd string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = cwd
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func TestTrackCreationAndCaps(t *testing.T) {
	dir := initGitRepo(t)
	tr, err := NewTracker(dir, 5*time.Second, WithCaps(2, 1024))
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	defer tr.Close()

	if err := tr.TrackCreation("a.txt", []byte("hello")); err != nil {
		t.Fatalf("track a.txt: %v", err)
	}
	if err := tr.TrackCreation("b.txt", []byte("world")); err != nil {
		t.Fatalf("track b.txt: %v", err)
	}
	if err := tr.TrackCreation("c.txt", []byte("overflow")); !errors.Is(err, ErrResourceCapExceeded) {
		t.Fatalf("expected ErrResourceCapExceeded, got %v", err)
	}
}

func TestTrackCreationDuplicateFails(t *testing.T) {
	dir := initGitRepo(t)
	tr, err := NewTracker(dir, 5*time.Second)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	defer tr.Close()

	if err := tr.TrackCreation("a.txt", []byte("hello")); err != nil {
		t.Fatalf("track a.txt: %v", err)
	}
	if err := tr.TrackCreation("a.txt", []byte("again")); !errors.Is(err, ErrAlreadyTracked) {
		t.Fatalf("expected ErrAlreadyTracked, got %v", err)
	}
}

func TestTrackCreationRejectsEscape(t *testing.T) {
	dir := initGitRepo(t)
	tr, err := NewTracker(dir, 5*time.Second)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	defer tr.Close()

	if err := tr.TrackCreation("../escape.txt", []byte("x")); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestTrackCreationRejectsExcludedPatterns(t *testing.T) {
	dir := initGitRepo(t)
	tr, err := NewTracker(dir, 5*time.Second)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	defer tr.Close()

	cases := []string{
		"__pycache__/mod.pyc",
		"pkg/cache.pyc",
		".env",
		"sub/.hidden",
	}
	for _, c := range cases {
		if err := tr.TrackCreation(c, []byte("x")); !errors.Is(err, ErrExcludedPattern) {
			t.Errorf("TrackCreation(%q): expected ErrExcludedPattern, got %v", c, err)
		}
	}

	// Allow-listed dotfiles must pass.
	if err := tr.TrackCreation(".gitignore", []byte("*.tmp\n")); err != nil {
		t.Errorf("TrackCreation(.gitignore): unexpected error: %v", err)
	}
}

func TestLockContention(t *testing.T) {
	dir := initGitRepo(t)
	first, err := NewTracker(dir, 5*time.Second)
	if err != nil {
		t.Fatalf("first NewTracker: %v", err)
	}
	defer first.Close()

	_, err = NewTracker(dir, 300*time.Millisecond)
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout while lock held, got %v", err)
	}
}

func TestValidateStagingMissingAndUnexpected(t *testing.T) {
	dir := initGitRepo(t)
	tr, err := NewTracker(dir, 5*time.Second)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	defer tr.Close()

	if err := os.WriteFile(filepath.Join(dir, "tracked.txt"), []byte("tracked"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := tr.TrackCreation("tracked.txt", []byte("tracked")); err != nil {
		t.Fatalf("track: %v", err)
	}

	// Unexpected: staged but never tracked.
	if err := os.WriteFile(filepath.Join(dir, "rogue.txt"), []byte("rogue"), 0644); err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, "add", "rogue.txt")

	repo, err := vcs.NewRepo(dir)
	if err != nil {
		t.Fatalf("NewRepo: %v", err)
	}
	g := vcs.New(repo)
	ctx := context.Background()

	report, err := tr.ValidateStaging(ctx, g)
	if err != nil {
		t.Fatalf("ValidateStaging: %v", err)
	}
	if report.OK() {
		t.Fatal("expected a non-OK report")
	}
	if len(report.Missing) != 1 || report.Missing[0] != "tracked.txt" {
		t.Fatalf("expected tracked.txt missing, got %v", report.Missing)
	}
	if len(report.Unexpected) != 1 || report.Unexpected[0] != "rogue.txt" {
		t.Fatalf("expected rogue.txt unexpected, got %v", report.Unexpected)
	}

	if err := g.StagePath(ctx, "tracked.txt"); err != nil {
		t.Fatalf("StagePath: %v", err)
	}
	report, err = tr.ValidateStaging(ctx, g)
	if err != nil {
		t.Fatalf("ValidateStaging after staging: %v", err)
	}
	if len(report.Missing) != 0 {
		t.Fatalf("expected no missing paths, got %v", report.Missing)
	}
}

func TestValidateStagingIgnoresUnchangedPaths(t *testing.T) {
	dir := initGitRepo(t)
	tr, err := NewTracker(dir, 5*time.Second)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	defer tr.Close()

	// README.md already exists, unmodified: tracking it as "modified"
	// without re-staging must be reported as OK via the unchanged policy.
	content, err := os.ReadFile(filepath.Join(dir, "README.md"))
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.TrackModification("README.md", content); err != nil {
		t.Fatalf("TrackModification: %v", err)
	}

	repo, err := vcs.NewRepo(dir)
	if err != nil {
		t.Fatalf("NewRepo: %v", err)
	}
	g := vcs.New(repo)

	report, err := tr.ValidateStaging(context.Background(), g)
	if err != nil {
		t.Fatalf("ValidateStaging: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected OK report for unchanged tracked path, got %+v", report)
	}
}

func TestWriteManifestRoundTrip(t *testing.T) {
	dir := initGitRepo(t)
	tr, err := NewTracker(dir, 5*time.Second)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	defer tr.Close()

	if err := os.MkdirAll(filepath.Join(dir, "docs", "githooks"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docs", "githooks", "hook.sh"), []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := tr.TrackCreation("docs/githooks/hook.sh", []byte("#!/bin/sh\n")); err != nil {
		t.Fatalf("track hook: %v", err)
	}

	manifestRel := "docs/githooks/.installation-manifest.json"
	if err := tr.WriteManifest(manifestRel); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	before := tr.Ledger()
	data, err := os.ReadFile(filepath.Join(dir, manifestRel))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	reloaded, err := ParseLedger(data)
	if err != nil {
		t.Fatalf("ParseLedger: %v", err)
	}

	// The manifest on disk was serialized before its own entry was appended,
	// so it must have exactly one fewer change than the in-memory ledger.
	if len(reloaded.Changes) != len(before.Changes)-1 {
		t.Fatalf("expected manifest to list %d changes, got %d", len(before.Changes)-1, len(reloaded.Changes))
	}
	if reloaded.Changes[0].Path != "docs/githooks/hook.sh" {
		t.Fatalf("unexpected first change: %+v", reloaded.Changes[0])
	}
}
