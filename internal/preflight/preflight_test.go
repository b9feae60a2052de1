package preflight

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

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

func withRemote(t *testing.T, dir string) {
	t.Helper()
	bare := t.TempDir()
	runGit(t, bare, "init", "--bare")
	runGit(t, dir, "remote", "add", "origin", bare)
}

func mustBranch(t *testing.T, s string) vcs.BranchName {
	t.Helper()
	b, err := vcs.NewBranchName(s)
	if err != nil {
		t.Fatalf("NewBranchName(%q): %v", s, err)
	}
	return b
}

func TestRun_CleanRepoHappyPath(t *testing.T) {
	dir := initGitRepo(t)
	withRemote(t, dir)

	repo, err := vcs.NewRepo(dir)
	if err != nil {
		t.Fatalf("NewRepo: %v", err)
	}
	g := vcs.New(repo)

	report := Run(context.Background(), repo, g, mustBranch(t, "feat/githooks-installation-20260101-000000"))
	if !report.OK() {
		t.Fatalf("expected OK report, got %+v (err=%v)", report.Checks, report.Err())
	}
	if report.StartingBranch != "main" {
		t.Fatalf("expected starting branch main, got %q", report.StartingBranch)
	}
}

func TestRun_DirtyTreeFails(t *testing.T) {
	dir := initGitRepo(t)
	withRemote(t, dir)
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("dirty\n"), 0644); err != nil {
		t.Fatal(err)
	}

	repo, err := vcs.NewRepo(dir)
	if err != nil {
		t.Fatalf("NewRepo: %v", err)
	}
	g := vcs.New(repo)

	report := Run(context.Background(), repo, g, mustBranch(t, "feat/githooks-installation-20260101-000000"))
	if report.OK() {
		t.Fatal("expected dirty tree to fail preflight")
	}
	if report.Err() == nil {
		t.Fatal("expected non-nil Err()")
	}
}

func TestRun_SensitiveFileAtRootFails(t *testing.T) {
	dir := initGitRepo(t)
	withRemote(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("API_KEY=secret\n"), 0644); err != nil {
		t.Fatal(err)
	}

	repo, err := vcs.NewRepo(dir)
	if err != nil {
		t.Fatalf("NewRepo: %v", err)
	}
	g := vcs.New(repo)

	report := Run(context.Background(), repo, g, mustBranch(t, "feat/githooks-installation-20260101-000000"))
	if report.OK() {
		t.Fatal("expected .env at root to fail preflight")
	}
	found := false
	for _, c := range report.Checks {
		if c.Name == "no_sensitive_files_at_root" && !c.Passed {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected no_sensitive_files_at_root to fail, got %+v", report.Checks)
	}
}

func TestRun_BranchCollisionFails(t *testing.T) {
	dir := initGitRepo(t)
	withRemote(t, dir)
	runGit(t, dir, "branch", "feat/githooks-installation-20260101-000000")

	repo, err := vcs.NewRepo(dir)
	if err != nil {
		t.Fatalf("NewRepo: %v", err)
	}
	g := vcs.New(repo)

	report := Run(context.Background(), repo, g, mustBranch(t, "feat/githooks-installation-20260101-000000"))
	if report.OK() {
		t.Fatal("expected branch collision to fail preflight")
	}
}

func TestRun_NoRemoteFails(t *testing.T) {
	dir := initGitRepo(t)

	repo, err := vcs.NewRepo(dir)
	if err != nil {
		t.Fatalf("NewRepo: %v", err)
	}
	g := vcs.New(repo)

	report := Run(context.Background(), repo, g, mustBranch(t, "feat/githooks-installation-20260101-000000"))
	if report.OK() {
		t.Fatal("expected missing remote to fail preflight")
	}
}
