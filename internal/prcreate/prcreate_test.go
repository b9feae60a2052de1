package prcreate

import (
	"strings"
	"testing"

	"github.com/boshu2/githooks-installer/internal/vcs"
)

func TestResolveAuthPrefersGithubToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_one")
	t.Setenv("GH_TOKEN", "ghp_two")

	auth := ResolveAuth()
	if auth.Kind != AuthBearerToken {
		t.Fatalf("expected AuthBearerToken, got %v", auth.Kind)
	}
	if auth.Token != "ghp_one" {
		t.Fatalf("expected GITHUB_TOKEN to win over GH_TOKEN, got %q", auth.Token)
	}
}

func TestResolveAuthFallsBackToGhToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "ghp_two")

	auth := ResolveAuth()
	if auth.Kind != AuthBearerToken || auth.Token != "ghp_two" {
		t.Fatalf("expected GH_TOKEN fallback, got %+v", auth)
	}
}

func TestFillTemplateExpandsPlaceholders(t *testing.T) {
	branch, err := vcs.NewBranchName("feat/githooks-installation-20260101-000000")
	if err != nil {
		t.Fatalf("NewBranchName: %v", err)
	}
	req := Request{HeadBranch: branch, BaseBranch: "main"}
	title, body := FillTemplate(req)
	if title == "" {
		t.Fatal("expected non-empty title")
	}
	if !strings.Contains(body, branch.String()) || !strings.Contains(body, "main") {
		t.Fatalf("expected body to mention branch and base, got %q", body)
	}
}

func TestOwnerRepoFromURL(t *testing.T) {
	cases := map[string][2]string{
		"git@github.com:acme/widgets.git":  {"acme", "widgets"},
		"https://github.com/acme/widgets":  {"acme", "widgets"},
		"https://github.com/acme/widgets.git": {"acme", "widgets"},
	}
	for url, want := range cases {
		owner, repo, err := ownerRepoFromURL(url)
		if err != nil {
			t.Fatalf("ownerRepoFromURL(%q): %v", url, err)
		}
		if owner != want[0] || repo != want[1] {
			t.Fatalf("ownerRepoFromURL(%q) = %q, %q; want %q, %q", url, owner, repo, want[0], want[1])
		}
	}
}

func TestSanitizeRedactsToken(t *testing.T) {
	err := sanitize(errString("token ghp_secret123 rejected"), "ghp_secret123")
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	if strings.Contains(err.Error(), "ghp_secret123") {
		t.Fatalf("token leaked into sanitized error: %q", err.Error())
	}
}

type errString string

func (e errString) Error() string { return string(e) }
