// Package prcreate implements the Remote PR Opener (C5): a best-effort
// attempt to open a pull request for a pushed feature branch, using
// whichever authentication method is available. Nothing in this package
// ever fails the installer's transaction; every error it returns is meant
// to be surfaced as a warning by the driver.
package prcreate

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/boshu2/githooks-installer/internal/redact"
	"github.com/boshu2/githooks-installer/internal/vcs"
)

// Request describes one pull-request attempt.
type Request struct {
	Repo       vcs.Repo
	HeadBranch vcs.BranchName
	BaseBranch string
	Title      string
	Body       string
}

// Result is the outcome of a successful PR creation.
type Result struct {
	URL string
}

// Opener attempts to create a pull request. When no authentication is
// available, NewOpener returns no Opener at all and the driver skips PR
// creation.
type Opener interface {
	Open(ctx context.Context, req Request) (Result, error)
}

// AuthKind tags which concrete AuthMethod variant is in use.
type AuthKind int

const (
	AuthNone AuthKind = iota
	AuthBearerToken
	AuthDelegatedCLI
)

// AuthMethod is the tagged union of spec.md §3: {None, BearerToken(secret),
// DelegatedCLI}. Token is populated only for AuthBearerToken; CLIPath only
// for AuthDelegatedCLI.
type AuthMethod struct {
	Kind    AuthKind
	Token   string
	CLIPath string
}

// ResolveAuth derives an AuthMethod once, per spec.md §4.5's ordered probe:
// GITHUB_TOKEN, then GH_TOKEN, then a delegated gh CLI on PATH, else None.
// The token itself is never returned in a loggable form elsewhere in this
// package; callers that log AuthMethod must report only its Kind and the
// length of Token.
func ResolveAuth() AuthMethod {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return AuthMethod{Kind: AuthBearerToken, Token: token}
	}
	if token := os.Getenv("GH_TOKEN"); token != "" {
		return AuthMethod{Kind: AuthBearerToken, Token: token}
	}
	if path, err := exec.LookPath("gh"); err == nil {
		if ghAuthenticated(path) {
			return AuthMethod{Kind: AuthDelegatedCLI, CLIPath: path}
		}
	}
	return AuthMethod{Kind: AuthNone}
}

func ghAuthenticated(path string) bool {
	cmd := exec.Command(path, "auth", "status")
	return cmd.Run() == nil
}

// NewOpener returns the Opener matching auth's kind, or nil for AuthNone.
// remoteURL is the repository's origin URL, resolved by the caller via
// vcs.Git.RemoteURL.
func NewOpener(auth AuthMethod, remoteURL string) Opener {
	switch auth.Kind {
	case AuthBearerToken:
		return &GitHubAPI{Token: auth.Token, RemoteURL: remoteURL}
	case AuthDelegatedCLI:
		return &DelegatedCLI{Path: auth.CLIPath}
	default:
		return nil
	}
}

// defaultTitle and defaultBody are the fixed title/body template of
// spec.md §4.5; the body's two %s placeholders (head branch, then base
// branch) are expanded by FillTemplate.
const (
	defaultTitle = "feat(installer): install git hooks with automated file tracking"
	defaultBody  = `This pull request was opened automatically after a Safe Installation
Transaction pushed branch %s onto %s.

Every file in this change was recorded by the file tracker before
staging, and the staging area was validated against that record before
commit. Review as you would any automated change.`
)

// FillTemplate renders the fixed PR title/body template for req, used by
// both Opener implementations so their wording stays identical regardless
// of transport.
func FillTemplate(req Request) (title, body string) {
	t := req.Title
	if t == "" {
		t = defaultTitle
	}
	b := req.Body
	if b == "" {
		b = fmt.Sprintf(defaultBody, req.HeadBranch.String(), req.BaseBranch)
	}
	return t, b
}

// sanitize applies internal/redact to err's message before it is allowed
// to propagate, satisfying spec.md §4.5's "never logs the secret" rule.
func sanitize(err error, secrets ...string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s", redact.Message(err.Error(), secrets...))
}
