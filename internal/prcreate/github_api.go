package prcreate

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// GitHubAPI is the bearer-token strategy of spec.md §4.5: a direct REST
// call to the hosting provider, via google/go-github over an
// oauth2.StaticTokenSource. HTTP_PROXY/HTTPS_PROXY/NO_PROXY are honored
// because it never replaces http.DefaultTransport.
type GitHubAPI struct {
	Token string

	// RemoteURL is resolved by the driver via vcs.Git.RemoteURL("origin")
	// and supplied here rather than re-derived, keeping this package free
	// of any vcs.Git dependency beyond the Request type.
	RemoteURL string
}

var remoteURLPattern = regexp.MustCompile(`github\.com[:/]([^/]+)/(.+?)(\.git)?$`)

func ownerRepoFromURL(url string) (owner, repo string, err error) {
	m := remoteURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", fmt.Errorf("could not parse owner/repo from remote URL")
	}
	return m[1], m[2], nil
}

// Open creates a pull request from req.HeadBranch into req.BaseBranch via
// the GitHub REST API. Any HTTP error is sanitized before it is returned.
func (g *GitHubAPI) Open(ctx context.Context, req Request) (Result, error) {
	owner, repo, err := ownerRepoFromURL(g.RemoteURL)
	if err != nil {
		return Result{}, sanitize(err, g.Token)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: g.Token})
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	title, body := FillTemplate(req)
	head := req.HeadBranch.String()
	base := req.BaseBranch

	pr, _, err := client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: &title,
		Body:  &body,
		Head:  &head,
		Base:  &base,
	})
	if err != nil {
		return Result{}, sanitize(err, g.Token)
	}
	return Result{URL: pr.GetHTMLURL()}, nil
}
