package prcreate

import (
	"context"
	"regexp"
	"strings"

	gh "github.com/cli/go-gh/v2"
)

// DelegatedCLI is the fallback strategy of spec.md §4.5: shell out to an
// already-authenticated gh binary on PATH rather than hold a token
// in-process at all.
type DelegatedCLI struct {
	Path string
}

var prURLPattern = regexp.MustCompile(`https://\S+`)

// Open runs `gh pr create` for req's branches. gh's own authentication
// state is used; no secret ever passes through this process's memory.
func (d *DelegatedCLI) Open(ctx context.Context, req Request) (Result, error) {
	title, body := FillTemplate(req)

	stdout, stderr, err := gh.ExecContext(ctx,
		"pr", "create",
		"--head", req.HeadBranch.String(),
		"--base", req.BaseBranch,
		"--title", title,
		"--body", body,
	)
	if err != nil {
		return Result{}, sanitize(combinedError(err, stderr.String()))
	}

	url := strings.TrimSpace(prURLPattern.FindString(stdout.String()))
	return Result{URL: url}, nil
}

func combinedError(err error, stderr string) error {
	if strings.TrimSpace(stderr) == "" {
		return err
	}
	return &cliError{cause: err, stderr: strings.TrimSpace(stderr)}
}

type cliError struct {
	cause  error
	stderr string
}

func (e *cliError) Error() string {
	return e.cause.Error() + ": " + e.stderr
}

func (e *cliError) Unwrap() error { return e.cause }
