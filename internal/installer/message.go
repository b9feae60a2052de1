package installer

import (
	"fmt"
	"strings"
	"time"
)

// securityAssertionBlock is the fixed trailing block required by spec.md
// §6: a templated commit message with a conventional-commit header, counts,
// elapsed time, and a reviewer-facing assertion that the commit is
// machine-generated and limited to tracked installer artifacts.
const securityAssertionBlock = `This commit was produced by the githooks installer's Safe Installation
Transaction. Every path listed above was recorded by the file tracker
before staging; the staging area was validated to contain exactly that
set and nothing else. No file authored by a repository contributor was
read, modified, or committed by this process.

Treat this commit as machine-generated and review it as you would any
automated change: confirm the listed
files match what you expect from a hooks installation, and nothing more.`

// BuildCommitMessage renders the fixed commit-message template of
// spec.md §6 as a pure function of the installation's outcome, so it is
// unit-testable without a subprocess. createdFiles is expected in ledger
// order.
func BuildCommitMessage(created, modified, directories int, elapsed time.Duration, manifestPath string, createdFiles []string) string {
	var b strings.Builder

	b.WriteString("feat(installer): install git hooks with automated file tracking\n\n")
	fmt.Fprintf(&b, "Files created: %d\n", created)
	fmt.Fprintf(&b, "Files modified: %d\n", modified)
	fmt.Fprintf(&b, "Directories created: %d\n", directories)
	fmt.Fprintf(&b, "Elapsed: %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "Manifest: %s\n\n", manifestPath)

	if len(createdFiles) > 0 {
		b.WriteString("Created files:\n")
		for _, f := range createdFiles {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}

	b.WriteString(securityAssertionBlock)
	b.WriteString("\n")

	return b.String()
}
