package installer

import (
	"io/fs"
	"path"
	"strings"
)

// EntryKind classifies a payload entry the way spec.md §3's InstallationPlan
// does: {hook, script, doc, setup, wrapper, manifest}.
type EntryKind string

const (
	KindHook     EntryKind = "hook"
	KindScript   EntryKind = "script"
	KindDoc      EntryKind = "doc"
	KindSetup    EntryKind = "setup"
	KindWrapper  EntryKind = "wrapper"
	KindManifest EntryKind = "manifest"
)

// Executable reports whether files of this kind should receive the
// executable bit when written, per spec.md §4.4's POPULATED transition.
// Setup scripts are executable too: the post-commit hook in the payload
// invokes developer-setup/githooks-doc-gen directly.
func (k EntryKind) Executable() bool {
	return k == KindHook || k == KindWrapper || k == KindSetup
}

// PlanEntry is one (source, target, kind) triple, immutable once the Plan
// is built.
type PlanEntry struct {
	Source string // path within the payload FS
	Target string // path relative to the repository root
	Kind   EntryKind
}

// Plan is the ordered, immutable InstallationPlan of spec.md §3. Order is
// directory-walk order, stable across runs of the same payload tree.
type Plan struct {
	Entries []PlanEntry
}

// topLevelKind maps a payload tree's top-level directory name onto the
// EntryKind of everything beneath it. "wrappers" is the one directory
// whose entries are relocated to the repository root rather than kept at
// their payload-relative path, since spec.md §6 places wrapper scripts
// there rather than nested under a wrappers/ directory.
var topLevelKind = map[string]EntryKind{
	"scripts":         KindHook,
	"docs":            KindDoc,
	"developer-setup": KindSetup,
	"ci":              KindScript,
	"wrappers":        KindWrapper,
}

// BuildPlan walks payload and classifies every regular file by its
// top-level directory. When includeCI is false, everything under "ci/" is
// skipped entirely, realizing the --no-ci flag of spec.md §6.
func BuildPlan(payload fs.FS, includeCI bool) (Plan, error) {
	var plan Plan
	err := fs.WalkDir(payload, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		top := strings.SplitN(p, "/", 2)[0]
		if top == "ci" && !includeCI {
			return nil
		}
		kind, ok := topLevelKind[top]
		if !ok {
			return nil
		}
		target := p
		if kind == KindWrapper {
			target = path.Base(p)
		}
		plan.Entries = append(plan.Entries, PlanEntry{Source: p, Target: target, Kind: kind})
		return nil
	})
	if err != nil {
		return Plan{}, err
	}
	return plan, nil
}
