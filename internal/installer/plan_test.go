package installer

import (
	"testing"
	"testing/fstest"
)

func testPayload() fstest.MapFS {
	return fstest.MapFS{
		"scripts/post-commit/post-commit":        &fstest.MapFile{Data: []byte("#!/bin/sh\n")},
		"docs/githooks/README.md":                &fstest.MapFile{Data: []byte("# docs\n")},
		"developer-setup/githooks-doc-gen":       &fstest.MapFile{Data: []byte("#!/bin/sh\n")},
		"ci/githooks-check.yml":                  &fstest.MapFile{Data: []byte("name: check\n")},
		"wrappers/githooks":                      &fstest.MapFile{Data: []byte("#!/bin/sh\n")},
	}
}

func TestBuildPlanClassifiesByTopLevelDir(t *testing.T) {
	plan, err := BuildPlan(testPayload(), true)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	byTarget := map[string]EntryKind{}
	for _, e := range plan.Entries {
		byTarget[e.Target] = e.Kind
	}
	want := map[string]EntryKind{
		"scripts/post-commit/post-commit":  KindHook,
		"docs/githooks/README.md":          KindDoc,
		"developer-setup/githooks-doc-gen": KindSetup,
		"ci/githooks-check.yml":            KindScript,
		"githooks":                         KindWrapper,
	}
	for target, kind := range want {
		got, ok := byTarget[target]
		if !ok {
			t.Fatalf("expected target %q in plan, got %+v", target, byTarget)
		}
		if got != kind {
			t.Fatalf("target %q: expected kind %q, got %q", target, kind, got)
		}
	}
}

func TestBuildPlanExcludesCIWhenDisabled(t *testing.T) {
	plan, err := BuildPlan(testPayload(), false)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	for _, e := range plan.Entries {
		if e.Kind == KindScript {
			t.Fatalf("expected no ci entries, found %+v", e)
		}
	}
}

func TestWrapperEntriesRelocateToRepoRoot(t *testing.T) {
	plan, err := BuildPlan(testPayload(), true)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	for _, e := range plan.Entries {
		if e.Kind == KindWrapper && e.Target != "githooks" {
			t.Fatalf("expected wrapper target at repo root, got %q", e.Target)
		}
	}
}

func TestEntryKindExecutable(t *testing.T) {
	if !KindHook.Executable() {
		t.Fatal("expected KindHook to be executable")
	}
	if !KindWrapper.Executable() {
		t.Fatal("expected KindWrapper to be executable")
	}
	if KindDoc.Executable() {
		t.Fatal("expected KindDoc to not be executable")
	}
}
