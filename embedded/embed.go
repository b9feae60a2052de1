// Package embedded carries the default installable payload tree as a
// go:embed filesystem, the fallback source used when --source is not
// given. Every file under payload/ is opaque per spec.md §1: this package
// only governs what gets laid out where, never what the payload does once
// installed.
package embedded

import (
	"embed"
	"io/fs"
)

//go:embed payload
var payloadRoot embed.FS

// PayloadFS returns the payload tree rooted at its own top-level
// directories (scripts/, docs/, developer-setup/, ci/, wrappers/), the
// shape internal/installer.BuildPlan expects to walk.
func PayloadFS() fs.FS {
	sub, err := fs.Sub(payloadRoot, "payload")
	if err != nil {
		// payload is embedded at build time; a failure here means the
		// embed directive itself is broken, not a runtime condition.
		panic(err)
	}
	return sub
}
