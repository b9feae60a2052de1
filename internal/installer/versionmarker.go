package installer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// versionMarkerPath is fixed per spec.md §6: a small object recording
// installer version, installed-at timestamp, and source provenance, read
// back by idempotence checks and by --check.
const versionMarkerPath = "docs/githooks/.githooks-version.json"

// VersionMarker is the on-disk shape of versionMarkerPath.
type VersionMarker struct {
	InstallerVersion string    `json:"installer_version"`
	InstalledAt      time.Time `json:"installed_at"`
	Source           string    `json:"source"`
}

// readVersionMarker returns the marker at repoRoot, (false, nil) if none
// exists, or an error if the file exists but cannot be parsed.
func readVersionMarker(repoRoot string) (VersionMarker, bool, error) {
	data, err := os.ReadFile(filepath.Join(repoRoot, versionMarkerPath))
	if err != nil {
		if os.IsNotExist(err) {
			return VersionMarker{}, false, nil
		}
		return VersionMarker{}, false, err
	}
	var m VersionMarker
	if err := json.Unmarshal(data, &m); err != nil {
		return VersionMarker{}, false, err
	}
	return m, true, nil
}

func marshalVersionMarker(m VersionMarker) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
