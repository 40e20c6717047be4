package watch

import (
	"strings"
	"time"
)

// artifactTimeLayout gives second granularity; uniqueness of artifact names
// relies on it.
const artifactTimeLayout = "20060102150405"

// ArtifactName derives the storage object name for a capture of rawURL
// taken at ts. The convention is load-bearing for compatibility with
// existing stores: fragment and query dropped, dots replaced with dashes,
// percent signs removed, the scheme prefix dropped, remaining path
// segments (normalized host first) joined with underscores, then a compact
// timestamp and a .jpg extension.
func ArtifactName(rawURL string, ts time.Time) string {
	trimmed := rawURL
	if i := strings.Index(trimmed, "#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if i := strings.Index(trimmed, "?"); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = strings.ReplaceAll(trimmed, ".", "-")
	trimmed = strings.ReplaceAll(trimmed, "%", "")

	parts := strings.Split(trimmed, "/")
	// "scheme:" and the empty segment of "//" precede the host.
	if len(parts) > 2 {
		parts = parts[2:]
	}
	return strings.Join(parts, "_") + "_" + ts.Format(artifactTimeLayout) + ".jpg"
}
