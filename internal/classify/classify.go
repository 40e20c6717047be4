// Package classify decides whether a fresh snapshot represents a real
// change against the most recent log entry for a page.
//
// Content comparison is by checksum over the fully rendered markup, so
// non-deterministic page elements (ads, cookie banners, timestamps) are a
// known false-positive source. That is an accepted limitation; any fix
// (e.g. DOM normalization before hashing) is a deliberate policy change,
// not a bug fix to slip in here.
package classify

import "github.com/pagewatch/pagewatch/internal/watch"

// Result is the classification outcome for one capture.
type Result int

const (
	// Baseline means there is no prior entry to compare against: the
	// snapshot is log-worthy but must not trigger a notification.
	Baseline Result = iota
	// Changed means at least one tracked field differs from the latest entry.
	Changed
	// Unchanged means no tracked field differs.
	Unchanged
)

// String returns the lowercase result name for logs and metric labels.
func (r Result) String() string {
	switch r {
	case Baseline:
		return "baseline"
	case Changed:
		return "changed"
	case Unchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Classify compares snap against latest using the page's tracked-field
// configuration. Pure decision function; it never fails. Untracked fields
// are ignored even when they differ.
func Classify(page watch.Webpage, latest *watch.CheckLogEntry, snap watch.PageSnapshot) Result {
	if latest == nil {
		return Baseline
	}
	if page.Tracked.StatusCode && latest.StatusCode != snap.StatusCode {
		return Changed
	}
	if page.Tracked.Title && latest.PageTitle != snap.Title {
		return Changed
	}
	if page.Tracked.Content && latest.PageChecksum != snap.ContentChecksum {
		return Changed
	}
	return Unchanged
}
