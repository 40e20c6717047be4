// Package retain curates the artifact store's footprint after each check:
// at most the two most recent artifacts per page survive, and unchanged
// captures never accumulate storage at all.
package retain

import (
	"context"

	"go.uber.org/zap"

	"github.com/pagewatch/pagewatch/internal/metrics"
	"github.com/pagewatch/pagewatch/internal/watch"
)

// retentionWindow is how many recent entries are fetched on a change: if
// the window is full, the oldest entry's artifact is deleted, leaving
// artifacts for the newest two checks.
const retentionWindow = 3

// Manager deletes artifacts the retention policy no longer covers. Delete
// failures are logged and non-fatal; log rows are never rolled back for
// them, the reconciler repairs the drift later.
type Manager struct {
	repo   watch.Repository
	store  watch.ArtifactStore
	logger *zap.Logger
}

// New constructs a Manager.
func New(repo watch.Repository, store watch.ArtifactStore, logger *zap.Logger) *Manager {
	return &Manager{repo: repo, store: store, logger: logger}
}

// OnUnchanged deletes the just-captured artifact. A no-change result must
// not accumulate storage.
func (m *Manager) OnUnchanged(ctx context.Context, artifactRef string) {
	if artifactRef == "" {
		return
	}
	if err := m.store.Delete(ctx, artifactRef); err != nil {
		m.logger.Warn("delete unchanged artifact failed",
			zap.String("artifact", artifactRef),
			zap.Error(err),
		)
		return
	}
	metrics.ObserveArtifactDeleted("unchanged")
}

// OnChanged trims the page's artifact history after a change-driven log
// write: if at least three entries exist, the third-most-recent one's
// artifact is deleted. Log rows themselves are retained for history.
func (m *Manager) OnChanged(ctx context.Context, webpageID string) {
	entries, err := m.repo.RecentLogEntries(ctx, webpageID, retentionWindow)
	if err != nil {
		m.logger.Warn("list recent log entries failed",
			zap.String("webpage_id", webpageID),
			zap.Error(err),
		)
		return
	}
	if len(entries) < retentionWindow {
		return
	}
	oldest := entries[retentionWindow-1]
	if oldest.ArtifactRef == "" {
		return
	}
	if err := m.store.Delete(ctx, oldest.ArtifactRef); err != nil {
		m.logger.Warn("delete retained artifact failed",
			zap.String("webpage_id", webpageID),
			zap.String("artifact", oldest.ArtifactRef),
			zap.Error(err),
		)
		return
	}
	metrics.ObserveArtifactDeleted("retention")
}
