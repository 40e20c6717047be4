// Package reconcile repairs drift between the artifact store and the check
// log: artifacts that no log row references get deleted. Drift accumulates
// from tolerated failures elsewhere (upload succeeded but the log insert
// did not, retention deletes that failed, crashed cycles).
package reconcile

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pagewatch/pagewatch/internal/metrics"
	"github.com/pagewatch/pagewatch/internal/watch"
)

// placeholderObject is the bucket keep-alive sentinel some consoles create
// in otherwise-empty prefixes. Never an orphan.
const placeholderObject = ".emptyFolderPlaceholder"

// Reconciler periodically sweeps the artifact store for orphans. It runs
// independently of the poll scheduler and shares no state with it beyond
// the store and the repository.
type Reconciler struct {
	repo     watch.Repository
	store    watch.ArtifactStore
	interval time.Duration
	logger   *zap.Logger
}

// New constructs a Reconciler sweeping every interval.
func New(repo watch.Repository, store watch.ArtifactStore, interval time.Duration, logger *zap.Logger) *Reconciler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Reconciler{repo: repo, store: store, interval: interval, logger: logger}
}

// Run blocks, sweeping on a fixed interval until the context finishes. The
// first sweep runs after one full interval, not at startup, so a crash
// loop cannot turn into a delete loop.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Reconcile(ctx); err != nil {
				r.logger.Error("reconcile sweep failed", zap.Error(err))
			}
		}
	}
}

// Reconcile performs one sweep: list the store, list every artifact_ref in
// the log, delete the difference. Referenced-but-missing artifacts are the
// other drift direction; those are only counted and logged, the log rows
// that reference them are immutable.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	stored, err := r.store.List(ctx)
	if err != nil {
		return err
	}
	refs, err := r.repo.ListAllLogArtifactRefs(ctx)
	if err != nil {
		return err
	}

	referenced := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		referenced[ref] = struct{}{}
	}

	var orphans []string
	for _, name := range stored {
		if isSentinel(name) {
			continue
		}
		if _, ok := referenced[name]; !ok {
			orphans = append(orphans, name)
		}
	}
	metrics.ObserveOrphansFound(len(orphans))
	if len(orphans) == 0 {
		return nil
	}
	r.logger.Info("deleting orphaned artifacts", zap.Int("count", len(orphans)))

	for _, name := range orphans {
		if err := r.store.Delete(ctx, name); err != nil {
			r.logger.Warn("delete orphaned artifact failed",
				zap.String("artifact", name),
				zap.Error(err),
			)
			continue
		}
		metrics.ObserveArtifactDeleted("orphan")
	}
	return nil
}

// isSentinel reports whether name is infrastructure rather than an
// artifact: the placeholder object or a bare directory marker.
func isSentinel(name string) bool {
	base := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		base = name[i+1:]
	}
	return base == placeholderObject || strings.HasSuffix(name, "/")
}
