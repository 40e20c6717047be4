package reconcile

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pagewatch/pagewatch/internal/metrics"
	"github.com/pagewatch/pagewatch/internal/storage/memory"
	"github.com/pagewatch/pagewatch/internal/watch"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type refRepo struct {
	refs []string
}

func (r *refRepo) ListUncheckedWebpages(context.Context) ([]watch.Webpage, error) { return nil, nil }
func (r *refRepo) ListDueWebpages(context.Context) ([]watch.Webpage, error)       { return nil, nil }
func (r *refRepo) InsertLogEntry(context.Context, watch.CheckLogEntry) error      { return nil }
func (r *refRepo) CountLogEntries(context.Context, string) (int, error)           { return 0, nil }
func (r *refRepo) RecentLogEntries(context.Context, string, int) ([]watch.CheckLogEntry, error) {
	return nil, nil
}

func (r *refRepo) ListAllLogArtifactRefs(context.Context) ([]string, error) {
	return r.refs, nil
}

func TestReconcileDeletesOrphans(t *testing.T) {
	ctx := context.Background()
	store := memory.NewArtifactStore()
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		require.NoError(t, store.Upload(ctx, name, []byte("jpeg"), "image/jpeg"))
	}
	repo := &refRepo{refs: []string{"a.jpg"}}

	r := New(repo, store, time.Minute, zap.NewNop())
	require.NoError(t, r.Reconcile(ctx))

	names, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a.jpg"}, names)
}

func TestReconcileSkipsSentinels(t *testing.T) {
	ctx := context.Background()
	store := memory.NewArtifactStore()
	for _, name := range []string{".emptyFolderPlaceholder", "archive/.emptyFolderPlaceholder", "archive/", "orphan.jpg"} {
		require.NoError(t, store.Upload(ctx, name, []byte("x"), "image/jpeg"))
	}
	repo := &refRepo{}

	r := New(repo, store, time.Minute, zap.NewNop())
	require.NoError(t, r.Reconcile(ctx))

	names, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{".emptyFolderPlaceholder", "archive/", "archive/.emptyFolderPlaceholder"}, names)
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewArtifactStore()
	require.NoError(t, store.Upload(ctx, "kept.jpg", []byte("jpeg"), "image/jpeg"))
	require.NoError(t, store.Upload(ctx, "orphan.jpg", []byte("jpeg"), "image/jpeg"))
	repo := &refRepo{refs: []string{"kept.jpg", "referenced-but-missing.jpg"}}

	r := New(repo, store, time.Minute, zap.NewNop())
	require.NoError(t, r.Reconcile(ctx))
	require.NoError(t, r.Reconcile(ctx))

	names, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"kept.jpg"}, names)
}
