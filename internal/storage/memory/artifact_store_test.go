package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArtifactStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewArtifactStore()

	require.NoError(t, s.Upload(ctx, "b.jpg", []byte("bbb"), "image/jpeg"))
	require.NoError(t, s.Upload(ctx, "a.jpg", []byte("aaa"), "image/jpeg"))

	names, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a.jpg", "b.jpg"}, names)

	data, ok := s.Get("a.jpg")
	require.True(t, ok)
	require.Equal(t, []byte("aaa"), data)

	require.NoError(t, s.Delete(ctx, "a.jpg"))
	names, err = s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"b.jpg"}, names)
}

func TestArtifactStoreDeleteMissing(t *testing.T) {
	t.Parallel()

	s := NewArtifactStore()
	require.Error(t, s.Delete(context.Background(), "missing.jpg"))
}

func TestArtifactStoreUploadRequiresName(t *testing.T) {
	t.Parallel()

	s := NewArtifactStore()
	require.Error(t, s.Upload(context.Background(), "", []byte("x"), ""))
}
