package md5

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	t.Parallel()

	h := New()
	got, err := h.Hash([]byte("<html><body>hello</body></html>"))
	require.NoError(t, err)
	require.Len(t, got, 32)

	again, err := h.Hash([]byte("<html><body>hello</body></html>"))
	require.NoError(t, err)
	require.Equal(t, got, again)

	other, err := h.Hash([]byte("<html><body>changed</body></html>"))
	require.NoError(t, err)
	require.NotEqual(t, got, other)
}
