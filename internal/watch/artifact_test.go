package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestArtifactName(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)

	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "host and path",
			url:  "https://example.com/pricing/plans",
			want: "example-com_pricing_plans_20240309143005.jpg",
		},
		{
			name: "query and fragment dropped",
			url:  "https://example.com/docs?v=2#section",
			want: "example-com_docs_20240309143005.jpg",
		},
		{
			name: "percent removed",
			url:  "https://example.com/a%20b",
			want: "example-com_a20b_20240309143005.jpg",
		},
		{
			name: "bare host",
			url:  "https://example.com",
			want: "example-com_20240309143005.jpg",
		},
		{
			name: "trailing slash keeps empty segment",
			url:  "https://example.com/",
			want: "example-com__20240309143005.jpg",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ArtifactName(tc.url, ts))
		})
	}
}

func TestArtifactNameUniquePerSecond(t *testing.T) {
	t.Parallel()

	first := ArtifactName("https://example.com/a", time.Unix(1000, 0).UTC())
	second := ArtifactName("https://example.com/a", time.Unix(1001, 0).UTC())
	require.NotEqual(t, first, second)
}
