package classify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagewatch/pagewatch/internal/watch"
)

func allTracked() watch.TrackedFields {
	return watch.TrackedFields{StatusCode: true, Title: true, Content: true}
}

func TestClassifyBaseline(t *testing.T) {
	t.Parallel()

	page := watch.Webpage{ID: "w1", Tracked: allTracked()}
	got := Classify(page, nil, watch.PageSnapshot{StatusCode: 200})
	require.Equal(t, Baseline, got)
}

func TestClassifyTrackedFields(t *testing.T) {
	t.Parallel()

	latest := &watch.CheckLogEntry{
		StatusCode:   200,
		PageTitle:    "Pricing",
		PageChecksum: "aaaa",
	}
	same := watch.PageSnapshot{StatusCode: 200, Title: "Pricing", ContentChecksum: "aaaa"}

	tests := []struct {
		name    string
		tracked watch.TrackedFields
		snap    watch.PageSnapshot
		want    Result
	}{
		{
			name:    "nothing differs",
			tracked: allTracked(),
			snap:    same,
			want:    Unchanged,
		},
		{
			name:    "status differs and tracked",
			tracked: allTracked(),
			snap:    watch.PageSnapshot{StatusCode: 404, Title: "Pricing", ContentChecksum: "aaaa"},
			want:    Changed,
		},
		{
			name:    "title differs and tracked",
			tracked: allTracked(),
			snap:    watch.PageSnapshot{StatusCode: 200, Title: "New Pricing", ContentChecksum: "aaaa"},
			want:    Changed,
		},
		{
			name:    "checksum differs and tracked",
			tracked: allTracked(),
			snap:    watch.PageSnapshot{StatusCode: 200, Title: "Pricing", ContentChecksum: "bbbb"},
			want:    Changed,
		},
		{
			name:    "status differs but untracked",
			tracked: watch.TrackedFields{Title: true, Content: true},
			snap:    watch.PageSnapshot{StatusCode: 500, Title: "Pricing", ContentChecksum: "aaaa"},
			want:    Unchanged,
		},
		{
			name:    "checksum differs but only status tracked",
			tracked: watch.TrackedFields{StatusCode: true},
			snap:    watch.PageSnapshot{StatusCode: 200, Title: "Other", ContentChecksum: "bbbb"},
			want:    Unchanged,
		},
		{
			name:    "no fields tracked defaults to unchanged",
			tracked: watch.TrackedFields{},
			snap:    watch.PageSnapshot{StatusCode: 500, Title: "Other", ContentChecksum: "bbbb"},
			want:    Unchanged,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			page := watch.Webpage{ID: "w1", Tracked: tc.tracked}
			require.Equal(t, tc.want, Classify(page, latest, tc.snap))
		})
	}
}

func TestResultString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "baseline", Baseline.String())
	require.Equal(t, "changed", Changed.String())
	require.Equal(t, "unchanged", Unchanged.String())
	require.Equal(t, "unknown", Result(42).String())
}
