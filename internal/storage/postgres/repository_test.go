package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/pagewatch/pagewatch/internal/watch"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *Repository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo, err := NewWithPool(mock, time.Hour)
	require.NoError(t, err)
	return mock, repo
}

func webpageRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "url", "track_status_code", "track_title", "track_content",
		"notification_email", "subscription_active", "created_at",
	})
}

func TestNewWithPoolValidates(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil, time.Hour)
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, 0)
	require.Error(t, err)
}

func TestListUncheckedWebpages(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)
	created := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("FROM webpages w").
		WillReturnRows(webpageRows().
			AddRow("w1", "https://example.com/pricing", true, false, true, "a@example.com", false, created))

	pages, err := repo.ListUncheckedWebpages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, "w1", pages[0].ID)
	require.True(t, pages[0].Tracked.StatusCode)
	require.False(t, pages[0].Tracked.Title)
	require.True(t, pages[0].Tracked.Content)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDueWebpagesPassesInterval(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)

	mock.ExpectQuery("make_interval").
		WithArgs(float64(3600)).
		WillReturnRows(webpageRows())

	pages, err := repo.ListDueWebpages(context.Background())
	require.NoError(t, err)
	require.Empty(t, pages)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLogEntry(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)
	now := time.Unix(1700000000, 0).UTC()

	entry := watch.CheckLogEntry{
		WebpageID:    "w1",
		CheckedAt:    now,
		StatusCode:   200,
		PageChecksum: "abc123",
		PageTitle:    "Pricing",
		ArtifactRef:  "example-com_pricing_20231114221320.jpg",
	}

	mock.ExpectExec("INSERT INTO check_log").
		WithArgs(
			entry.WebpageID,
			entry.CheckedAt,
			entry.StatusCode,
			entry.PageChecksum,
			entry.PageTitle,
			entry.ArtifactRef,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.InsertLogEntry(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLogEntryRequiresWebpageID(t *testing.T) {
	t.Parallel()

	_, repo := newMockRepo(t)
	err := repo.InsertLogEntry(context.Background(), watch.CheckLogEntry{})
	require.Error(t, err)

	var repoErr *watch.RepositoryError
	require.True(t, errors.As(err, &repoErr))
}

func TestCountLogEntries(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)

	mock.ExpectQuery("SELECT count").
		WithArgs("w1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountLogEntries(context.Background(), "w1")
	require.NoError(t, err)
	require.Equal(t, 7, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentLogEntries(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("FROM check_log").
		WithArgs("w1", 3).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "webpage_id", "checked_at", "status_code", "page_checksum", "page_title", "artifact_ref",
		}).
			AddRow("l3", "w1", now, 200, "ccc", "Pricing", "c.jpg").
			AddRow("l2", "w1", now.Add(-time.Hour), 200, "bbb", "Pricing", "b.jpg").
			AddRow("l1", "w1", now.Add(-2*time.Hour), 200, "aaa", "Pricing", "a.jpg"))

	entries, err := repo.RecentLogEntries(context.Background(), "w1", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "c.jpg", entries[0].ArtifactRef)
	require.Equal(t, "a.jpg", entries[2].ArtifactRef)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllLogArtifactRefs(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)

	mock.ExpectQuery("SELECT artifact_ref FROM check_log").
		WillReturnRows(pgxmock.NewRows([]string{"artifact_ref"}).
			AddRow("a.jpg").
			AddRow("b.jpg"))

	refs, err := repo.ListAllLogArtifactRefs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a.jpg", "b.jpg"}, refs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryErrorsWrapRepositoryError(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)
	mock.ExpectQuery("FROM webpages w").WillReturnError(errors.New("connection reset"))

	_, err := repo.ListUncheckedWebpages(context.Background())
	require.Error(t, err)

	var repoErr *watch.RepositoryError
	require.True(t, errors.As(err, &repoErr))
}
