// Package postgres provides the pgx-backed Repository implementation.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagewatch/pagewatch/internal/watch"
)

// Config controls the Postgres connection pool and the due-ness policy.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	// DueAfter is how stale a page's last check must be before the page
	// is returned by ListDueWebpages. The policy lives here, in the
	// query, not in the scheduler.
	DueAfter time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Repository persists webpages and the append-only check log.
type Repository struct {
	pool     querier
	dueAfter time.Duration
}

const webpageColumns = `w.id, w.url, w.track_status_code, w.track_title, w.track_content,
	w.notification_email, w.subscription_active, w.created_at`

const logEntryColumns = `id, webpage_id, checked_at, status_code, page_checksum, page_title, artifact_ref`

// New creates a Postgres-backed Repository using the provided config.
func New(ctx context.Context, cfg Config) (*Repository, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	if cfg.DueAfter <= 0 {
		return nil, fmt.Errorf("db.due_after must be > 0")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Repository{pool: pool, dueAfter: cfg.DueAfter}, nil
}

// NewWithPool constructs a Repository from an existing pool (primarily
// for testing).
func NewWithPool(pool querier, dueAfter time.Duration) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if dueAfter <= 0 {
		return nil, fmt.Errorf("due_after must be > 0")
	}
	return &Repository{pool: pool, dueAfter: dueAfter}, nil
}

// Close releases the underlying pool resources.
func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

// Ping verifies database connectivity, for readiness probes.
func (r *Repository) Ping(ctx context.Context) error {
	var one int
	if err := r.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return &watch.RepositoryError{Op: "ping", Err: err}
	}
	return nil
}

// ListUncheckedWebpages returns every webpage with zero log entries.
func (r *Repository) ListUncheckedWebpages(ctx context.Context) ([]watch.Webpage, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM webpages w
WHERE NOT EXISTS (
	SELECT 1 FROM check_log l WHERE l.webpage_id = w.id
)
ORDER BY w.created_at`, webpageColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, &watch.RepositoryError{Op: "list unchecked webpages", Err: err}
	}
	defer rows.Close()
	return scanWebpages(rows, "list unchecked webpages")
}

// ListDueWebpages returns every webpage whose most recent check is older
// than the configured due interval.
func (r *Repository) ListDueWebpages(ctx context.Context) ([]watch.Webpage, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM webpages w
JOIN LATERAL (
	SELECT max(checked_at) AS last_checked FROM check_log WHERE webpage_id = w.id
) last ON true
WHERE last.last_checked IS NOT NULL
  AND last.last_checked < now() - make_interval(secs => $1)
ORDER BY last.last_checked`, webpageColumns)

	rows, err := r.pool.Query(ctx, query, r.dueAfter.Seconds())
	if err != nil {
		return nil, &watch.RepositoryError{Op: "list due webpages", Err: err}
	}
	defer rows.Close()
	return scanWebpages(rows, "list due webpages")
}

// InsertLogEntry appends one row to the check log. The row id is
// generated by the database; entries are never updated afterwards.
func (r *Repository) InsertLogEntry(ctx context.Context, entry watch.CheckLogEntry) error {
	if entry.WebpageID == "" {
		return &watch.RepositoryError{Op: "insert log entry", Err: fmt.Errorf("webpage id is required")}
	}
	query := `
INSERT INTO check_log (webpage_id, checked_at, status_code, page_checksum, page_title, artifact_ref)
VALUES ($1, $2, $3, $4, $5, $6)`

	args := []any{
		entry.WebpageID,
		entry.CheckedAt,
		entry.StatusCode,
		entry.PageChecksum,
		entry.PageTitle,
		entry.ArtifactRef,
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return &watch.RepositoryError{Op: "insert log entry", Err: err}
	}
	return nil
}

// CountLogEntries returns the page's total historical check count.
func (r *Repository) CountLogEntries(ctx context.Context, webpageID string) (int, error) {
	var count int
	query := `SELECT count(*) FROM check_log WHERE webpage_id = $1`
	if err := r.pool.QueryRow(ctx, query, webpageID).Scan(&count); err != nil {
		return 0, &watch.RepositoryError{Op: "count log entries", Err: err}
	}
	return count, nil
}

// RecentLogEntries returns up to limit entries for the page, newest first.
func (r *Repository) RecentLogEntries(ctx context.Context, webpageID string, limit int) ([]watch.CheckLogEntry, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM check_log
WHERE webpage_id = $1
ORDER BY checked_at DESC
LIMIT $2`, logEntryColumns)

	rows, err := r.pool.Query(ctx, query, webpageID, limit)
	if err != nil {
		return nil, &watch.RepositoryError{Op: "recent log entries", Err: err}
	}
	defer rows.Close()

	var entries []watch.CheckLogEntry
	for rows.Next() {
		var e watch.CheckLogEntry
		if err := rows.Scan(
			&e.ID,
			&e.WebpageID,
			&e.CheckedAt,
			&e.StatusCode,
			&e.PageChecksum,
			&e.PageTitle,
			&e.ArtifactRef,
		); err != nil {
			return nil, &watch.RepositoryError{Op: "recent log entries", Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &watch.RepositoryError{Op: "recent log entries", Err: err}
	}
	return entries, nil
}

// ListAllLogArtifactRefs returns every non-empty artifact reference held
// by the log, for orphan reconciliation.
func (r *Repository) ListAllLogArtifactRefs(ctx context.Context) ([]string, error) {
	query := `SELECT artifact_ref FROM check_log WHERE artifact_ref <> ''`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, &watch.RepositoryError{Op: "list artifact refs", Err: err}
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, &watch.RepositoryError{Op: "list artifact refs", Err: err}
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, &watch.RepositoryError{Op: "list artifact refs", Err: err}
	}
	return refs, nil
}

func scanWebpages(rows pgx.Rows, op string) ([]watch.Webpage, error) {
	var pages []watch.Webpage
	for rows.Next() {
		var p watch.Webpage
		if err := rows.Scan(
			&p.ID,
			&p.URL,
			&p.Tracked.StatusCode,
			&p.Tracked.Title,
			&p.Tracked.Content,
			&p.NotificationEmail,
			&p.SubscriptionActive,
			&p.CreatedAt,
		); err != nil {
			return nil, &watch.RepositoryError{Op: op, Err: err}
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &watch.RepositoryError{Op: op, Err: err}
	}
	return pages, nil
}
