package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/domain/repository"
)

type faviconRepo struct {
	db *sql.DB
}

// NewFaviconCacheRepository creates a new SQLite-backed favicon cache.
func NewFaviconCacheRepository(db *sql.DB) repository.FaviconCacheRepository {
	return &faviconRepo{db: db}
}

func (r *faviconRepo) Get(ctx context.Context, host string) (*entity.FaviconRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT host, icon_url, fetched_at FROM favicon_cache WHERE host = ?", host)

	var rec entity.FaviconRecord
	err := row.Scan(&rec.Host, &rec.IconURL, &rec.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *faviconRepo) Put(ctx context.Context, record *entity.FaviconRecord) error {
	fetchedAt := record.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO favicon_cache (host, icon_url, fetched_at)
VALUES (?, ?, ?)
ON CONFLICT(host) DO UPDATE SET
    icon_url = excluded.icon_url,
    fetched_at = excluded.fetched_at`,
		record.Host, record.IconURL, fetchedAt.UTC())
	return err
}

func (r *faviconRepo) Prune(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM favicon_cache WHERE datetime(fetched_at) < datetime(?)",
		before.UTC())
	return err
}
