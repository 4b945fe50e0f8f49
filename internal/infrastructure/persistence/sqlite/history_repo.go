package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/domain/repository"
	"github.com/quadpane/quadpane/internal/logging"
)

type historyRepo struct {
	db *sql.DB
}

// NewHistoryRepository creates a new SQLite-backed history repository.
func NewHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &historyRepo{db: db}
}

// The upsert keeps the stored title and favicon when the incoming entry
// carries none; a bare navigation report must not wipe metadata an
// earlier title report filled in.
const upsertHistorySQL = `
INSERT INTO history (url, title, favicon_url, visit_count, last_visited, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
    title = CASE WHEN excluded.title != '' THEN excluded.title ELSE history.title END,
    favicon_url = CASE WHEN excluded.favicon_url != '' THEN excluded.favicon_url ELSE history.favicon_url END,
    visit_count = excluded.visit_count,
    last_visited = excluded.last_visited`

const selectHistorySQL = `
SELECT id, url, title, favicon_url, visit_count, last_visited, created_at
FROM history`

func (r *historyRepo) Save(ctx context.Context, entry *entity.HistoryEntry) error {
	log := logging.FromContext(ctx)
	log.Debug().Str("url", entry.URL).Int64("visits", entry.VisitCount).Msg("saving history entry")

	now := time.Now()
	lastVisited := entry.LastVisited
	if lastVisited.IsZero() {
		lastVisited = now
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	visits := entry.VisitCount
	if visits <= 0 {
		visits = 1
	}

	_, err := r.db.ExecContext(ctx, upsertHistorySQL,
		entry.URL,
		entry.Title,
		entry.FaviconURL,
		visits,
		lastVisited.UTC(),
		createdAt.UTC(),
	)
	return err
}

func (r *historyRepo) FindByURL(ctx context.Context, url string) (*entity.HistoryEntry, error) {
	row := r.db.QueryRowContext(ctx, selectHistorySQL+" WHERE url = ?", url)
	entry, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *historyRepo) GetRecent(ctx context.Context, limit, offset int) ([]*entity.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		selectHistorySQL+" ORDER BY datetime(last_visited) DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*entity.HistoryEntry{}
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *historyRepo) UpdateTitle(ctx context.Context, url, title string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE history SET title = ? WHERE url = ?", title, url)
	return err
}

func (r *historyRepo) DeleteOlderThan(ctx context.Context, before time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM history WHERE datetime(last_visited) < datetime(?)",
		before.UTC())
	if err != nil {
		return err
	}
	if deleted, err := res.RowsAffected(); err == nil && deleted > 0 {
		logging.FromContext(ctx).Debug().Int64("deleted", deleted).Msg("expired history entries removed")
	}
	return nil
}

func (r *historyRepo) TrimOverflow(ctx context.Context, max int) error {
	if max <= 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE id IN (
SELECT id FROM history ORDER BY datetime(last_visited) DESC, id DESC LIMIT -1 OFFSET ?)`, max)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(row rowScanner) (*entity.HistoryEntry, error) {
	var e entity.HistoryEntry
	if err := row.Scan(&e.ID, &e.URL, &e.Title, &e.FaviconURL, &e.VisitCount, &e.LastVisited, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
