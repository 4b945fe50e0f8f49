// Package repository defines persistence interfaces implemented by the
// infrastructure layer.
package repository

import (
	"context"
	"time"

	"github.com/quadpane/quadpane/internal/domain/entity"
)

// HistoryRepository defines operations for pane visit history persistence.
type HistoryRepository interface {
	// Save creates or updates a history entry (upsert by URL).
	Save(ctx context.Context, entry *entity.HistoryEntry) error

	// FindByURL retrieves a history entry by its URL.
	FindByURL(ctx context.Context, url string) (*entity.HistoryEntry, error)

	// GetRecent retrieves recent history entries ordered by last visit.
	GetRecent(ctx context.Context, limit, offset int) ([]*entity.HistoryEntry, error)

	// UpdateTitle sets the title for a URL's entry if one exists.
	UpdateTitle(ctx context.Context, url, title string) error

	// DeleteOlderThan removes entries last visited before the given time.
	DeleteOlderThan(ctx context.Context, before time.Time) error

	// TrimOverflow removes the oldest entries beyond max, by last visit.
	TrimOverflow(ctx context.Context, max int) error
}

// FaviconCacheRepository caches resolved favicon URLs per host.
type FaviconCacheRepository interface {
	// Get returns the cached record for a host, or nil when absent.
	Get(ctx context.Context, host string) (*entity.FaviconRecord, error)

	// Put stores or replaces the record for a host.
	Put(ctx context.Context, record *entity.FaviconRecord) error

	// Prune removes records fetched before the given time.
	Prune(ctx context.Context, before time.Time) error
}
