package favicon

import (
	"context"
	"net/url"
	"time"

	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/domain/repository"
	"github.com/quadpane/quadpane/internal/infrastructure/cache"
	"github.com/quadpane/quadpane/internal/logging"
)

const (
	defaultCacheTTL = 7 * 24 * time.Hour
	// Hosts kept in the in-memory layer in front of the store.
	hotCacheSize = 256
)

// Options configures a Service.
type Options struct {
	// FetchTimeout bounds each network lookup.
	FetchTimeout time.Duration
	// CacheTTL is how long a resolved icon URL stays fresh.
	CacheTTL time.Duration
	// IconTemplate overrides the icon service URL; it must contain a
	// %s placeholder for the host.
	IconTemplate string
}

// Service resolves favicon URLs through a per-host cache.
type Service struct {
	store   repository.FaviconCacheRepository
	hot     *cache.LRU[string, *entity.FaviconRecord]
	fetcher *Fetcher
	ttl     time.Duration
}

// NewService creates a favicon service. A nil store disables persistent
// caching; resolved hosts are still held in memory.
func NewService(store repository.FaviconCacheRepository, opts Options) *Service {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Service{
		store:   store,
		hot:     cache.NewLRU[string, *entity.FaviconRecord](hotCacheSize),
		fetcher: NewFetcher(opts.FetchTimeout, opts.IconTemplate),
		ttl:     ttl,
	}
}

// Resolve returns the favicon URL for a page, or "" when the page has
// none. Misses are cached too, so icon-less hosts are not re-fetched on
// every navigation.
func (s *Service) Resolve(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return "", nil
	}
	host := u.Hostname()
	log := logging.FromContext(ctx)

	if record, ok := s.hot.Get(host); ok && !record.Expired(s.ttl) {
		return record.IconURL, nil
	}

	if s.store != nil {
		record, err := s.store.Get(ctx, host)
		if err != nil {
			log.Debug().Err(err).Str("host", host).Msg("favicon cache lookup failed")
		} else if record != nil && !record.Expired(s.ttl) {
			s.hot.Set(host, record)
			return record.IconURL, nil
		}
	}

	icon, err := s.fetcher.Locate(ctx, pageURL, host)
	if err != nil {
		return "", err
	}

	record := &entity.FaviconRecord{Host: host, IconURL: icon, FetchedAt: time.Now()}
	s.hot.Set(host, record)
	if s.store != nil {
		if err := s.store.Put(ctx, record); err != nil {
			log.Debug().Err(err).Str("host", host).Msg("favicon cache store failed")
		}
	}

	return icon, nil
}

// Prune drops persisted cache records older than the TTL. In-memory
// entries age out through the expiry check on read.
func (s *Service) Prune(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Prune(ctx, time.Now().Add(-s.ttl))
}
