package favicon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadpane/quadpane/internal/domain/entity"
)

// memCache is an in-memory FaviconCacheRepository counting lookups.
type memCache struct {
	mu      sync.Mutex
	records map[string]*entity.FaviconRecord
	gets    atomic.Int64
}

func newMemCache() *memCache {
	return &memCache{records: make(map[string]*entity.FaviconRecord)}
}

func (c *memCache) Get(_ context.Context, host string) (*entity.FaviconRecord, error) {
	c.gets.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.records[host]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (c *memCache) Put(_ context.Context, record *entity.FaviconRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := *record
	c.records[record.Host] = &clone
	return nil
}

func (c *memCache) Prune(_ context.Context, before time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for host, record := range c.records {
		if record.FetchedAt.Before(before) {
			delete(c.records, host)
		}
	}
	return nil
}

// iconServer fakes the icon service, counting probes.
type iconServer struct {
	srv    *httptest.Server
	hits   atomic.Int64
	status int
}

func newIconServer(t *testing.T, status int) *iconServer {
	t.Helper()
	s := &iconServer{status: status}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)
		if s.status != http.StatusOK {
			w.WriteHeader(s.status)
			return
		}
		_, _ = w.Write([]byte("\x00\x00\x01\x00"))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *iconServer) template() string {
	return s.srv.URL + "/ip3/%s.ico"
}

func TestResolvePrefersFreshCache(t *testing.T) {
	icons := newIconServer(t, http.StatusOK)
	cache := newMemCache()
	require.NoError(t, cache.Put(context.Background(), &entity.FaviconRecord{
		Host:      "example.com",
		IconURL:   "https://example.com/cached.ico",
		FetchedAt: time.Now(),
	}))

	svc := NewService(cache, Options{IconTemplate: icons.template()})

	icon, err := svc.Resolve(context.Background(), "https://example.com/article")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/cached.ico", icon)
	assert.Equal(t, int64(0), icons.hits.Load())
}

func TestResolveProbesIconService(t *testing.T) {
	icons := newIconServer(t, http.StatusOK)
	cache := newMemCache()
	svc := NewService(cache, Options{IconTemplate: icons.template()})

	icon, err := svc.Resolve(context.Background(), "https://example.com/article")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(icons.template(), "example.com"), icon)
	assert.Equal(t, int64(1), icons.hits.Load())

	record, err := cache.Get(context.Background(), "example.com")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, icon, record.IconURL)

	// Second resolve is served from the cache.
	again, err := svc.Resolve(context.Background(), "https://example.com/other")
	require.NoError(t, err)
	assert.Equal(t, icon, again)
	assert.Equal(t, int64(1), icons.hits.Load())
}

func TestResolveHotLayerSkipsStore(t *testing.T) {
	icons := newIconServer(t, http.StatusOK)
	store := newMemCache()
	svc := NewService(store, Options{IconTemplate: icons.template()})

	icon, err := svc.Resolve(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	require.NotEmpty(t, icon)
	assert.Equal(t, int64(1), store.gets.Load())

	// Repeats for the same host stay in memory.
	for i := 0; i < 3; i++ {
		again, err := svc.Resolve(context.Background(), "https://example.com/b")
		require.NoError(t, err)
		assert.Equal(t, icon, again)
	}
	assert.Equal(t, int64(1), store.gets.Load())
	assert.Equal(t, int64(1), icons.hits.Load())
}

func TestResolveFallsBackToPageScan(t *testing.T) {
	icons := newIconServer(t, http.StatusNotFound)

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/article" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!doctype html><html><head>
<link rel="stylesheet" href="/style.css">
<link rel="shortcut icon" href="/art/fav.png">
</head><body><p>hi</p></body></html>`))
	}))
	t.Cleanup(page.Close)

	svc := NewService(newMemCache(), Options{IconTemplate: icons.template()})

	icon, err := svc.Resolve(context.Background(), page.URL+"/article")
	require.NoError(t, err)
	assert.Equal(t, page.URL+"/art/fav.png", icon)
}

func TestResolveCachesMisses(t *testing.T) {
	icons := newIconServer(t, http.StatusNotFound)

	var pageHits atomic.Int64
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		pageHits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>bare</title></head><body></body></html>`))
	}))
	t.Cleanup(page.Close)

	cache := newMemCache()
	svc := NewService(cache, Options{IconTemplate: icons.template()})

	icon, err := svc.Resolve(context.Background(), page.URL+"/")
	require.NoError(t, err)
	assert.Empty(t, icon)
	require.Equal(t, int64(1), pageHits.Load())

	// The miss is cached; nothing is re-fetched.
	icon, err = svc.Resolve(context.Background(), page.URL+"/")
	require.NoError(t, err)
	assert.Empty(t, icon)
	assert.Equal(t, int64(1), pageHits.Load())
	assert.Equal(t, int64(1), icons.hits.Load())
}

func TestResolveRefreshesExpiredRecords(t *testing.T) {
	icons := newIconServer(t, http.StatusOK)
	cache := newMemCache()
	require.NoError(t, cache.Put(context.Background(), &entity.FaviconRecord{
		Host:      "example.com",
		IconURL:   "https://example.com/stale.ico",
		FetchedAt: time.Now().Add(-30 * 24 * time.Hour),
	}))

	svc := NewService(cache, Options{IconTemplate: icons.template()})

	icon, err := svc.Resolve(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(icons.template(), "example.com"), icon)
	assert.Equal(t, int64(1), icons.hits.Load())
}

func TestResolveSkipsHostlessURLs(t *testing.T) {
	icons := newIconServer(t, http.StatusOK)
	svc := NewService(newMemCache(), Options{IconTemplate: icons.template()})

	icon, err := svc.Resolve(context.Background(), "about:blank")
	require.NoError(t, err)
	assert.Empty(t, icon)
	assert.Equal(t, int64(0), icons.hits.Load())
}

func TestIconLinkResolvesRelativeHrefs(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "absolute",
			html: `<head><link rel="icon" href="https://cdn.example/i.png"></head>`,
			want: "https://cdn.example/i.png",
		},
		{
			name: "root relative",
			html: `<head><link rel="icon" href="/i.png"></head>`,
			want: "https://example.com/i.png",
		},
		{
			name: "path relative",
			html: `<head><link rel="icon" href="i.png"></head>`,
			want: "https://example.com/blog/i.png",
		},
		{
			name: "no icon link",
			html: `<head><link rel="stylesheet" href="/s.css"></head><body></body>`,
			want: "",
		},
		{
			name: "icon after body ignored",
			html: `<head></head><body><link rel="icon" href="/late.png"></body>`,
			want: "",
		},
	}

	base, err := url.Parse("https://example.com/blog/post")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := iconLink(strings.NewReader(tt.html), base)
			assert.Equal(t, tt.want, got)
		})
	}
}
