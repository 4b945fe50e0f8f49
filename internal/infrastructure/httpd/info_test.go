package httpd_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadpane/quadpane/internal/application/usecase"
	"github.com/quadpane/quadpane/internal/compositor"
	"github.com/quadpane/quadpane/internal/config"
	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/domain/repository"
	"github.com/quadpane/quadpane/internal/infrastructure/httpd"
)

// stubHistory serves canned entries for the recent-history endpoint.
type stubHistory struct {
	entries []*entity.HistoryEntry
}

func (s *stubHistory) Save(ctx context.Context, entry *entity.HistoryEntry) error { return nil }
func (s *stubHistory) FindByURL(ctx context.Context, url string) (*entity.HistoryEntry, error) {
	return nil, nil
}
func (s *stubHistory) GetRecent(ctx context.Context, limit, offset int) ([]*entity.HistoryEntry, error) {
	if offset >= len(s.entries) {
		return []*entity.HistoryEntry{}, nil
	}
	end := offset + limit
	if end > len(s.entries) {
		end = len(s.entries)
	}
	return s.entries[offset:end], nil
}
func (s *stubHistory) UpdateTitle(ctx context.Context, url, title string) error    { return nil }
func (s *stubHistory) DeleteOlderThan(ctx context.Context, before time.Time) error { return nil }
func (s *stubHistory) TrimOverflow(ctx context.Context, max int) error             { return nil }

func newInfoServer(t *testing.T, history *stubHistory) *httptest.Server {
	t.Helper()
	registry := compositor.NewRegistry(compositor.RegistryOptions{
		Editor: usecase.NewEditLayoutUseCase(testIDs()),
		Resize: usecase.NewResizeLayoutUseCase(),
	})
	cfg := config.DefaultConfig()
	var repo repository.HistoryRepository
	if history != nil {
		repo = history
	}
	handler := httpd.NewHandler(registry, repo, func() *config.Config { return cfg })
	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestConfigEndpoint(t *testing.T) {
	srv := newInfoServer(t, nil)

	resp, err := srv.Client().Get(srv.URL + "/api/config")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[struct {
		Addr            string              `json:"addr"`
		Bindings        map[string][]string `json:"bindings"`
		OpenModifier    string              `json:"open_modifier"`
		StateDebounceMS int                 `json:"state_debounce_ms"`
		RecentLimit     int                 `json:"recent_limit"`
	}](t, resp)

	defaults := config.DefaultConfig()
	assert.Equal(t, defaults.Server.Addr, got.Addr)
	assert.Equal(t, defaults.State.DebounceMS, got.StateDebounceMS)
	assert.Equal(t, defaults.History.RecentLimit, got.RecentLimit)
	assert.Equal(t, defaults.Shortcuts.OpenModifierFor(runtime.GOOS), got.OpenModifier)
	assert.NotEmpty(t, got.Bindings["remove_pane"])
}

func TestHistoryRecentEndpoint(t *testing.T) {
	history := &stubHistory{}
	for _, url := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		history.entries = append(history.entries, entity.NewHistoryEntry(url, ""))
	}
	srv := newInfoServer(t, history)

	resp, err := srv.Client().Get(srv.URL + "/api/history/recent")
	require.NoError(t, err)
	entries := decodeBody[[]*entity.HistoryEntry](t, resp)
	assert.Len(t, entries, 3)

	resp, err = srv.Client().Get(srv.URL + "/api/history/recent?limit=1&offset=1")
	require.NoError(t, err)
	entries = decodeBody[[]*entity.HistoryEntry](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://b.example", entries[0].URL)
}

func TestHistoryRecentWithoutStore(t *testing.T) {
	srv := newInfoServer(t, nil)

	resp, err := srv.Client().Get(srv.URL + "/api/history/recent")
	require.NoError(t, err)
	entries := decodeBody[[]*entity.HistoryEntry](t, resp)
	assert.Empty(t, entries)
}

func TestShellPage(t *testing.T) {
	srv := newInfoServer(t, nil)

	for _, path := range []string{"/", "/view?state=%7B%22urls%22%3A%5B%22https%3A%2F%2Fa.example%22%5D%7D"} {
		resp, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(body), "quadpane"))
	}
}

func TestUnknownAPIPath(t *testing.T) {
	srv := newInfoServer(t, nil)

	resp, err := srv.Client().Get(srv.URL + "/api/nope")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
