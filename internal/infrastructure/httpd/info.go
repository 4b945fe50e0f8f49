package httpd

import (
	"net/http"
	"runtime"
	"strconv"

	"github.com/quadpane/quadpane/internal/config"
	"github.com/quadpane/quadpane/internal/domain/entity"
)

// configResponse mirrors the parts of the configuration the shell and
// external tools need, not the whole file.
type configResponse struct {
	ConfigPath      string              `json:"config_path"`
	DatabasePath    string              `json:"database_path"`
	Addr            string              `json:"addr"`
	Bindings        map[string][]string `json:"bindings"`
	OpenModifier    string              `json:"open_modifier"`
	StateDebounceMS int                 `json:"state_debounce_ms"`
	RecentLimit     int                 `json:"recent_limit"`
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.config()
	configPath, _ := config.GetConfigFile()
	writeJSON(w, http.StatusOK, configResponse{
		ConfigPath:      configPath,
		DatabasePath:    cfg.Database.Path,
		Addr:            cfg.Server.Addr,
		Bindings:        cfg.Shortcuts.Bindings,
		OpenModifier:    cfg.Shortcuts.OpenModifierFor(runtime.GOOS),
		StateDebounceMS: cfg.State.DebounceMS,
		RecentLimit:     cfg.History.RecentLimit,
	})
}

func (h *Handler) handleHistoryRecent(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, []*entity.HistoryEntry{})
		return
	}

	q := r.URL.Query()
	limit := h.config().History.RecentLimit
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	offset := 0
	if o := q.Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	entries, err := h.history.GetRecent(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
