package httpd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/quadpane/quadpane/internal/compositor"
	"github.com/quadpane/quadpane/internal/config"
	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/domain/repository"
	"github.com/quadpane/quadpane/internal/logging"
)

// Handler provides the engine's HTTP endpoint handling.
type Handler struct {
	registry *compositor.Registry
	history  repository.HistoryRepository
	config   func() *config.Config

	mu   sync.Mutex
	hubs map[string]*eventHub
}

// NewHandler creates a new endpoint handler. history may be nil, which
// leaves the recent-history endpoint empty; cfg is consulted per request
// so config reloads apply without a restart.
func NewHandler(registry *compositor.Registry, history repository.HistoryRepository, cfg func() *config.Config) *Handler {
	return &Handler{
		registry: registry,
		history:  history,
		config:   cfg,
		hubs:     make(map[string]*eventHub),
	}
}

// Routes builds the route table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleShell)
	mux.HandleFunc("GET /view", h.handleShell)
	mux.HandleFunc("POST /api/sessions", h.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}/geometry", h.handleGeometry)
	mux.HandleFunc("POST /api/sessions/{id}/ops", h.handleOps)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.handleCloseSession)
	mux.HandleFunc("POST /api/sessions/{id}/messages", h.handleMessages)
	mux.HandleFunc("GET /api/sessions/{id}/events", h.handleEvents)
	mux.HandleFunc("GET /api/config", h.handleConfig)
	mux.HandleFunc("GET /api/history/recent", h.handleHistoryRecent)
	return withRequestLog(mux)
}

// session resolves the {id} path value, writing the 404 itself when the
// session is gone.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*compositor.Session, bool) {
	id := r.PathValue("id")
	s, ok := h.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown session %q", id))
		return nil, false
	}
	return s, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusForError maps the engine's sentinel errors onto HTTP statuses.
// Unknown errors are treated as internal.
func statusForError(err error) int {
	switch {
	case errors.Is(err, entity.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, entity.ErrPaneNotFound),
		errors.Is(err, entity.ErrDividerNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidMode),
		errors.Is(err, entity.ErrInvalidRatio),
		errors.Is(err, entity.ErrInvalidLayout):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrPaneLimit),
		errors.Is(err, entity.ErrGridRequiresFour),
		errors.Is(err, entity.ErrFullPaneActive),
		errors.Is(err, entity.ErrNoAdjacentPane),
		errors.Is(err, entity.ErrNoDrag),
		errors.Is(err, entity.ErrFrameNotRegistered):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// statusWriter records the response status for the request log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps event streams working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		logging.FromContext(r.Context()).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}
