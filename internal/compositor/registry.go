package compositor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quadpane/quadpane/internal/application/usecase"
	"github.com/quadpane/quadpane/internal/connector"
	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/logging"
	"github.com/quadpane/quadpane/internal/urlstate"
)

// RegistryOptions carries the shared collaborators every session gets.
type RegistryOptions struct {
	Editor        *usecase.EditLayoutUseCase
	Resize        *usecase.ResizeLayoutUseCase
	Recorder      *usecase.RecordVisitUseCase
	Favicons      FaviconResolver
	Shortcuts     func() connector.ShortcutMap
	StateDebounce time.Duration
}

// Registry tracks live sessions by ID. Sessions that closed themselves
// (last pane removed) are reaped lazily on lookup.
type Registry struct {
	opts RegistryOptions

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry(opts RegistryOptions) *Registry {
	return &Registry{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Create builds a session from an encoded URL state value. Messages from
// the new session flow to sink; a nil sink discards them.
func (r *Registry) Create(ctx context.Context, encoded string, sink connector.CommandSink) (*Session, error) {
	doc := urlstate.Decode(encoded)
	return r.CreateFromInput(ctx, usecase.NewStateInput{
		URLs:   doc.URLs,
		Ratios: doc.Ratios,
		Titles: doc.Titles,
		Mode:   entity.LayoutMode(doc.Layout),
	}, sink)
}

// CreateFromInput builds a session from an explicit initial descriptor.
func (r *Registry) CreateFromInput(ctx context.Context, input usecase.NewStateInput, sink connector.CommandSink) (*Session, error) {
	state, err := r.opts.Editor.NewState(ctx, input)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	session, err := NewSession(ctx, Options{
		ID:            id,
		State:         state,
		Editor:        r.opts.Editor,
		Resize:        r.opts.Resize,
		Recorder:      r.opts.Recorder,
		Favicons:      r.opts.Favicons,
		Sink:          sink,
		Shortcuts:     r.opts.Shortcuts,
		StateDebounce: r.opts.StateDebounce,
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = session
	r.mu.Unlock()

	logging.FromContext(ctx).Info().
		Str("session_id", id).
		Int("panes", state.PaneCount()).
		Str("mode", string(state.Mode)).
		Msg("session created")
	return session, nil
}

// Get returns the session with the given ID, reaping it first if it has
// already closed itself.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.Closed() {
		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
		return nil, false
	}
	return s, true
}

// List returns the live sessions ordered by ID.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	out := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		if s.Closed() {
			delete(r.sessions, id)
			continue
		}
		out = append(out, s)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	return len(r.List())
}

// Close shuts down and removes the session with the given ID.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return entity.ErrSessionClosed
	}
	return s.Close(ctx)
}

// CloseAll shuts down every session, flushing their pending state.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			logging.FromContext(ctx).Warn().Err(err).
				Str("session_id", s.ID()).
				Msg("failed to close session")
		}
	}
}
