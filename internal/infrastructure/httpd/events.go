package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/quadpane/quadpane/internal/compositor"
	"github.com/quadpane/quadpane/internal/connector"
	"github.com/quadpane/quadpane/internal/logging"
)

const (
	eventStreamBuffer = 64
	heartbeatInterval = 30 * time.Second
)

// eventHub fans one session's outbound envelopes out to its event
// streams. It is the session's command sink; streams subscribe and
// unsubscribe as clients come and go.
type eventHub struct {
	mu     sync.Mutex
	subs   map[chan connector.Envelope]struct{}
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan connector.Envelope]struct{})}
}

// Send implements connector.CommandSink. Slow streams lose envelopes
// rather than stalling the engine.
func (h *eventHub) Send(ctx context.Context, env connector.Envelope) error {
	h.mu.Lock()
	subs := make([]chan connector.Envelope, 0, len(h.subs))
	for ch := range h.subs {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- env:
		default:
			logging.FromContext(ctx).Debug().
				Str("type", string(env.Type)).
				Msg("event stream full, envelope dropped")
		}
	}
	return nil
}

// Subscribe registers a stream channel. The returned cancel func
// unregisters it; the channel is closed on cancel or hub close.
func (h *eventHub) Subscribe() (<-chan connector.Envelope, func()) {
	ch := make(chan connector.Envelope, eventStreamBuffer)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Close closes every subscriber channel and rejects new subscriptions.
func (h *eventHub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[chan connector.Envelope]struct{})
	h.mu.Unlock()

	for ch := range subs {
		close(ch)
	}
}

// adoptHub tracks the session's hub and tears it down once the session
// ends, whether through the API or by removing its last pane.
func (h *Handler) adoptHub(session *compositor.Session, hub *eventHub) {
	h.mu.Lock()
	h.hubs[session.ID()] = hub
	h.mu.Unlock()

	events, cancel := session.Subscribe()
	go func() {
		defer cancel()
		for range events {
		}
		hub.Close()
		h.mu.Lock()
		delete(h.hubs, session.ID())
		h.mu.Unlock()
	}()
}

func (h *Handler) hub(id string) (*eventHub, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hub, ok := h.hubs[id]
	return hub, ok
}

// handleEvents streams the session's outbound envelopes as server-sent
// events, one frame per envelope, named by message type. The first
// event replays the current geometry so a late stream starts with the
// full picture.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	hub, ok := h.hub(session.ID())
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %q has no event stream", session.ID()))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("response writer does not support streaming"))
		return
	}

	events, cancel := hub.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if env, err := connector.NewLayoutUpdate(session.Geometry()); err == nil {
		writeEvent(w, env)
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case env, open := <-events:
			if !open {
				return
			}
			writeEvent(w, env)
			flusher.Flush()
		}
	}
}

// writeEvent renders one envelope as an SSE frame.
func writeEvent(w io.Writer, env connector.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Type, data)
}
