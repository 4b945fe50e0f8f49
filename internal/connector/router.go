package connector

import (
	"context"
	"errors"
	"sync"

	"github.com/quadpane/quadpane/internal/logging"
)

// Handler consumes one decoded envelope from a transport source.
type Handler interface {
	Handle(ctx context.Context, source FrameID, env Envelope) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, source FrameID, env Envelope) error

// Handle calls f(ctx, source, env).
func (f HandlerFunc) Handle(ctx context.Context, source FrameID, env Envelope) error {
	return f(ctx, source, env)
}

// Router dispatches inbound envelopes to the handler registered for their
// kind. Unknown kinds and failing handlers are logged and swallowed so a
// misbehaving frame can never wedge the channel; only envelope-level
// problems surface to the transport.
type Router struct {
	mu       sync.RWMutex
	handlers map[MessageType]Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[MessageType]Handler)}
}

// RegisterHandler binds a message kind to a handler.
func (r *Router) RegisterHandler(t MessageType, h Handler) error {
	if t == "" {
		return errors.New("message type cannot be empty")
	}
	if h == nil {
		return errors.New("message handler cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
	return nil
}

// Handle decodes one raw message from source and dispatches it. The
// returned error covers undecodable envelopes and newer protocol
// versions; handler failures are logged and dropped.
func (r *Router) Handle(ctx context.Context, source FrameID, raw []byte) error {
	log := logging.FromContext(ctx).With().Str("component", "connector").Logger()

	env, err := DecodeEnvelope(raw)
	if err != nil {
		log.Debug().Err(err).Msg("rejected inbound message")
		return err
	}

	r.mu.RLock()
	h, ok := r.handlers[env.Type]
	r.mu.RUnlock()
	if !ok {
		log.Debug().Str("type", string(env.Type)).Msg("no handler for message kind")
		return nil
	}

	log.Debug().
		Str("type", string(env.Type)).
		Str("frame", env.Frame).
		Str("source", string(source)).
		Int("payload_len", len(env.Payload)).
		Msg("received frame message")

	if err := h.Handle(ctx, source, env); err != nil {
		log.Warn().Err(err).
			Str("type", string(env.Type)).
			Str("frame", env.Frame).
			Msg("message handler failed")
	}
	return nil
}
