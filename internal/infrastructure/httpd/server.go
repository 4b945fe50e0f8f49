// Package httpd hosts the compositor engine over HTTP: a JSON API for
// session control, server-sent events carrying the engine's outbound
// envelopes, and an embedded shell page that materializes composed
// views with iframes.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/quadpane/quadpane/internal/logging"
)

const shutdownGracePeriod = 10 * time.Second

// Server owns the listener and the serving goroutine.
type Server struct {
	addr    string
	handler *Handler

	mu         sync.Mutex
	running    bool
	listener   net.Listener
	httpServer *http.Server
	wg         sync.WaitGroup
}

// NewServer creates a server for the given listen address. The address
// may carry port zero; Addr reports what was actually bound.
func NewServer(addr string, handler *Handler) *Server {
	return &Server{addr: addr, handler: handler}
}

// Start binds the address and serves in the background. ctx becomes the
// base context of every request, so handlers inherit its logger and
// event streams end when it is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	// WriteTimeout stays zero: event streams hold their response open
	// for the life of the client.
	srv := &http.Server{
		Handler:           s.handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.listener = lis
	s.httpServer = srv
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.FromContext(ctx).Error().Err(err).Msg("http server stopped")
		}
	}()

	logging.FromContext(ctx).Info().
		Str("addr", lis.Addr().String()).
		Msg("http server listening")
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting connections and drains in-flight requests.
// Sessions are not touched; the caller closes the registry first so
// event streams drain instead of running out the grace period.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	srv := s.httpServer
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGracePeriod)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.wg.Wait()
	return err
}
