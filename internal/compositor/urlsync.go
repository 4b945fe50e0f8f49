package compositor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/logging"
	"github.com/quadpane/quadpane/internal/urlstate"
)

// StateSync re-encodes the layout into the URL query value after
// mutations. Encoding is debounced so title-report bursts collapse into
// one encode; the final state is flushed when the sync stops.
type StateSync struct {
	snapshot func() *entity.LayoutState
	publish  func(ctx context.Context, encoded string)
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	dirty   bool
	encoded string
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewStateSync creates a sync around a state snapshot provider and a
// publish callback receiving each freshly encoded value.
func NewStateSync(interval time.Duration, snapshot func() *entity.LayoutState, publish func(ctx context.Context, encoded string)) *StateSync {
	if interval <= 0 {
		interval = 300 * time.Millisecond
	}
	return &StateSync{
		snapshot: snapshot,
		publish:  publish,
		interval: interval,
	}
}

// Start begins watching for dirty state.
func (s *StateSync) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)
	logging.FromContext(ctx).Debug().Dur("interval", s.interval).Msg("url state sync started")
}

// MarkDirty signals that the layout changed. The encode runs once the
// debounce interval passes without further changes.
func (s *StateSync) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()

		if ctx == nil {
			return
		}
		if err := s.EncodeNow(ctx); err != nil {
			logging.FromContext(ctx).Error().Err(err).Msg("url state encode failed")
		}
	})
}

// EncodeNow encodes immediately when dirty, bypassing the debounce.
func (s *StateSync) EncodeNow(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	dirty := s.dirty
	s.dirty = false
	s.mu.Unlock()

	if !dirty {
		return nil
	}

	// The snapshot provider and publish callback take their own locks;
	// ours must not be held across them.
	state := s.snapshot()
	if state == nil || state.PaneCount() == 0 {
		return nil
	}
	encoded, err := urlstate.Encode(state)
	if err != nil {
		return fmt.Errorf("encode layout state: %w", err)
	}

	s.mu.Lock()
	s.encoded = encoded
	s.mu.Unlock()

	if s.publish != nil {
		s.publish(ctx, encoded)
	}
	return nil
}

// Encoded returns the last encoded URL state value.
func (s *StateSync) Encoded() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoded
}

// Stop flushes any pending encode and stops the timer.
func (s *StateSync) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	return s.EncodeNow(ctx)
}
