package compositor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/quadpane/quadpane/internal/application/usecase"
	"github.com/quadpane/quadpane/internal/connector"
	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/logging"
)

// EventKind classifies session events delivered to subscribers.
type EventKind string

const (
	// EventLayoutChanged carries fresh geometry after any visible change.
	EventLayoutChanged EventKind = "layoutChanged"
	// EventStateEncoded carries the re-encoded URL state value.
	EventStateEncoded EventKind = "stateEncoded"
	// EventCloseView signals that the last pane was removed.
	EventCloseView EventKind = "closeView"
	// EventCloseViewPromote signals that a single pane remains and the
	// embedder should navigate to it as a plain page.
	EventCloseViewPromote EventKind = "closeViewPromote"
)

// Event is delivered to subscribers and mirrored onto the command sink.
type Event struct {
	Kind       EventKind
	Geometry   entity.Geometry
	Encoded    string
	PromoteURL string
}

// FaviconResolver resolves a favicon URL for a page. Implementations may
// hit the network; they are always called outside the session lock.
type FaviconResolver interface {
	Resolve(ctx context.Context, pageURL string) (string, error)
}

// Options configures a session. Editor and Resize are required; the rest
// degrade gracefully when nil.
type Options struct {
	ID        string
	State     *entity.LayoutState
	Editor    *usecase.EditLayoutUseCase
	Resize    *usecase.ResizeLayoutUseCase
	Recorder  *usecase.RecordVisitUseCase
	Favicons  FaviconResolver
	Sink      connector.CommandSink
	Shortcuts func() connector.ShortcutMap
	// StateDebounce is the quiet window before the layout is re-encoded
	// into its URL form. Zero selects the default.
	StateDebounce time.Duration
}

// Session owns one composed view: its layout state, the drag gesture
// machine, the URL state debouncer and the frame connector wiring.
//
// All mutation happens under mu through a clone-validate-swap cycle, so a
// failing operation leaves the previous state untouched. Events and sink
// envelopes are published after the lock is released.
type Session struct {
	id       string
	editor   *usecase.EditLayoutUseCase
	resize   *usecase.ResizeLayoutUseCase
	recorder *usecase.RecordVisitUseCase
	favicons FaviconResolver
	sink     connector.CommandSink

	router     *connector.Router
	dispatcher *connector.Dispatcher
	sync       *StateSync

	mu           sync.Mutex
	state        *entity.LayoutState
	container    entity.Rect
	drag         *DragController
	subscribers  map[chan Event]struct{}
	closed       bool
	promoteFired bool
}

// NewSession builds and starts a session around an already-validated
// layout state. The caller keeps no reference to state afterwards.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.State == nil {
		return nil, errors.New("session requires an initial layout state")
	}
	if opts.Editor == nil || opts.Resize == nil {
		return nil, errors.New("session requires edit and resize use cases")
	}
	shortcuts := opts.Shortcuts
	if shortcuts == nil {
		shortcuts = func() connector.ShortcutMap { return nil }
	}

	s := &Session{
		id:          opts.ID,
		editor:      opts.Editor,
		resize:      opts.Resize,
		recorder:    opts.Recorder,
		favicons:    opts.Favicons,
		sink:        opts.Sink,
		state:       opts.State,
		drag:        NewDragController(opts.Resize),
		subscribers: make(map[chan Event]struct{}),
	}
	s.router = connector.NewRouter()
	s.dispatcher = connector.NewDispatcher(s, shortcuts)
	if err := s.dispatcher.Register(s.router); err != nil {
		return nil, err
	}
	s.sync = NewStateSync(opts.StateDebounce, s.State, s.publishEncoded)
	s.sync.Start(ctx)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Closed reports whether the session has been shut down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Connector returns the message router frames deliver their messages to.
func (s *Session) Connector() *connector.Router { return s.router }

// State returns a deep copy of the current layout state.
func (s *Session) State() *entity.LayoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// EncodedState returns the most recently encoded URL state value.
func (s *Session) EncodedState() string { return s.sync.Encoded() }

// Geometry renders the current state into the current container.
func (s *Session) Geometry() entity.Geometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderLocked()
}

// renderLocked renders and decorates the result with gesture state.
// Callers hold mu.
func (s *Session) renderLocked() entity.Geometry {
	g := Render(s.state, s.container)
	g.DragActive = s.drag.Active()
	return g
}

// Subscribe registers an event channel. The returned cancel func
// unregisters it; the channel is closed on cancel or session close.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// publish fans events out to subscribers and mirrors them onto the sink.
// Never called with mu held. Slow subscribers lose events rather than
// stalling the session.
func (s *Session) publish(ctx context.Context, events ...Event) {
	s.mu.Lock()
	subs := make([]chan Event, 0, len(s.subscribers))
	for ch := range s.subscribers {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ev := range events {
		for _, ch := range subs {
			select {
			case ch <- ev:
			default:
				logging.FromContext(ctx).Debug().
					Str("session_id", s.id).
					Str("event", string(ev.Kind)).
					Msg("subscriber full, event dropped")
			}
		}
		s.sendEventEnvelope(ctx, ev)
	}
}

// sendEventEnvelope translates an event into its wire form for the shell.
func (s *Session) sendEventEnvelope(ctx context.Context, ev Event) {
	if s.sink == nil {
		return
	}
	var (
		env connector.Envelope
		err error
	)
	switch ev.Kind {
	case EventLayoutChanged:
		env, err = connector.NewLayoutUpdate(ev.Geometry)
	case EventStateEncoded:
		env, err = connector.NewStateUpdate(ev.Encoded)
	case EventCloseView:
		env = connector.NewCloseView()
	case EventCloseViewPromote:
		env, err = connector.NewCloseViewPromote(ev.PromoteURL)
	default:
		return
	}
	if err == nil {
		err = s.sink.Send(ctx, env)
	}
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).
			Str("session_id", s.id).
			Str("event", string(ev.Kind)).
			Msg("failed to deliver event to shell")
	}
}

// sendEnvelope pushes a single command envelope to the shell.
func (s *Session) sendEnvelope(ctx context.Context, env connector.Envelope, err error) {
	if s.sink == nil || err != nil {
		if err != nil {
			logging.FromContext(ctx).Warn().Err(err).
				Str("session_id", s.id).
				Msg("failed to build command envelope")
		}
		return
	}
	if err := s.sink.Send(ctx, env); err != nil {
		logging.FromContext(ctx).Warn().Err(err).
			Str("session_id", s.id).
			Str("type", string(env.Type)).
			Msg("failed to deliver command to shell")
	}
}

// publishEncoded is the StateSync publish callback.
func (s *Session) publishEncoded(ctx context.Context, encoded string) {
	s.publish(ctx, Event{Kind: EventStateEncoded, Encoded: encoded})
}

// mutate runs a structural or resize edit through clone-validate-swap.
// Any active drag gesture is cancelled first: its captured baseline no
// longer matches what the edit produces.
func (s *Session) mutate(ctx context.Context, fn func(st *entity.LayoutState) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entity.ErrSessionClosed
	}
	s.drag.Cancel(ctx)

	work := s.state.Clone()
	if err := fn(work); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := work.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = work
	geom := s.renderLocked()
	s.mu.Unlock()

	s.sync.MarkDirty()
	s.publish(ctx, Event{Kind: EventLayoutChanged, Geometry: geom})
	return nil
}

// SetContainer updates the container rect and re-renders. The container
// is runtime-only and never part of the encoded state.
func (s *Session) SetContainer(ctx context.Context, container entity.Rect) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entity.ErrSessionClosed
	}
	s.container = container
	geom := s.renderLocked()
	s.mu.Unlock()

	s.publish(ctx, Event{Kind: EventLayoutChanged, Geometry: geom})
	return nil
}

// SetMode switches the layout mode.
func (s *Session) SetMode(ctx context.Context, mode entity.LayoutMode) error {
	return s.mutate(ctx, func(st *entity.LayoutState) error {
		return s.editor.SetMode(ctx, st, mode)
	})
}

// InsertAtDivider splits the divider with the given order, inserting a new
// pane between its neighbors.
func (s *Session) InsertAtDivider(ctx context.Context, dividerOrder int, url string) (*entity.Pane, error) {
	var inserted *entity.Pane
	err := s.mutate(ctx, func(st *entity.LayoutState) error {
		p, err := s.editor.InsertAtDivider(ctx, st, dividerOrder, url)
		inserted = p
		return err
	})
	if err != nil {
		return nil, err
	}
	s.clearPromoteGuard()
	return inserted, nil
}

// InsertAtEdge appends a pane at the head or tail of the layout.
func (s *Session) InsertAtEdge(ctx context.Context, edge usecase.EdgePosition, url string) (*entity.Pane, error) {
	var inserted *entity.Pane
	err := s.mutate(ctx, func(st *entity.LayoutState) error {
		p, err := s.editor.InsertAtEdge(ctx, st, edge, url)
		inserted = p
		return err
	})
	if err != nil {
		return nil, err
	}
	s.clearPromoteGuard()
	return inserted, nil
}

// clearPromoteGuard re-arms the promote lifecycle signal after the pane
// count rises again.
func (s *Session) clearPromoteGuard() {
	s.mu.Lock()
	s.promoteFired = false
	s.mu.Unlock()
}

// RemovePane removes the pane with the given order. Dropping to one pane
// emits closeViewPromote with the survivor URL; dropping to zero emits
// closeView and closes the session.
func (s *Session) RemovePane(ctx context.Context, order int) error {
	_, err := s.removeByOrder(ctx, order)
	return err
}

// DetachPane removes the pane and asks the embedder to reopen its URL as
// a standalone page.
func (s *Session) DetachPane(ctx context.Context, order int) error {
	out, err := s.removeByOrder(ctx, order)
	if err != nil {
		return err
	}
	env, envErr := connector.NewOpenPage(out.Removed.URL)
	s.sendEnvelope(ctx, env, envErr)
	return nil
}

// removeByOrder is the shared removal path with lifecycle handling. The
// zero-pane terminal state intentionally skips validation; the session is
// closing and the state will never be read for layout again.
func (s *Session) removeByOrder(ctx context.Context, order int) (*usecase.RemoveOutput, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, entity.ErrSessionClosed
	}
	s.drag.Cancel(ctx)

	work := s.state.Clone()
	out, err := s.editor.Remove(ctx, work, order)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if out.Remaining > 0 {
		if err := work.Validate(); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	s.state = work

	events := make([]Event, 0, 2)
	var closing bool
	switch out.Remaining {
	case 0:
		s.closed = true
		closing = true
		events = append(events, Event{Kind: EventCloseView})
	case 1:
		events = append(events, Event{Kind: EventLayoutChanged, Geometry: s.renderLocked()})
		if !s.promoteFired {
			s.promoteFired = true
			events = append(events, Event{Kind: EventCloseViewPromote, PromoteURL: out.PromoteURL})
		}
	default:
		events = append(events, Event{Kind: EventLayoutChanged, Geometry: s.renderLocked()})
	}
	s.mu.Unlock()

	if out.Removed != nil && out.Removed.FrameName != "" {
		s.dispatcher.Unbind(out.Removed.FrameName)
	}
	if !closing {
		s.sync.MarkDirty()
	}
	s.publish(ctx, events...)
	if closing {
		s.finish(ctx)
	}
	return out, nil
}

// MovePane swaps the pane with its neighbor in the given direction.
func (s *Session) MovePane(ctx context.Context, order int, dir usecase.MoveDirection) error {
	return s.mutate(ctx, func(st *entity.LayoutState) error {
		return s.editor.Move(ctx, st, order, dir)
	})
}

// ToggleFullPane toggles the full-pane override for the given pane and
// reports the resulting state.
func (s *Session) ToggleFullPane(ctx context.Context, order int) (bool, error) {
	var full bool
	err := s.mutate(ctx, func(st *entity.LayoutState) error {
		f, err := s.editor.ToggleFullPane(ctx, st, order)
		full = f
		return err
	})
	return full, err
}

// SetActivePane marks the pane under the pointer. Activity is runtime
// presentation state and is not re-encoded.
func (s *Session) SetActivePane(ctx context.Context, order int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entity.ErrSessionClosed
	}
	pane := s.state.PaneByOrder(order)
	if pane == nil {
		s.mu.Unlock()
		return entity.ErrPaneNotFound
	}
	if s.state.ActivePaneID == pane.ID {
		s.mu.Unlock()
		return nil
	}
	s.state.ActivePaneID = pane.ID
	geom := s.renderLocked()
	s.mu.Unlock()

	s.publish(ctx, Event{Kind: EventLayoutChanged, Geometry: geom})
	return nil
}

// SetPaneRatio sets one pane's ratio, compensating its neighbor.
func (s *Session) SetPaneRatio(ctx context.Context, order int, ratio float64) error {
	return s.mutate(ctx, func(st *entity.LayoutState) error {
		return s.resize.SetPaneRatio(ctx, st, order, ratio)
	})
}

// SetGridPercents sets both grid split percents.
func (s *Session) SetGridPercents(ctx context.Context, col, row float64) error {
	return s.mutate(ctx, func(st *entity.LayoutState) error {
		return s.resize.SetGridPercents(ctx, st, col, row)
	})
}

// EqualizeRatios distributes ratios evenly across all panes.
func (s *Session) EqualizeRatios(ctx context.Context) error {
	return s.mutate(ctx, func(st *entity.LayoutState) error {
		s.resize.EqualizeAll(ctx, st)
		return nil
	})
}

// BeginDividerDrag starts a divider drag gesture. pos and span are in
// container units along the layout's primary axis.
func (s *Session) BeginDividerDrag(ctx context.Context, dividerOrder int, pos, span float64) error {
	return s.beginDrag(ctx, func() error {
		return s.drag.BeginDivider(ctx, s.state, dividerOrder, pos, span)
	})
}

// BeginGridColumnDrag starts a grid column split drag.
func (s *Session) BeginGridColumnDrag(ctx context.Context, pos, span float64) error {
	return s.beginDrag(ctx, func() error {
		return s.drag.BeginGridColumn(ctx, s.state, pos, span)
	})
}

// BeginGridRowDrag starts a grid row split drag.
func (s *Session) BeginGridRowDrag(ctx context.Context, pos, span float64) error {
	return s.beginDrag(ctx, func() error {
		return s.drag.BeginGridRow(ctx, s.state, pos, span)
	})
}

func (s *Session) beginDrag(ctx context.Context, begin func() error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entity.ErrSessionClosed
	}
	if err := begin(); err != nil {
		s.mu.Unlock()
		return err
	}
	geom := s.renderLocked()
	s.mu.Unlock()

	s.publish(ctx, Event{Kind: EventLayoutChanged, Geometry: geom})
	return nil
}

// DragTo moves the active gesture to a new pointer position. Intermediate
// positions re-render but are not re-encoded; only the gesture end is.
func (s *Session) DragTo(ctx context.Context, pos float64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entity.ErrSessionClosed
	}
	if err := s.drag.DragTo(ctx, s.state, pos); err != nil {
		s.mu.Unlock()
		return err
	}
	geom := s.renderLocked()
	s.mu.Unlock()

	s.publish(ctx, Event{Kind: EventLayoutChanged, Geometry: geom})
	return nil
}

// EndDrag finishes the active gesture, committing its final position.
func (s *Session) EndDrag(ctx context.Context) {
	s.settleDrag(ctx, s.drag.End)
}

// CancelDrag abandons the gesture, keeping its last applied state.
func (s *Session) CancelDrag(ctx context.Context) {
	s.settleDrag(ctx, s.drag.Cancel)
}

func (s *Session) settleDrag(ctx context.Context, settle func(context.Context) bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !settle(ctx) {
		s.mu.Unlock()
		return
	}
	geom := s.renderLocked()
	s.mu.Unlock()

	s.sync.MarkDirty()
	s.publish(ctx, Event{Kind: EventLayoutChanged, Geometry: geom})
}

// ReloadPane asks the pane's rendering context to reload.
func (s *Session) ReloadPane(ctx context.Context, order int) error {
	frameName, frameID, err := s.frameHandle(order)
	if err != nil {
		return err
	}
	env, envErr := connector.NewReload(frameName, frameID)
	s.sendEnvelope(ctx, env, envErr)
	return nil
}

// GoBackPane asks the pane's rendering context to navigate back.
func (s *Session) GoBackPane(ctx context.Context, order int) error {
	frameName, frameID, err := s.frameHandle(order)
	if err != nil {
		return err
	}
	env, envErr := connector.NewGoBack(frameName, frameID)
	s.sendEnvelope(ctx, env, envErr)
	return nil
}

// frameHandle returns the addressing pair for remote frame commands.
func (s *Session) frameHandle(order int) (string, connector.FrameID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", "", entity.ErrSessionClosed
	}
	pane := s.state.PaneByOrder(order)
	if pane == nil {
		return "", "", entity.ErrPaneNotFound
	}
	if !pane.Registered() {
		return "", "", entity.ErrFrameNotRegistered
	}
	return pane.FrameName, connector.FrameID(pane.FrameID), nil
}

// AddToRight inserts url to the right of the requesting pane, or appends
// at the tail when the requester is last. Grid layouts are already at the
// pane limit, so the edit fails there and the caller falls back.
func (s *Session) AddToRight(ctx context.Context, frameName, url string) (*entity.Pane, error) {
	var inserted *entity.Pane
	err := s.mutate(ctx, func(st *entity.LayoutState) error {
		requester := st.PaneByFrameName(frameName)
		if requester == nil {
			return entity.ErrPaneNotFound
		}
		divider := st.DividerAfter(requester.Order)
		var (
			p   *entity.Pane
			err error
		)
		if divider == nil {
			p, err = s.editor.InsertAtEdge(ctx, st, usecase.EdgeTail, url)
		} else {
			p, err = s.editor.InsertAtDivider(ctx, st, divider.Order, url)
		}
		inserted = p
		return err
	})
	if err != nil {
		return nil, err
	}
	s.clearPromoteGuard()
	return inserted, nil
}

// ReplaceRight navigates the pane to the right of the requester to url,
// falling back to an insert when the requester has no right neighbor.
func (s *Session) ReplaceRight(ctx context.Context, frameName, url string) error {
	replaced := false
	err := s.mutate(ctx, func(st *entity.LayoutState) error {
		requester := st.PaneByFrameName(frameName)
		if requester == nil {
			return entity.ErrPaneNotFound
		}
		panes := st.Panes()
		idx := st.PaneIndex(requester.Order)
		if idx < 0 || idx == len(panes)-1 {
			return entity.ErrNoAdjacentPane
		}
		next := panes[idx+1]
		next.URL = url
		next.Title = ""
		next.FaviconURL = ""
		replaced = true
		return nil
	})
	if errors.Is(err, entity.ErrNoAdjacentPane) {
		_, err = s.AddToRight(ctx, frameName, url)
		return err
	}
	if err != nil {
		return err
	}
	if replaced {
		s.mu.Lock()
		requester := s.state.PaneByFrameName(frameName)
		var neighbor *entity.Pane
		if requester != nil {
			panes := s.state.Panes()
			if idx := s.state.PaneIndex(requester.Order); idx >= 0 && idx+1 < len(panes) {
				neighbor = panes[idx+1]
			}
		}
		s.mu.Unlock()
		if neighbor != nil {
			s.resolveFavicon(ctx, neighbor.ID, url)
		}
	}
	return nil
}

// Close shuts the session down: subscribers are closed, the pending URL
// state is flushed and further operations fail with ErrSessionClosed.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.drag.Cancel(ctx)
	s.mu.Unlock()

	s.finish(ctx)
	return nil
}

// finish tears down the session's moving parts after closed is set. The
// sync flush is a no-op when the last pane is already gone.
func (s *Session) finish(ctx context.Context) {
	s.mu.Lock()
	subs := make([]chan Event, 0, len(s.subscribers))
	for ch := range s.subscribers {
		subs = append(subs, ch)
	}
	s.subscribers = make(map[chan Event]struct{})
	s.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
	if err := s.sync.Stop(ctx); err != nil {
		logging.FromContext(ctx).Warn().Err(err).
			Str("session_id", s.id).
			Msg("failed to flush encoded state on close")
	}
}
