package compositor

import (
	"context"
	"errors"

	"github.com/quadpane/quadpane/internal/application/usecase"
	"github.com/quadpane/quadpane/internal/connector"
	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/logging"
)

// Session implements connector.FrameEvents; the dispatcher feeds it the
// decoded frame traffic for this session's panes.
var _ connector.FrameEvents = (*Session)(nil)

// FrameRegistered binds the transport identity to the pane that owns the
// frame name. Remote commands become possible from here on.
func (s *Session) FrameRegistered(ctx context.Context, frameName string, id connector.FrameID) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entity.ErrSessionClosed
	}
	pane := s.state.PaneByFrameName(frameName)
	if pane == nil {
		s.mu.Unlock()
		return entity.ErrPaneNotFound
	}
	pane.FrameID = string(id)
	s.mu.Unlock()

	logging.FromContext(ctx).Debug().
		Str("session_id", s.id).
		Str("frame", frameName).
		Str("frame_id", string(id)).
		Msg("frame bound to pane")
	return nil
}

// NavigationReported updates the pane URL after its frame navigated. The
// stale title is dropped until the frame reports a new one; the favicon
// survives same-host navigation. Repeated reports of the current URL are
// ignored so replays stay idempotent.
func (s *Session) NavigationReported(ctx context.Context, frameName, url string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entity.ErrSessionClosed
	}
	pane := s.state.PaneByFrameName(frameName)
	if pane == nil {
		s.mu.Unlock()
		return entity.ErrPaneNotFound
	}
	if pane.URL == url {
		s.mu.Unlock()
		return nil
	}
	prevHost := pane.Hostname()
	pane.URL = url
	pane.Title = ""
	if pane.Hostname() != prevHost {
		pane.FaviconURL = ""
	}
	needIcon := pane.FaviconURL == ""
	paneID := pane.ID
	geom := s.renderLocked()
	s.mu.Unlock()

	s.sync.MarkDirty()
	s.publish(ctx, Event{Kind: EventLayoutChanged, Geometry: geom})

	if s.recorder != nil {
		if err := s.recorder.Execute(ctx, usecase.RecordVisitInput{URL: url}); err != nil {
			logging.FromContext(ctx).Warn().Err(err).
				Str("url", url).
				Msg("failed to record visit")
		}
	}
	if needIcon {
		s.resolveFavicon(ctx, paneID, url)
	}
	return nil
}

// TitleReported stores the reported title and favicon for the pane.
func (s *Session) TitleReported(ctx context.Context, frameName, title, faviconURL string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entity.ErrSessionClosed
	}
	pane := s.state.PaneByFrameName(frameName)
	if pane == nil {
		s.mu.Unlock()
		return entity.ErrPaneNotFound
	}
	pane.Title = title
	if faviconURL != "" {
		pane.FaviconURL = faviconURL
	}
	needIcon := pane.FaviconURL == ""
	paneID := pane.ID
	pageURL := pane.URL
	geom := s.renderLocked()
	s.mu.Unlock()

	s.sync.MarkDirty()
	s.publish(ctx, Event{Kind: EventLayoutChanged, Geometry: geom})

	if s.recorder != nil && title != "" {
		if err := s.recorder.UpdateTitle(ctx, pageURL, title); err != nil {
			logging.FromContext(ctx).Warn().Err(err).
				Str("url", pageURL).
				Msg("failed to update history title")
		}
	}
	if needIcon {
		s.resolveFavicon(ctx, paneID, pageURL)
	}
	return nil
}

// ShortcutInvoked maps a resolved shortcut action onto the session
// operation for the pane whose frame forwarded the chord.
func (s *Session) ShortcutInvoked(ctx context.Context, frameName string, action connector.Action) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entity.ErrSessionClosed
	}
	pane := s.state.PaneByFrameName(frameName)
	if pane == nil {
		s.mu.Unlock()
		return entity.ErrPaneNotFound
	}
	order := pane.Order
	mode := s.state.Mode
	s.mu.Unlock()

	switch action {
	case connector.ActionMoveLeft:
		return s.MovePane(ctx, order, moveToward(mode, false))
	case connector.ActionMoveRight:
		return s.MovePane(ctx, order, moveToward(mode, true))
	case connector.ActionRemovePane:
		return s.RemovePane(ctx, order)
	case connector.ActionDetachPane:
		return s.DetachPane(ctx, order)
	case connector.ActionToggleFull:
		_, err := s.ToggleFullPane(ctx, order)
		return err
	}
	return nil
}

// moveToward maps the directional shortcut pair onto the layout's primary
// axis: vertical stacks move up and down, everything else left and right.
func moveToward(mode entity.LayoutMode, forward bool) usecase.MoveDirection {
	if mode == entity.ModeVertical {
		if forward {
			return usecase.MoveDown
		}
		return usecase.MoveUp
	}
	if forward {
		return usecase.MoveRight
	}
	return usecase.MoveLeft
}

// OpenRequested handles a frame's request to open a link in the composed
// view. At the pane limit the page is handed to the embedder instead.
func (s *Session) OpenRequested(ctx context.Context, frameName string, req connector.OpenRequestPayload) error {
	var err error
	switch req.Disposition {
	case connector.DispositionReplaceRight:
		err = s.ReplaceRight(ctx, frameName, req.URL)
	default:
		_, err = s.AddToRight(ctx, frameName, req.URL)
	}
	if errors.Is(err, entity.ErrPaneLimit) {
		env, envErr := connector.NewOpenPage(req.URL)
		s.sendEnvelope(ctx, env, envErr)
		logging.FromContext(ctx).Debug().
			Str("session_id", s.id).
			Str("url", req.URL).
			Msg("pane limit reached, page handed to embedder")
		return nil
	}
	return err
}

// resolveFavicon fetches a favicon in the background and applies it if the
// pane still shows the same page when the lookup returns.
func (s *Session) resolveFavicon(ctx context.Context, paneID entity.PaneID, pageURL string) {
	if s.favicons == nil || pageURL == "" {
		return
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		icon, err := s.favicons.Resolve(bg, pageURL)
		if err != nil || icon == "" {
			if err != nil {
				logging.FromContext(bg).Debug().Err(err).
					Str("url", pageURL).
					Msg("favicon lookup failed")
			}
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		pane := s.state.PaneByID(paneID)
		if pane == nil || pane.URL != pageURL || pane.FaviconURL != "" {
			s.mu.Unlock()
			return
		}
		pane.FaviconURL = icon
		geom := s.renderLocked()
		s.mu.Unlock()

		s.publish(bg, Event{Kind: EventLayoutChanged, Geometry: geom})
	}()
}
