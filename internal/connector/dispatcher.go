package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/quadpane/quadpane/internal/logging"
)

// FrameEvents is the engine-side consumer of inbound frame traffic. The
// compositor session implements it; every method may reject with an
// error, which the dispatcher logs and drops.
type FrameEvents interface {
	FrameRegistered(ctx context.Context, frameName string, id FrameID) error
	NavigationReported(ctx context.Context, frameName, url string) error
	TitleReported(ctx context.Context, frameName, title, faviconURL string) error
	ShortcutInvoked(ctx context.Context, frameName string, action Action) error
	OpenRequested(ctx context.Context, frameName string, req OpenRequestPayload) error
}

// maxParkedFrames bounds how many unregistered frame names may hold
// parked reports at once.
const maxParkedFrames = 16

// parkedReports holds the newest report of each kind received for a frame
// name before its registerFrame arrived. A newer report supersedes an
// older one of the same kind, which is what replaying the full sequence
// would leave behind anyway.
type parkedReports struct {
	url      string
	hasURL   bool
	title    TitleReportPayload
	hasTitle bool
}

// Dispatcher glues the Router to a FrameEvents consumer. It owns the
// frameName to FrameID bindings, parks navigation and title reports that
// arrive before registration and replays them once the frame registers,
// rebinds idempotently on repeated registrations, and suppresses
// duplicate open requests. Key presses and open requests are never
// parked: acting on a stale interaction later would be wrong, so they
// dispatch immediately and the consumer decides whether the frame is
// known.
type Dispatcher struct {
	events    FrameEvents
	shortcuts func() ShortcutMap
	dedup     *requestDeduplicator

	mu     sync.Mutex
	bound  map[string]FrameID
	parked map[string]*parkedReports
}

// NewDispatcher wires the event consumer and the shortcut table source.
// shortcuts is consulted per key press so config reloads apply without a
// restart.
func NewDispatcher(events FrameEvents, shortcuts func() ShortcutMap) *Dispatcher {
	return &Dispatcher{
		events:    events,
		shortcuts: shortcuts,
		dedup:     newRequestDeduplicator(),
		bound:     make(map[string]FrameID),
		parked:    make(map[string]*parkedReports),
	}
}

// Register installs the dispatcher's handlers on the router.
func (d *Dispatcher) Register(r *Router) error {
	handlers := map[MessageType]HandlerFunc{
		TypeRegisterFrame:    d.handleRegisterFrame,
		TypeNavigationReport: d.handleNavigationReport,
		TypeTitleReport:      d.handleTitleReport,
		TypeKeyForward:       d.handleKeyForward,
		TypeOpenRequest:      d.handleOpenRequest,
	}
	for t, h := range handlers {
		if err := r.RegisterHandler(t, h); err != nil {
			return err
		}
	}
	return nil
}

// Binding reports the FrameID a frame name is currently bound to.
func (d *Dispatcher) Binding(frameName string) (FrameID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.bound[frameName]
	return id, ok
}

// Unbind drops a frame's binding and any parked reports, typically after
// its pane is removed.
func (d *Dispatcher) Unbind(frameName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bound, frameName)
	delete(d.parked, frameName)
}

func (d *Dispatcher) handleRegisterFrame(ctx context.Context, source FrameID, env Envelope) error {
	var payload RegisterFramePayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("decode registerFrame payload: %w", err)
		}
	}
	name := payload.FrameName
	if name == "" {
		name = env.Frame
	}
	if name == "" {
		return errors.New("registerFrame without a frame name")
	}
	if source == "" {
		return errors.New("registerFrame without a transport source")
	}

	d.mu.Lock()
	previous, rebind := d.bound[name]
	d.bound[name] = source
	replay := d.parked[name]
	delete(d.parked, name)
	d.mu.Unlock()

	log := logging.FromContext(ctx)
	if rebind && previous != source {
		log.Debug().
			Str("frame", name).
			Str("previous", string(previous)).
			Str("source", string(source)).
			Msg("frame rebound to new source")
	}

	if err := d.events.FrameRegistered(ctx, name, source); err != nil {
		return fmt.Errorf("register frame %s: %w", name, err)
	}

	if replay != nil {
		if replay.hasURL {
			if err := d.events.NavigationReported(ctx, name, replay.url); err != nil {
				log.Warn().Err(err).Str("frame", name).Msg("replaying parked navigation report failed")
			}
		}
		if replay.hasTitle {
			if err := d.events.TitleReported(ctx, name, replay.title.Title, replay.title.FaviconURL); err != nil {
				log.Warn().Err(err).Str("frame", name).Msg("replaying parked title report failed")
			}
		}
	}
	return nil
}

func (d *Dispatcher) handleNavigationReport(ctx context.Context, _ FrameID, env Envelope) error {
	var payload NavigationReportPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("decode navigationReport payload: %w", err)
	}
	if env.Frame == "" || payload.URL == "" {
		return errors.New("navigationReport missing frame or url")
	}

	if d.parkIfUnbound(ctx, env.Frame, func(p *parkedReports) {
		p.url = payload.URL
		p.hasURL = true
	}) {
		return nil
	}
	return d.events.NavigationReported(ctx, env.Frame, payload.URL)
}

func (d *Dispatcher) handleTitleReport(ctx context.Context, _ FrameID, env Envelope) error {
	var payload TitleReportPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("decode titleReport payload: %w", err)
	}
	if env.Frame == "" {
		return errors.New("titleReport missing frame")
	}

	if d.parkIfUnbound(ctx, env.Frame, func(p *parkedReports) {
		p.title = payload
		p.hasTitle = true
	}) {
		return nil
	}
	return d.events.TitleReported(ctx, env.Frame, payload.Title, payload.FaviconURL)
}

func (d *Dispatcher) handleKeyForward(ctx context.Context, _ FrameID, env Envelope) error {
	var press KeyPress
	if err := json.Unmarshal(env.Payload, &press); err != nil {
		return fmt.Errorf("decode keyForward payload: %w", err)
	}
	if env.Frame == "" {
		return errors.New("keyForward missing frame")
	}

	// Frames forward more chords than the table binds; unmatched ones
	// are dropped without comment.
	action, ok := d.shortcuts().Resolve(press)
	if !ok {
		return nil
	}
	return d.events.ShortcutInvoked(ctx, env.Frame, action)
}

func (d *Dispatcher) handleOpenRequest(ctx context.Context, _ FrameID, env Envelope) error {
	var payload OpenRequestPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("decode openRequest payload: %w", err)
	}
	if env.Frame == "" || payload.URL == "" {
		return errors.New("openRequest missing frame or url")
	}
	switch payload.Disposition {
	case DispositionAddRight, DispositionReplaceRight:
	default:
		return fmt.Errorf("openRequest with unknown disposition %q", payload.Disposition)
	}

	if dup, reason := d.dedup.isDuplicate(env.Frame, payload); dup {
		logging.FromContext(ctx).Debug().
			Str("frame", env.Frame).
			Str("url", payload.URL).
			Str("reason", reason).
			Msg("suppressed duplicate open request")
		return nil
	}
	return d.events.OpenRequested(ctx, env.Frame, payload)
}

// parkIfUnbound stores a report for later replay when frameName has no
// binding yet. It reports whether the message was consumed by parking.
func (d *Dispatcher) parkIfUnbound(ctx context.Context, frameName string, store func(*parkedReports)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.bound[frameName]; ok {
		return false
	}

	p, ok := d.parked[frameName]
	if !ok {
		if len(d.parked) >= maxParkedFrames {
			logging.FromContext(ctx).Debug().
				Str("frame", frameName).
				Msg("dropped early report, too many unregistered frames")
			return true
		}
		p = &parkedReports{}
		d.parked[frameName] = p
	}
	store(p)
	return true
}
