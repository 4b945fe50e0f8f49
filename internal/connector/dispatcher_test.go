package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
)

type recordedEvent struct {
	kind  string
	frame string
	value string
}

type eventRecorder struct {
	events []recordedEvent
}

func (r *eventRecorder) FrameRegistered(_ context.Context, frameName string, id FrameID) error {
	r.events = append(r.events, recordedEvent{"register", frameName, string(id)})
	return nil
}

func (r *eventRecorder) NavigationReported(_ context.Context, frameName, url string) error {
	r.events = append(r.events, recordedEvent{"navigation", frameName, url})
	return nil
}

func (r *eventRecorder) TitleReported(_ context.Context, frameName, title, faviconURL string) error {
	r.events = append(r.events, recordedEvent{"title", frameName, title + "|" + faviconURL})
	return nil
}

func (r *eventRecorder) ShortcutInvoked(_ context.Context, frameName string, action Action) error {
	r.events = append(r.events, recordedEvent{"shortcut", frameName, string(action)})
	return nil
}

func (r *eventRecorder) OpenRequested(_ context.Context, frameName string, req OpenRequestPayload) error {
	r.events = append(r.events, recordedEvent{"open", frameName, req.URL + "|" + string(req.Disposition)})
	return nil
}

func testShortcuts() ShortcutMap {
	return NewShortcutMap(map[string]Action{
		"ctrl+shift+ArrowLeft":  ActionMoveLeft,
		"ctrl+shift+ArrowRight": ActionMoveRight,
		"ctrl+shift+x":          ActionRemovePane,
	})
}

func newTestDispatcher(t *testing.T) (*Router, *Dispatcher, *eventRecorder) {
	t.Helper()
	rec := &eventRecorder{}
	d := NewDispatcher(rec, testShortcuts)
	r := NewRouter()
	if err := d.Register(r); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return r, d, rec
}

func send(t *testing.T, r *Router, source FrameID, msgType MessageType, frame string, payload any) {
	t.Helper()
	env := Envelope{Version: ProtocolVersion, Type: msgType, Frame: frame}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		env.Payload = raw
	}
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	if err := r.Handle(context.Background(), source, raw); err != nil {
		t.Fatalf("Handle(%s) error = %v", msgType, err)
	}
}

func TestReportsBeforeRegistrationAreParkedAndReplayed(t *testing.T) {
	r, _, rec := newTestDispatcher(t)

	send(t, r, "src-1", TypeNavigationReport, "qp-a", NavigationReportPayload{URL: "https://one.example"})
	send(t, r, "src-1", TypeNavigationReport, "qp-a", NavigationReportPayload{URL: "https://two.example"})
	send(t, r, "src-1", TypeTitleReport, "qp-a", TitleReportPayload{Title: "Two"})
	if len(rec.events) != 0 {
		t.Fatalf("events before registration = %v, want none", rec.events)
	}

	send(t, r, "src-1", TypeRegisterFrame, "qp-a", RegisterFramePayload{FrameName: "qp-a"})

	want := []recordedEvent{
		{"register", "qp-a", "src-1"},
		{"navigation", "qp-a", "https://two.example"},
		{"title", "qp-a", "Two|"},
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Fatalf("event[%d] = %v, want %v", i, rec.events[i], want[i])
		}
	}
}

func TestReportsAfterRegistrationFlowThrough(t *testing.T) {
	r, _, rec := newTestDispatcher(t)

	send(t, r, "src-1", TypeRegisterFrame, "", RegisterFramePayload{FrameName: "qp-a"})
	send(t, r, "src-1", TypeNavigationReport, "qp-a", NavigationReportPayload{URL: "https://x.example"})
	send(t, r, "src-1", TypeTitleReport, "qp-a", TitleReportPayload{Title: "X", FaviconURL: "https://x.example/icon.png"})

	if len(rec.events) != 3 {
		t.Fatalf("events = %v, want 3", rec.events)
	}
	if rec.events[2] != (recordedEvent{"title", "qp-a", "X|https://x.example/icon.png"}) {
		t.Fatalf("title event = %v", rec.events[2])
	}
}

func TestDuplicateRegisterRebindsIdempotently(t *testing.T) {
	r, d, rec := newTestDispatcher(t)

	send(t, r, "src-1", TypeRegisterFrame, "qp-a", RegisterFramePayload{FrameName: "qp-a"})
	send(t, r, "src-2", TypeRegisterFrame, "qp-a", RegisterFramePayload{FrameName: "qp-a"})

	if id, ok := d.Binding("qp-a"); !ok || id != "src-2" {
		t.Fatalf("Binding() = %q/%v, want src-2 bound", id, ok)
	}
	if len(rec.events) != 2 || rec.events[1].value != "src-2" {
		t.Fatalf("events = %v, want two registrations ending on src-2", rec.events)
	}

	// Reports keyed by the name keep flowing after the rebind.
	send(t, r, "src-2", TypeNavigationReport, "qp-a", NavigationReportPayload{URL: "https://again.example"})
	if rec.events[2].kind != "navigation" {
		t.Fatalf("post-rebind event = %v", rec.events[2])
	}
}

func TestUnbindDropsBindingAndParkedReports(t *testing.T) {
	r, d, rec := newTestDispatcher(t)

	send(t, r, "src-1", TypeNavigationReport, "qp-a", NavigationReportPayload{URL: "https://stale.example"})
	d.Unbind("qp-a")
	send(t, r, "src-1", TypeRegisterFrame, "qp-a", RegisterFramePayload{FrameName: "qp-a"})

	if len(rec.events) != 1 || rec.events[0].kind != "register" {
		t.Fatalf("events = %v, want registration only", rec.events)
	}
}

func TestMalformedPayloadDropsMessage(t *testing.T) {
	r, _, rec := newTestDispatcher(t)

	send(t, r, "src-1", TypeRegisterFrame, "qp-a", RegisterFramePayload{FrameName: "qp-a"})
	raw := []byte(`{"v":1,"type":"navigationReport","frame":"qp-a","payload":{"url":42}}`)
	if err := r.Handle(context.Background(), "src-1", raw); err != nil {
		t.Fatalf("Handle() error = %v, want malformed payload swallowed", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("events = %v, want registration only", rec.events)
	}
}

func TestKeyForwardResolvesAgainstShortcutTable(t *testing.T) {
	r, _, rec := newTestDispatcher(t)

	send(t, r, "src-1", TypeRegisterFrame, "qp-a", RegisterFramePayload{FrameName: "qp-a"})
	send(t, r, "src-1", TypeKeyForward, "qp-a", KeyPress{Key: "ArrowLeft", Modifiers: []string{"Shift", "Control"}})
	send(t, r, "src-1", TypeKeyForward, "qp-a", KeyPress{Key: "z", Modifiers: []string{"Ctrl"}})

	var shortcuts []recordedEvent
	for _, e := range rec.events {
		if e.kind == "shortcut" {
			shortcuts = append(shortcuts, e)
		}
	}
	if len(shortcuts) != 1 {
		t.Fatalf("shortcut events = %v, want exactly the bound chord", shortcuts)
	}
	if shortcuts[0].value != string(ActionMoveLeft) {
		t.Fatalf("action = %q, want %q", shortcuts[0].value, ActionMoveLeft)
	}
}

func TestOpenRequestDeduplicatesByRequestID(t *testing.T) {
	r, _, rec := newTestDispatcher(t)

	req := OpenRequestPayload{
		URL:         "https://link.example",
		Disposition: DispositionAddRight,
		RequestID:   "req-1",
		Timestamp:   1000,
	}
	send(t, r, "src-1", TypeOpenRequest, "qp-a", req)
	send(t, r, "src-1", TypeOpenRequest, "qp-a", req)

	var opens int
	for _, e := range rec.events {
		if e.kind == "open" {
			opens++
		}
	}
	if opens != 1 {
		t.Fatalf("open events = %d, want 1", opens)
	}
}

func TestOpenRequestDeduplicatesByFingerprint(t *testing.T) {
	r, _, rec := newTestDispatcher(t)

	for i, ts := range []int64{1000, 1020, 60000} {
		send(t, r, "src-1", TypeOpenRequest, "qp-a", OpenRequestPayload{
			URL:         "https://link.example",
			Disposition: DispositionReplaceRight,
			RequestID:   fmt.Sprintf("req-%d", i),
			Timestamp:   ts,
		})
	}

	var opens int
	for _, e := range rec.events {
		if e.kind == "open" {
			opens++
		}
	}
	// 1000 and 1020 land in the same coarse bucket inside the window;
	// 60000 is a fresh request.
	if opens != 2 {
		t.Fatalf("open events = %d, want 2", opens)
	}
}

func TestOpenRequestRejectsUnknownDisposition(t *testing.T) {
	r, _, rec := newTestDispatcher(t)

	send(t, r, "src-1", TypeOpenRequest, "qp-a", OpenRequestPayload{
		URL:         "https://link.example",
		Disposition: "sideways",
	})
	for _, e := range rec.events {
		if e.kind == "open" {
			t.Fatalf("open event recorded for unknown disposition: %v", e)
		}
	}
}
