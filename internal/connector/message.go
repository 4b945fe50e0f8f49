// Package connector implements the frame connector protocol: the typed
// message channel between the compositor engine and the web frames it
// composes. Frames report registrations, navigations, titles and key
// presses inbound; the engine pushes geometry and per-frame commands
// outbound through a CommandSink.
package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/quadpane/quadpane/internal/domain/entity"
)

// ProtocolVersion is the highest envelope version this build understands.
// Decoding accepts any version up to and including it.
const ProtocolVersion = 1

var (
	// ErrUnsupportedVersion rejects envelopes newer than ProtocolVersion.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	// ErrMissingType rejects envelopes without a message kind.
	ErrMissingType = errors.New("envelope missing message type")
)

// FrameID is the transport-assigned identity a frame is bound to when it
// registers. It is the engine's command-target handle for that frame.
type FrameID string

// MessageType identifies a message kind inside an envelope.
type MessageType string

// Inbound kinds (frame -> engine).
const (
	TypeRegisterFrame    MessageType = "registerFrame"
	TypeNavigationReport MessageType = "navigationReport"
	TypeTitleReport      MessageType = "titleReport"
	TypeKeyForward       MessageType = "keyForward"
	TypeOpenRequest      MessageType = "openRequest"
)

// Outbound kinds (engine -> host shell and frames).
const (
	TypeReload           MessageType = "reload"
	TypeGoBack           MessageType = "goBack"
	TypeLayoutUpdate     MessageType = "layoutUpdate"
	TypeStateUpdate      MessageType = "stateUpdate"
	TypeOpenPage         MessageType = "openPage"
	TypeCloseView        MessageType = "closeView"
	TypeCloseViewPromote MessageType = "closeViewPromote"
)

// Envelope is the versioned wire frame around every message. Frame names
// the reporting frame inbound and the target frame outbound; it is empty
// on broadcasts to the host shell.
type Envelope struct {
	Version int             `json:"v"`
	Type    MessageType     `json:"type"`
	Frame   string          `json:"frame,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeEnvelope parses raw bytes into an envelope and gates the version.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version > ProtocolVersion {
		return Envelope{}, fmt.Errorf("%w: got %d, speak at most %d", ErrUnsupportedVersion, env.Version, ProtocolVersion)
	}
	if env.Type == "" {
		return Envelope{}, ErrMissingType
	}
	return env, nil
}

// RegisterFramePayload announces a frame under its stable frame name.
type RegisterFramePayload struct {
	FrameName string `json:"frameName"`
}

// NavigationReportPayload reports a committed navigation inside a frame.
type NavigationReportPayload struct {
	URL string `json:"url"`
}

// TitleReportPayload reports the document title, optionally with the
// page-declared favicon.
type TitleReportPayload struct {
	Title      string `json:"title"`
	FaviconURL string `json:"favicon,omitempty"`
}

// KeyPress is the payload of a keyForward message: a key with the
// modifiers held during the press, as the frame script captured them.
type KeyPress struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// OpenDisposition says where an open request wants its URL composed,
// relative to the requesting pane.
type OpenDisposition string

const (
	DispositionAddRight     OpenDisposition = "addRight"
	DispositionReplaceRight OpenDisposition = "replaceRight"
)

// OpenRequestPayload asks the engine to compose a URL next to the
// requesting pane. RequestID and Timestamp feed duplicate suppression;
// frames may omit both.
type OpenRequestPayload struct {
	URL         string          `json:"url"`
	Disposition OpenDisposition `json:"disposition"`
	RequestID   string          `json:"requestId,omitempty"`
	Timestamp   int64           `json:"timestamp,omitempty"`
}

// ReloadPayload targets a registered frame by its bound identity.
type ReloadPayload struct {
	FrameID FrameID `json:"frameId"`
}

// GoBackPayload targets a registered frame by its bound identity.
type GoBackPayload struct {
	FrameID FrameID `json:"frameId"`
}

// StateUpdatePayload carries the freshly encoded URL state value so the
// host shell can keep the address bar in sync.
type StateUpdatePayload struct {
	State string `json:"state"`
}

// OpenPagePayload asks the host shell to open a URL as a standalone page,
// outside the composed view.
type OpenPagePayload struct {
	URL string `json:"url"`
}

// CloseViewPromotePayload carries the surviving pane's URL when a view
// collapses to a single pane.
type CloseViewPromotePayload struct {
	URL string `json:"url"`
}

// CommandSink delivers outbound envelopes to the embedder transport. The
// HTTP surface implements it over server-sent events; tests record.
type CommandSink interface {
	Send(ctx context.Context, env Envelope) error
}

func newEnvelope(t MessageType, frame string, payload any) (Envelope, error) {
	env := Envelope{Version: ProtocolVersion, Type: t, Frame: frame}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	env.Payload = raw
	return env, nil
}

// NewReload builds the outbound command that reloads one frame.
func NewReload(frameName string, id FrameID) (Envelope, error) {
	return newEnvelope(TypeReload, frameName, ReloadPayload{FrameID: id})
}

// NewGoBack builds the outbound command that navigates one frame back.
func NewGoBack(frameName string, id FrameID) (Envelope, error) {
	return newEnvelope(TypeGoBack, frameName, GoBackPayload{FrameID: id})
}

// NewLayoutUpdate broadcasts a fresh geometry descriptor to the host shell.
func NewLayoutUpdate(g entity.Geometry) (Envelope, error) {
	return newEnvelope(TypeLayoutUpdate, "", g)
}

// NewStateUpdate broadcasts the re-encoded URL state value.
func NewStateUpdate(state string) (Envelope, error) {
	return newEnvelope(TypeStateUpdate, "", StateUpdatePayload{State: state})
}

// NewOpenPage asks the host shell to open a URL as a standalone page.
func NewOpenPage(url string) (Envelope, error) {
	return newEnvelope(TypeOpenPage, "", OpenPagePayload{URL: url})
}

// NewCloseView signals that the last pane was removed and the composed
// view should close.
func NewCloseView() Envelope {
	env, _ := newEnvelope(TypeCloseView, "", nil)
	return env
}

// NewCloseViewPromote signals collapse to a single pane whose URL should
// take over the hosting page.
func NewCloseViewPromote(url string) (Envelope, error) {
	return newEnvelope(TypeCloseViewPromote, "", CloseViewPromotePayload{URL: url})
}
