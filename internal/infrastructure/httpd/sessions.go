package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/quadpane/quadpane/internal/application/usecase"
	"github.com/quadpane/quadpane/internal/compositor"
	"github.com/quadpane/quadpane/internal/connector"
	"github.com/quadpane/quadpane/internal/domain/entity"
)

// maxMessageBytes bounds a single connector ingress body.
const maxMessageBytes = 1 << 20

// createSessionRequest is the initial descriptor for a composed view.
// State carries an encoded URL state value and wins over the expanded
// fields when both are present.
type createSessionRequest struct {
	State  string    `json:"state,omitempty"`
	URLs   []string  `json:"urls,omitempty"`
	Ratios []float64 `json:"ratios,omitempty"`
	Titles []string  `json:"titles,omitempty"`
	Layout string    `json:"layout,omitempty"`
}

type sessionResponse struct {
	ID       string          `json:"id"`
	Geometry entity.Geometry `json:"geometry"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode session descriptor: %w", err))
		return
	}

	// The session outlives this request; detach its context from the
	// request's cancellation while keeping the server's logger.
	ctx := context.WithoutCancel(r.Context())
	hub := newEventHub()

	var (
		session *compositor.Session
		err     error
	)
	if req.State != "" {
		session, err = h.registry.Create(ctx, req.State, hub)
	} else {
		session, err = h.registry.CreateFromInput(ctx, usecase.NewStateInput{
			URLs:   req.URLs,
			Ratios: req.Ratios,
			Titles: req.Titles,
			Mode:   entity.LayoutMode(req.Layout),
		}, hub)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	h.adoptHub(session, hub)
	writeJSON(w, http.StatusCreated, sessionResponse{
		ID:       session.ID(),
		Geometry: session.Geometry(),
	})
}

func (h *Handler) handleGeometry(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Geometry())
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.registry.Close(context.WithoutCancel(r.Context()), id); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMessages is the connector ingress: each request body is one
// envelope from a frame. The frame's transport identity rides in the
// frame query parameter and binds on registerFrame.
func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read message body: %w", err))
		return
	}
	source := connector.FrameID(r.URL.Query().Get("frame"))
	if err := session.Connector().Handle(r.Context(), source, raw); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// opRequest is one layout command. Op selects the operation; the other
// fields are read as that operation needs them.
type opRequest struct {
	Op        string       `json:"op"`
	Mode      string       `json:"mode,omitempty"`
	Pane      int          `json:"pane,omitempty"`
	Divider   int          `json:"divider,omitempty"`
	Edge      string       `json:"edge,omitempty"`
	URL       string       `json:"url,omitempty"`
	Direction string       `json:"direction,omitempty"`
	Ratio     float64      `json:"ratio,omitempty"`
	Col       float64      `json:"col,omitempty"`
	Row       float64      `json:"row,omitempty"`
	Pos       float64      `json:"pos,omitempty"`
	Span      float64      `json:"span,omitempty"`
	Container *entity.Rect `json:"container,omitempty"`
}

// insertedPane is the wire form of a freshly inserted pane, enough for
// the client to address it in follow-up ops.
type insertedPane struct {
	Order     int    `json:"order"`
	FrameName string `json:"frameName"`
	URL       string `json:"url"`
}

// opResponse reports the outcome. Geometry is omitted when the
// operation closed the session.
type opResponse struct {
	Geometry *entity.Geometry `json:"geometry,omitempty"`
	Pane     *insertedPane    `json:"pane,omitempty"`
	Full     *bool            `json:"full,omitempty"`
	Closed   bool             `json:"closed,omitempty"`
}

func (h *Handler) handleOps(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req opRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode op: %w", err))
		return
	}

	ctx := r.Context()
	var (
		resp opResponse
		err  error
	)
	switch req.Op {
	case "setMode":
		err = session.SetMode(ctx, entity.LayoutMode(req.Mode))
	case "insertAtDivider":
		var pane *entity.Pane
		pane, err = session.InsertAtDivider(ctx, req.Divider, req.URL)
		resp.Pane = paneWire(pane)
	case "insertAtEdge":
		var pane *entity.Pane
		pane, err = session.InsertAtEdge(ctx, usecase.EdgePosition(req.Edge), req.URL)
		resp.Pane = paneWire(pane)
	case "removePane":
		err = session.RemovePane(ctx, req.Pane)
	case "detachPane":
		err = session.DetachPane(ctx, req.Pane)
	case "movePane":
		err = session.MovePane(ctx, req.Pane, usecase.MoveDirection(req.Direction))
	case "toggleFullPane":
		var full bool
		full, err = session.ToggleFullPane(ctx, req.Pane)
		if err == nil {
			resp.Full = &full
		}
	case "setActivePane":
		err = session.SetActivePane(ctx, req.Pane)
	case "setContainer":
		if req.Container == nil {
			writeError(w, http.StatusBadRequest, errors.New("setContainer requires a container rect"))
			return
		}
		err = session.SetContainer(ctx, *req.Container)
	case "setPaneRatio":
		err = session.SetPaneRatio(ctx, req.Pane, req.Ratio)
	case "setGridPercents":
		err = session.SetGridPercents(ctx, req.Col, req.Row)
	case "equalizeRatios":
		err = session.EqualizeRatios(ctx)
	case "beginDividerDrag":
		err = session.BeginDividerDrag(ctx, req.Divider, req.Pos, req.Span)
	case "beginGridColumnDrag":
		err = session.BeginGridColumnDrag(ctx, req.Pos, req.Span)
	case "beginGridRowDrag":
		err = session.BeginGridRowDrag(ctx, req.Pos, req.Span)
	case "dragTo":
		err = session.DragTo(ctx, req.Pos)
	case "endDrag":
		session.EndDrag(ctx)
	case "cancelDrag":
		session.CancelDrag(ctx)
	case "reloadPane":
		err = session.ReloadPane(ctx, req.Pane)
	case "goBackPane":
		err = session.GoBackPane(ctx, req.Pane)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown op %q", req.Op))
		return
	}
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	if session.Closed() {
		resp.Closed = true
	} else {
		g := session.Geometry()
		resp.Geometry = &g
	}
	writeJSON(w, http.StatusOK, resp)
}

func paneWire(p *entity.Pane) *insertedPane {
	if p == nil {
		return nil
	}
	return &insertedPane{Order: p.Order, FrameName: p.FrameName, URL: p.URL}
}
