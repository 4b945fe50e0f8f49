package compositor

import (
	"context"
	"errors"

	"github.com/quadpane/quadpane/internal/application/usecase"
	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/logging"
)

type dragKind int

const (
	dragNone dragKind = iota
	dragDivider
	dragGridColumn
	dragGridRow
)

// DragController tracks one pointer gesture resizing the layout: a linear
// divider drag or a grid axis drag. It holds gesture state only; the
// ratio math lives in the resize use case. Positions are coordinates
// along the drag axis in the container's space. The owning session
// serializes all calls.
//
// Ratios are re-applied against the gesture-start baseline on every
// DragTo, so the divider tracks the pointer exactly even after a floor
// clamp, instead of drifting the way accumulated increments would.
type DragController struct {
	resize *usecase.ResizeLayoutUseCase

	kind         dragKind
	dividerOrder int
	startPos     float64
	available    float64 // primary-axis span minus divider thickness
	span         float64 // full primary-axis span, grid drags
	baseLeft     float64
	baseRight    float64
}

// NewDragController creates an idle controller.
func NewDragController(resize *usecase.ResizeLayoutUseCase) *DragController {
	return &DragController{resize: resize}
}

// Active reports whether a gesture is in progress.
func (d *DragController) Active() bool {
	return d.kind != dragNone
}

// BeginDivider starts a drag on the linear divider with the given order.
// pos is the pointer's axis coordinate, span the container's primary-axis
// size. Starting a new gesture while one is active abandons the old one,
// keeping whatever state it last applied.
func (d *DragController) BeginDivider(ctx context.Context, state *entity.LayoutState, dividerOrder int, pos, span float64) error {
	if state.FullPane() != nil {
		return entity.ErrFullPaneActive
	}
	left, right := state.DividerNeighbors(dividerOrder)
	if left == nil || right == nil {
		return entity.ErrDividerNotFound
	}

	available := span - entity.DividerThickness*float64(state.PaneCount()-1)
	if available <= 0 {
		return errors.New("container too small to drag")
	}

	d.kind = dragDivider
	d.dividerOrder = dividerOrder
	d.startPos = pos
	d.available = available
	d.baseLeft = left.Ratio
	d.baseRight = right.Ratio

	logging.FromContext(ctx).Debug().
		Int("divider", dividerOrder).
		Float64("pos", pos).
		Msg("divider drag started")
	return nil
}

// BeginGridColumn starts a drag on the grid's vertical overlay divider.
func (d *DragController) BeginGridColumn(ctx context.Context, state *entity.LayoutState, pos, span float64) error {
	return d.beginGrid(ctx, state, dragGridColumn, pos, span)
}

// BeginGridRow starts a drag on the grid's horizontal overlay divider.
func (d *DragController) BeginGridRow(ctx context.Context, state *entity.LayoutState, pos, span float64) error {
	return d.beginGrid(ctx, state, dragGridRow, pos, span)
}

func (d *DragController) beginGrid(ctx context.Context, state *entity.LayoutState, kind dragKind, pos, span float64) error {
	if state.FullPane() != nil {
		return entity.ErrFullPaneActive
	}
	if state.Mode != entity.ModeGrid {
		return entity.ErrInvalidMode
	}
	if span <= 0 {
		return errors.New("container too small to drag")
	}

	d.kind = kind
	d.startPos = pos
	d.span = span

	logging.FromContext(ctx).Debug().
		Bool("column", kind == dragGridColumn).
		Float64("pos", pos).
		Msg("grid drag started")
	return nil
}

// DragTo applies the gesture at the new pointer position. Divider drags
// convert the travelled distance to a ratio delta over the available
// span; grid drags set the axis percent straight from the pointer's
// fraction of the container, clamped to the drag band.
func (d *DragController) DragTo(ctx context.Context, state *entity.LayoutState, pos float64) error {
	switch d.kind {
	case dragDivider:
		left, right := state.DividerNeighbors(d.dividerOrder)
		if left == nil || right == nil {
			// The layout changed under the gesture.
			d.reset()
			return entity.ErrDividerNotFound
		}
		left.Ratio = d.baseLeft
		right.Ratio = d.baseRight
		delta := (pos - d.startPos) / d.available * 100
		return d.resize.ApplyDividerDelta(ctx, state, d.dividerOrder, delta)

	case dragGridColumn:
		percent := usecase.ClampGridPercent(pos / d.span * 100)
		return d.resize.SetGridPercents(ctx, state, percent, state.GridRowPercent)

	case dragGridRow:
		percent := usecase.ClampGridPercent(pos / d.span * 100)
		return d.resize.SetGridPercents(ctx, state, state.GridColumnPercent, percent)

	default:
		return entity.ErrNoDrag
	}
}

// End commits the gesture and returns to idle. It reports whether a
// gesture was actually in progress, so callers know to publish.
func (d *DragController) End(ctx context.Context) bool {
	if d.kind == dragNone {
		return false
	}
	logging.FromContext(ctx).Debug().Msg("drag ended")
	d.reset()
	return true
}

// Cancel returns to idle keeping whatever consistent state the gesture
// last applied. There is no rollback: every intermediate state already
// satisfied the invariants.
func (d *DragController) Cancel(ctx context.Context) bool {
	if d.kind == dragNone {
		return false
	}
	logging.FromContext(ctx).Debug().Msg("drag cancelled")
	d.reset()
	return true
}

func (d *DragController) reset() {
	d.kind = dragNone
	d.dividerOrder = 0
	d.startPos = 0
	d.available = 0
	d.span = 0
	d.baseLeft = 0
	d.baseRight = 0
}
