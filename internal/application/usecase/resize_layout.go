package usecase

import (
	"context"

	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/logging"
)

const (
	// minRatioPercent is the floor a pane ratio may be dragged down to.
	minRatioPercent = 5.0
	// minGridPercent / maxGridPercent bound the grid split during drags.
	minGridPercent = 5.0
	maxGridPercent = 95.0
)

// ResizeLayoutUseCase owns the ratio and grid-percent math behind resizing.
// It never touches gesture state; the drag controller feeds it deltas.
type ResizeLayoutUseCase struct{}

// NewResizeLayoutUseCase creates a new resize use case.
func NewResizeLayoutUseCase() *ResizeLayoutUseCase {
	return &ResizeLayoutUseCase{}
}

// ApplyDividerDelta shifts deltaPercent from the divider's trailing neighbor
// to its leading neighbor (negative deltas shift the other way). Both ratios
// are clamped to the floor so neither pane collapses; their sum is preserved.
func (uc *ResizeLayoutUseCase) ApplyDividerDelta(ctx context.Context, state *entity.LayoutState, dividerOrder int, deltaPercent float64) error {
	log := logging.FromContext(ctx)

	if state.FullPane() != nil {
		return entity.ErrFullPaneActive
	}
	left, right := state.DividerNeighbors(dividerOrder)
	if left == nil || right == nil {
		return entity.ErrDividerNotFound
	}

	// Clamp the delta so neither side drops under the floor.
	delta := clampFloat64(deltaPercent, minRatioPercent-left.Ratio, right.Ratio-minRatioPercent)
	if delta == 0 {
		return nil
	}

	total := left.Ratio + right.Ratio
	oldLeft, oldRight := left.Ratio, right.Ratio
	left.Ratio = roundRatio(left.Ratio + delta)
	right.Ratio = roundRatio(total - left.Ratio)

	log.Debug().
		Int("divider", dividerOrder).
		Float64("delta", deltaPercent).
		Float64("left", left.Ratio).
		Float64("right", right.Ratio).
		Float64("old_left", oldLeft).
		Float64("old_right", oldRight).
		Msg("divider moved")
	return nil
}

// SetPaneRatio sets one pane's ratio and rescales the others proportionally
// so the sum stays at 100. The target is bounded so every pane keeps at
// least the floor.
func (uc *ResizeLayoutUseCase) SetPaneRatio(ctx context.Context, state *entity.LayoutState, order int, ratio float64) error {
	if !state.Mode.IsLinear() {
		return entity.ErrInvalidMode
	}
	target := state.PaneByOrder(order)
	if target == nil {
		return entity.ErrPaneNotFound
	}
	panes := state.Panes()
	if len(panes) == 1 {
		target.Ratio = 100
		return nil
	}

	maxRatio := 100 - minRatioPercent*float64(len(panes)-1)
	if ratio < minRatioPercent || ratio > maxRatio {
		return entity.ErrInvalidRatio
	}

	restOld := 100 - target.Ratio
	restNew := 100 - ratio
	target.Ratio = roundRatio(ratio)
	total := target.Ratio
	var last *entity.Pane
	for _, p := range panes {
		if p == target {
			continue
		}
		share := restNew / float64(len(panes)-1)
		if restOld > 0 {
			share = p.Ratio / restOld * restNew
		}
		p.Ratio = roundRatio(share)
		total += p.Ratio
		last = p
	}
	// Absorb rounding drift in the last rescaled pane.
	if last != nil {
		last.Ratio = roundRatio(last.Ratio + 100 - total)
	}

	logging.FromContext(ctx).Debug().
		Int("order", order).
		Float64("ratio", target.Ratio).
		Msg("pane ratio set")
	return nil
}

// SetGridPercents sets the grid column and row split. Values outside [0,100]
// are rejected; callers doing live drags clamp to the drag bounds first.
func (uc *ResizeLayoutUseCase) SetGridPercents(ctx context.Context, state *entity.LayoutState, col, row float64) error {
	if state.Mode != entity.ModeGrid {
		return entity.ErrInvalidMode
	}
	if col < 0 || col > 100 || row < 0 || row > 100 {
		return entity.ErrInvalidRatio
	}

	state.GridColumnPercent = roundRatio(col)
	state.GridRowPercent = roundRatio(row)

	logging.FromContext(ctx).Debug().
		Float64("column", state.GridColumnPercent).
		Float64("row", state.GridRowPercent).
		Msg("grid percents set")
	return nil
}

// ClampGridPercent bounds a dragged grid split to the allowed band.
func ClampGridPercent(v float64) float64 {
	return clampFloat64(v, minGridPercent, maxGridPercent)
}

// EqualizeAll resets every ratio to an equal split.
func (uc *ResizeLayoutUseCase) EqualizeAll(ctx context.Context, state *entity.LayoutState) {
	equalizeRatios(state.Panes())
	logging.FromContext(ctx).Debug().Msg("ratios equalized")
}

func clampFloat64(v, lo, hi float64) float64 {
	if lo > hi {
		// Degenerate band, settle in the middle.
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
