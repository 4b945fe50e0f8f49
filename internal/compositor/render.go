// Package compositor owns composed views at runtime: the session that
// serializes mutations, the pure geometry renderer, the drag gesture
// controller and the debounced URL state sync. Embedders talk to a
// Session and draw whatever Render describes; no UI toolkit types appear
// anywhere in the package.
package compositor

import (
	"github.com/quadpane/quadpane/internal/domain/entity"
)

// Render lays the state out inside the container and returns the geometry
// descriptor embedders draw from. It is pure: no clock, no I/O, no
// mutation of the state. An active full-pane collapses the descriptor to
// that single pane covering the whole container, with no dividers.
func Render(state *entity.LayoutState, container entity.Rect) entity.Geometry {
	g := entity.Geometry{Container: container}
	if state == nil {
		return g
	}
	g.Mode = state.Mode

	active := state.ActivePane()
	if active != nil {
		g.Title = active.DisplayTitle()
		g.FaviconURL = active.FaviconURL
	}
	activeID := entity.PaneID("")
	if active != nil {
		activeID = active.ID
	}

	if full := state.FullPane(); full != nil {
		g.FullPane = full.ID
		g.Panes = append(g.Panes, paneGeometry(full, container, activeID))
		return g
	}

	switch state.Mode {
	case entity.ModeGrid:
		renderGrid(&g, state, container, activeID)
	default:
		renderLinear(&g, state, container, activeID)
	}
	return g
}

// renderLinear walks the slot list along the primary axis, sizing panes
// from their ratios over the span left after divider thickness.
func renderLinear(g *entity.Geometry, state *entity.LayoutState, container entity.Rect, activeID entity.PaneID) {
	horizontal := state.Mode != entity.ModeVertical
	dividerCount := state.PaneCount() - 1

	span := container.W
	if !horizontal {
		span = container.H
	}
	available := span - entity.DividerThickness*float64(dividerCount)
	if available < 0 {
		available = 0
	}

	cursor := 0.0
	for _, slot := range state.Slots {
		switch {
		case slot.IsPane():
			size := available * slot.Pane.Ratio / 100
			var rect entity.Rect
			if horizontal {
				rect = entity.Rect{X: container.X + cursor, Y: container.Y, W: size, H: container.H}
			} else {
				rect = entity.Rect{X: container.X, Y: container.Y + cursor, W: container.W, H: size}
			}
			g.Panes = append(g.Panes, paneGeometry(slot.Pane, rect, activeID))
			cursor += size
		case slot.IsDivider():
			var rect entity.Rect
			orientation := entity.OrientationVertical
			if horizontal {
				rect = entity.Rect{X: container.X + cursor, Y: container.Y, W: entity.DividerThickness, H: container.H}
			} else {
				orientation = entity.OrientationHorizontal
				rect = entity.Rect{X: container.X, Y: container.Y + cursor, W: container.W, H: entity.DividerThickness}
			}
			g.Dividers = append(g.Dividers, entity.DividerGeometry{
				Order:       slot.Divider.Order,
				Orientation: orientation,
				Rect:        rect,
			})
			cursor += entity.DividerThickness
		}
	}
}

// renderGrid places four panes in reading order into a 2x2 grid split by
// the column and row percents, with one overlay divider per axis.
func renderGrid(g *entity.Geometry, state *entity.LayoutState, container entity.Rect, activeID entity.PaneID) {
	availW := container.W - entity.DividerThickness
	if availW < 0 {
		availW = 0
	}
	availH := container.H - entity.DividerThickness
	if availH < 0 {
		availH = 0
	}

	leftW := availW * state.GridColumnPercent / 100
	rightW := availW - leftW
	topH := availH * state.GridRowPercent / 100
	bottomH := availH - topH

	rightX := container.X + leftW + entity.DividerThickness
	bottomY := container.Y + topH + entity.DividerThickness

	cells := [entity.MaxPanes]entity.Rect{
		{X: container.X, Y: container.Y, W: leftW, H: topH},
		{X: rightX, Y: container.Y, W: rightW, H: topH},
		{X: container.X, Y: bottomY, W: leftW, H: bottomH},
		{X: rightX, Y: bottomY, W: rightW, H: bottomH},
	}
	for i, p := range state.Panes() {
		if i >= len(cells) {
			break
		}
		g.Panes = append(g.Panes, paneGeometry(p, cells[i], activeID))
	}

	g.Dividers = append(g.Dividers,
		entity.DividerGeometry{
			Order:       entity.GridOverlayOrder,
			Orientation: entity.OrientationVertical,
			Rect:        entity.Rect{X: container.X + leftW, Y: container.Y, W: entity.DividerThickness, H: container.H},
			GridOverlay: true,
		},
		entity.DividerGeometry{
			Order:       entity.GridOverlayOrder,
			Orientation: entity.OrientationHorizontal,
			Rect:        entity.Rect{X: container.X, Y: container.Y + topH, W: container.W, H: entity.DividerThickness},
			GridOverlay: true,
		},
	)
}

func paneGeometry(p *entity.Pane, rect entity.Rect, activeID entity.PaneID) entity.PaneGeometry {
	return entity.PaneGeometry{
		PaneID:     p.ID,
		Order:      p.Order,
		FrameName:  p.FrameName,
		URL:        p.URL,
		Title:      p.DisplayTitle(),
		FaviconURL: p.FaviconURL,
		Rect:       rect,
		Active:     p.ID == activeID,
	}
}
