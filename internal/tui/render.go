package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/quadpane/quadpane/internal/domain/entity"
)

// cells rounds a layout unit to whole terminal cells. The inspector feeds
// the session a container sized in cells, so rects map one to one onto
// columns and rows.
func cells(v float64) int {
	return int(math.Round(v))
}

// renderLayout draws the geometry as bordered boxes joined along the
// layout axes, with divider gutters labeled by their order.
func renderLayout(g entity.Geometry, th *Theme) string {
	if len(g.Panes) == 0 {
		return th.Subtle.Render("no panes")
	}
	if g.FullPane != "" || len(g.Panes) == 1 {
		p := g.Panes[0]
		return renderPane(p, cells(p.Rect.W), cells(p.Rect.H), th)
	}
	switch g.Mode {
	case entity.ModeGrid:
		return renderGridCells(g, th)
	case entity.ModeVertical:
		return renderColumn(g, th)
	default:
		return renderRow(g, th)
	}
}

func renderRow(g entity.Geometry, th *Theme) string {
	height := cells(g.Container.H)
	parts := make([]string, 0, len(g.Panes)+len(g.Dividers))
	for i, p := range g.Panes {
		parts = append(parts, renderPane(p, cells(p.Rect.W), height, th))
		if i < len(g.Dividers) {
			parts = append(parts, renderVerticalDivider(g.Dividers[i], g.Container, height, th))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func renderColumn(g entity.Geometry, th *Theme) string {
	width := cells(g.Container.W)
	parts := make([]string, 0, len(g.Panes)+len(g.Dividers))
	for i, p := range g.Panes {
		parts = append(parts, renderPane(p, width, cells(p.Rect.H), th))
		if i < len(g.Dividers) {
			parts = append(parts, renderHorizontalDivider(g.Dividers[i], g.Container, width, th))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderGridCells draws the 2x2 grid as two joined rows split by the
// overlay gutters, labeled with the current column and row percents.
func renderGridCells(g entity.Geometry, th *Theme) string {
	var col, row *entity.DividerGeometry
	for i := range g.Dividers {
		d := &g.Dividers[i]
		if d.Orientation == entity.OrientationVertical {
			col = d
		} else {
			row = d
		}
	}
	if len(g.Panes) != entity.MaxPanes || col == nil || row == nil {
		return renderRow(g, th)
	}

	topH := cells(g.Panes[0].Rect.H)
	bottomH := cells(g.Panes[2].Rect.H)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		renderPane(g.Panes[0], cells(g.Panes[0].Rect.W), topH, th),
		renderVerticalDivider(*col, g.Container, topH, th),
		renderPane(g.Panes[1], cells(g.Panes[1].Rect.W), topH, th),
	)
	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		renderPane(g.Panes[2], cells(g.Panes[2].Rect.W), bottomH, th),
		renderVerticalDivider(*col, g.Container, bottomH, th),
		renderPane(g.Panes[3], cells(g.Panes[3].Rect.W), bottomH, th),
	)
	rule := renderHorizontalDivider(*row, g.Container, cells(g.Container.W), th)
	return lipgloss.JoinVertical(lipgloss.Left, topRow, rule, bottomRow)
}

// renderPane draws one pane as a bordered box of the given total size.
// Border and horizontal padding eat four columns and two rows.
func renderPane(p entity.PaneGeometry, width, height int, th *Theme) string {
	style := th.PaneBox
	if p.Active {
		style = th.PaneBoxActive
	}
	innerW := width - 4
	if innerW < 1 {
		innerW = 1
	}
	innerH := height - 2
	if innerH < 1 {
		innerH = 1
	}

	lines := make([]string, 0, 4)
	lines = append(lines, th.PaneTitle.MaxWidth(innerW).Render(p.Title))
	if innerH > 1 {
		lines = append(lines, th.PaneURL.MaxWidth(innerW).Render(p.URL))
	}
	if innerH > 3 {
		lines = append(lines, "", th.BadgeMuted.Render(fmt.Sprintf("pane %d", p.Order)))
	}
	return style.Width(innerW).Height(innerH).Render(strings.Join(lines, "\n"))
}

func renderVerticalDivider(d entity.DividerGeometry, container entity.Rect, height int, th *Theme) string {
	width := cells(d.Rect.W)
	rows := make([]string, height)
	for i := range rows {
		rows[i] = "│"
	}
	if height > 0 {
		rows[height/2] = dividerLabel(d, container)
	}
	return th.Divider.Width(width).Align(lipgloss.Center).Render(strings.Join(rows, "\n"))
}

func renderHorizontalDivider(d entity.DividerGeometry, container entity.Rect, width int, th *Theme) string {
	height := cells(d.Rect.H)
	rows := make([]string, height)
	for i := range rows {
		rows[i] = strings.Repeat("─", width)
	}
	if height > 0 {
		rows[height/2] = centerInRule(width, " "+dividerLabel(d, container)+" ")
	}
	return th.Divider.Render(strings.Join(rows, "\n"))
}

// dividerLabel names a gutter: linear dividers show their odd order, grid
// overlays show the split percent recovered from their position.
func dividerLabel(d entity.DividerGeometry, container entity.Rect) string {
	if !d.GridOverlay {
		return strconv.Itoa(d.Order)
	}
	span := container.W
	pos := d.Rect.X - container.X
	if d.Orientation == entity.OrientationHorizontal {
		span = container.H
		pos = d.Rect.Y - container.Y
	}
	avail := span - entity.DividerThickness
	if avail <= 0 {
		return "%"
	}
	return strconv.Itoa(cells(pos/avail*100)) + "%"
}

func centerInRule(width int, label string) string {
	w := lipgloss.Width(label)
	if w >= width {
		return label
	}
	left := (width - w) / 2
	return strings.Repeat("─", left) + label + strings.Repeat("─", width-left-w)
}
