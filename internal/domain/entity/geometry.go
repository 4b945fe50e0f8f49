package entity

// Rect is an axis-aligned rectangle in layout units.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Orientation is the axis a divider bar runs along.
type Orientation string

const (
	OrientationVertical   Orientation = "vertical"   // bar separates left/right
	OrientationHorizontal Orientation = "horizontal" // bar separates top/bottom
)

// PaneGeometry is one pane's computed placement plus what a rendering layer
// needs to materialize it.
type PaneGeometry struct {
	PaneID     PaneID `json:"paneId"`
	Order      int    `json:"order"`
	FrameName  string `json:"frameName"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	FaviconURL string `json:"faviconUrl,omitempty"`
	Rect       Rect   `json:"rect"`
	Active     bool   `json:"active"`
}

// DividerGeometry is one divider bar's computed placement. Linear dividers
// carry their odd order; the two grid overlays carry Order -1.
type DividerGeometry struct {
	Order       int         `json:"order"`
	Orientation Orientation `json:"orientation"`
	Rect        Rect        `json:"rect"`
	GridOverlay bool        `json:"gridOverlay,omitempty"`
}

// GridOverlayOrder marks the grid overlay dividers in rendered geometry.
const GridOverlayOrder = -1

// Geometry is the full rendering contract for one composed view: a pure
// description of where everything goes, free of any UI toolkit types.
// While a full-pane is active it contains that single pane and no dividers.
type Geometry struct {
	Container Rect              `json:"container"`
	Mode      LayoutMode        `json:"mode"`
	Panes     []PaneGeometry    `json:"panes"`
	Dividers  []DividerGeometry `json:"dividers"`
	FullPane  PaneID            `json:"fullPane,omitempty"`
	// Title and FaviconURL are the composed view's displayed identity,
	// taken from the active pane with its fallbacks applied.
	Title      string `json:"title,omitempty"`
	FaviconURL string `json:"faviconUrl,omitempty"`
	// DragActive tells embedders to disable pointer events over pane
	// content so drag gestures are not swallowed by embedded documents.
	DragActive bool `json:"dragActive,omitempty"`
}
