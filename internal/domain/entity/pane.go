// Package entity contains domain entities representing core compositor concepts.
// These entities are pure Go types with no infrastructure dependencies.
package entity

import (
	"net/url"
	"time"
)

// PaneID uniquely identifies a pane within a compositor session.
type PaneID string

// Pane represents a single embedded content unit within a composed view.
// Its rendering context is an isolated realm; URL, Title and FaviconURL
// reflect the last values reported over the frame connector.
type Pane struct {
	ID         PaneID
	Order      int     // even, unique, ascending in visual order
	Ratio      float64 // percent share of the primary axis, linear modes only
	URL        string
	Title      string
	FaviconURL string
	FrameName  string // name handed to the rendering context, echoed back on registration
	FrameID    string // transport handle for remote commands, bound at registration
	FullPane   bool   // pane temporarily occupies the whole container
	CreatedAt  time.Time
}

// NewPane creates a new pane with default values.
func NewPane(id PaneID, rawURL string) *Pane {
	return &Pane{
		ID:        id,
		Ratio:     100,
		URL:       rawURL,
		FrameName: "qp-" + string(id),
		CreatedAt: time.Now(),
	}
}

// Hostname returns the host portion of the pane URL, or the raw URL when
// it does not parse.
func (p *Pane) Hostname() string {
	u, err := url.Parse(p.URL)
	if err != nil || u.Host == "" {
		return p.URL
	}
	return u.Host
}

// DisplayTitle returns the reported title, falling back to the hostname
// until the rendering context reports one.
func (p *Pane) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Hostname()
}

// Registered reports whether the pane's rendering context has completed
// frame registration.
func (p *Pane) Registered() bool {
	return p.FrameID != ""
}

// Divider represents the draggable separator between two adjacent panes
// in a linear layout. Grid mode has no divider entities; its two overlay
// dividers exist only in rendered geometry.
type Divider struct {
	ID    string
	Order int // odd, strictly between its neighbor panes' orders
}
