package entity

import (
	"fmt"
	"math"
)

// LayoutMode selects how panes are arranged in the container.
type LayoutMode string

const (
	ModeHorizontal LayoutMode = "horizontal" // panes in a row, vertical dividers
	ModeVertical   LayoutMode = "vertical"   // panes in a column, horizontal dividers
	ModeGrid       LayoutMode = "grid"       // 2x2 arrangement, exactly four panes
)

// IsLinear reports whether the mode arranges panes along a single axis.
func (m LayoutMode) IsLinear() bool {
	return m == ModeHorizontal || m == ModeVertical
}

// Valid reports whether m is a known layout mode.
func (m LayoutMode) Valid() bool {
	return m == ModeHorizontal || m == ModeVertical || m == ModeGrid
}

const (
	// MaxPanes is the structural pane limit per composed view.
	MaxPanes = 4
	// DividerThickness is the fixed divider size in layout units.
	DividerThickness = 4.0

	// ratioEpsilon is the rounding tolerance for the ratio-sum invariant.
	ratioEpsilon = 0.01
)

// Slot is one element of the ordered pane/divider sequence. Exactly one of
// Pane or Divider is set. The slot list is the structural source of truth;
// the even/odd order numbers on panes and dividers are the stable addressing
// keys derived from it.
type Slot struct {
	Pane    *Pane
	Divider *Divider
}

// IsPane reports whether the slot holds a pane.
func (s Slot) IsPane() bool { return s.Pane != nil }

// IsDivider reports whether the slot holds a divider.
func (s Slot) IsDivider() bool { return s.Divider != nil }

// LayoutState is the canonical state of one composed view. In linear modes
// Slots alternates pane, divider, pane, ...; in grid mode it holds panes only.
type LayoutState struct {
	Mode              LayoutMode
	Slots             []Slot
	GridColumnPercent float64 // first column share, grid mode only
	GridRowPercent    float64 // first row share, grid mode only
	ActivePaneID      PaneID
}

// NewLayoutState creates an empty state in the given mode with centered
// grid percents.
func NewLayoutState(mode LayoutMode) *LayoutState {
	return &LayoutState{
		Mode:              mode,
		GridColumnPercent: 50,
		GridRowPercent:    50,
	}
}

// Panes returns the panes in visual order.
func (s *LayoutState) Panes() []*Pane {
	panes := make([]*Pane, 0, MaxPanes)
	for _, slot := range s.Slots {
		if slot.IsPane() {
			panes = append(panes, slot.Pane)
		}
	}
	return panes
}

// Dividers returns the dividers in visual order.
func (s *LayoutState) Dividers() []*Divider {
	var dividers []*Divider
	for _, slot := range s.Slots {
		if slot.IsDivider() {
			dividers = append(dividers, slot.Divider)
		}
	}
	return dividers
}

// PaneCount returns the number of panes.
func (s *LayoutState) PaneCount() int {
	n := 0
	for _, slot := range s.Slots {
		if slot.IsPane() {
			n++
		}
	}
	return n
}

// PaneByOrder returns the pane with the given order, or nil.
func (s *LayoutState) PaneByOrder(order int) *Pane {
	for _, slot := range s.Slots {
		if slot.IsPane() && slot.Pane.Order == order {
			return slot.Pane
		}
	}
	return nil
}

// PaneByID returns the pane with the given ID, or nil.
func (s *LayoutState) PaneByID(id PaneID) *Pane {
	for _, slot := range s.Slots {
		if slot.IsPane() && slot.Pane.ID == id {
			return slot.Pane
		}
	}
	return nil
}

// PaneByFrameName returns the pane registered under frameName, or nil.
func (s *LayoutState) PaneByFrameName(frameName string) *Pane {
	for _, slot := range s.Slots {
		if slot.IsPane() && slot.Pane.FrameName == frameName {
			return slot.Pane
		}
	}
	return nil
}

// PaneByFrameID returns the pane bound to the given frame handle, or nil.
func (s *LayoutState) PaneByFrameID(frameID string) *Pane {
	if frameID == "" {
		return nil
	}
	for _, slot := range s.Slots {
		if slot.IsPane() && slot.Pane.FrameID == frameID {
			return slot.Pane
		}
	}
	return nil
}

// PaneIndex returns the pane's position among panes (0-based visual index),
// or -1 when absent.
func (s *LayoutState) PaneIndex(order int) int {
	i := 0
	for _, slot := range s.Slots {
		if !slot.IsPane() {
			continue
		}
		if slot.Pane.Order == order {
			return i
		}
		i++
	}
	return -1
}

// DividerByOrder returns the divider with the given order, or nil.
func (s *LayoutState) DividerByOrder(order int) *Divider {
	for _, slot := range s.Slots {
		if slot.IsDivider() && slot.Divider.Order == order {
			return slot.Divider
		}
	}
	return nil
}

// DividerAfter returns the divider immediately following the pane in the
// slot list, or nil when the pane is last or the mode has no dividers.
func (s *LayoutState) DividerAfter(paneOrder int) *Divider {
	for i, slot := range s.Slots {
		if slot.IsPane() && slot.Pane.Order == paneOrder {
			if i+1 < len(s.Slots) && s.Slots[i+1].IsDivider() {
				return s.Slots[i+1].Divider
			}
			return nil
		}
	}
	return nil
}

// DividerNeighbors returns the panes on either side of the divider with the
// given order. Both are nil when the divider does not exist.
func (s *LayoutState) DividerNeighbors(order int) (left, right *Pane) {
	for i, slot := range s.Slots {
		if slot.IsDivider() && slot.Divider.Order == order {
			if i > 0 && s.Slots[i-1].IsPane() {
				left = s.Slots[i-1].Pane
			}
			if i+1 < len(s.Slots) && s.Slots[i+1].IsPane() {
				right = s.Slots[i+1].Pane
			}
			return left, right
		}
	}
	return nil, nil
}

// ActivePane returns the active pane, falling back to the first pane when
// none is marked or the marked pane is gone.
func (s *LayoutState) ActivePane() *Pane {
	if s.ActivePaneID != "" {
		if p := s.PaneByID(s.ActivePaneID); p != nil {
			return p
		}
	}
	for _, slot := range s.Slots {
		if slot.IsPane() {
			return slot.Pane
		}
	}
	return nil
}

// FullPane returns the pane currently expanded to the whole container, or nil.
func (s *LayoutState) FullPane() *Pane {
	for _, slot := range s.Slots {
		if slot.IsPane() && slot.Pane.FullPane {
			return slot.Pane
		}
	}
	return nil
}

// RatioSum returns the sum of all pane ratios.
func (s *LayoutState) RatioSum() float64 {
	sum := 0.0
	for _, slot := range s.Slots {
		if slot.IsPane() {
			sum += slot.Pane.Ratio
		}
	}
	return sum
}

// Clone returns a deep copy of the state. Mutating the copy never affects
// the original.
func (s *LayoutState) Clone() *LayoutState {
	c := &LayoutState{
		Mode:              s.Mode,
		Slots:             make([]Slot, len(s.Slots)),
		GridColumnPercent: s.GridColumnPercent,
		GridRowPercent:    s.GridRowPercent,
		ActivePaneID:      s.ActivePaneID,
	}
	for i, slot := range s.Slots {
		switch {
		case slot.IsPane():
			p := *slot.Pane
			c.Slots[i] = Slot{Pane: &p}
		case slot.IsDivider():
			d := *slot.Divider
			c.Slots[i] = Slot{Divider: &d}
		}
	}
	return c
}

// Validate checks every structural invariant. It returns nil when the state
// is consistent and an error wrapping ErrInvalidLayout otherwise. Mutating
// operations run it before committing and reject inputs that would break it.
func (s *LayoutState) Validate() error {
	if !s.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidLayout, s.Mode)
	}

	paneCount := s.PaneCount()
	if paneCount < 1 || paneCount > MaxPanes {
		return fmt.Errorf("%w: %d panes", ErrInvalidLayout, paneCount)
	}
	if s.Mode == ModeGrid && paneCount != MaxPanes {
		return fmt.Errorf("%w: grid mode with %d panes", ErrInvalidLayout, paneCount)
	}

	// Slot shape: panes at even positions, dividers between them in linear
	// modes, panes only in grid mode.
	for i, slot := range s.Slots {
		if slot.IsPane() == slot.IsDivider() {
			return fmt.Errorf("%w: slot %d is neither pane nor divider", ErrInvalidLayout, i)
		}
		wantPane := s.Mode == ModeGrid || i%2 == 0
		if wantPane != slot.IsPane() {
			return fmt.Errorf("%w: slot %d out of place", ErrInvalidLayout, i)
		}
	}
	if s.Mode.IsLinear() {
		if want := 2*paneCount - 1; len(s.Slots) != want {
			return fmt.Errorf("%w: %d slots for %d panes", ErrInvalidLayout, len(s.Slots), paneCount)
		}
	} else if len(s.Slots) != paneCount {
		return fmt.Errorf("%w: dividers present in grid mode", ErrInvalidLayout)
	}

	// Order numbering: even/unique/ascending panes, odd dividers strictly
	// between their neighbors.
	prev := -1
	for _, slot := range s.Slots {
		switch {
		case slot.IsPane():
			o := slot.Pane.Order
			if o < 0 || o%2 != 0 {
				return fmt.Errorf("%w: pane order %d not a non-negative even integer", ErrInvalidLayout, o)
			}
			if o <= prev {
				return fmt.Errorf("%w: pane order %d not ascending", ErrInvalidLayout, o)
			}
			prev = o
		case slot.IsDivider():
			o := slot.Divider.Order
			if o%2 == 0 {
				return fmt.Errorf("%w: divider order %d not odd", ErrInvalidLayout, o)
			}
			if o <= prev {
				return fmt.Errorf("%w: divider order %d not between its neighbors", ErrInvalidLayout, o)
			}
			prev = o
		}
	}

	if s.Mode.IsLinear() {
		for _, p := range s.Panes() {
			if p.Ratio <= 0 || p.Ratio > 100 {
				return fmt.Errorf("%w: pane %d ratio %.2f out of range", ErrInvalidLayout, p.Order, p.Ratio)
			}
		}
		if sum := s.RatioSum(); math.Abs(sum-100) > ratioEpsilon {
			return fmt.Errorf("%w: ratio sum %.4f", ErrInvalidLayout, sum)
		}
	}

	if s.GridColumnPercent < 0 || s.GridColumnPercent > 100 ||
		s.GridRowPercent < 0 || s.GridRowPercent > 100 {
		return fmt.Errorf("%w: grid percents %.2f/%.2f out of range",
			ErrInvalidLayout, s.GridColumnPercent, s.GridRowPercent)
	}

	full := 0
	for _, slot := range s.Slots {
		if slot.IsPane() && slot.Pane.FullPane {
			full++
		}
	}
	if full > 1 {
		return fmt.Errorf("%w: %d panes marked full-pane", ErrInvalidLayout, full)
	}

	return nil
}
