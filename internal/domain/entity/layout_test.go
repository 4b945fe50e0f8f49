package entity

import (
	"errors"
	"testing"
)

func linearState(mode LayoutMode, urls ...string) *LayoutState {
	s := NewLayoutState(mode)
	ratio := 100.0 / float64(len(urls))
	for i, u := range urls {
		p := NewPane(PaneID(rune('a'+i)), u)
		p.Order = i * 2
		p.Ratio = ratio
		if i > 0 {
			s.Slots = append(s.Slots, Slot{Divider: &Divider{ID: "d" + string(rune('0'+i)), Order: i*2 - 1}})
		}
		s.Slots = append(s.Slots, Slot{Pane: p})
	}
	return s
}

func TestValidateLinearState(t *testing.T) {
	s := linearState(ModeHorizontal, "https://a.example", "https://b.example")
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if got := s.PaneCount(); got != 2 {
		t.Fatalf("PaneCount() = %d, want 2", got)
	}
	if got := len(s.Dividers()); got != 1 {
		t.Fatalf("len(Dividers()) = %d, want 1", got)
	}
}

func TestValidateRejectsOddPaneOrder(t *testing.T) {
	s := linearState(ModeHorizontal, "https://a.example", "https://b.example")
	s.Panes()[1].Order = 3
	if err := s.Validate(); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("Validate() = %v, want ErrInvalidLayout", err)
	}
}

func TestValidateRejectsMissingDivider(t *testing.T) {
	s := linearState(ModeHorizontal, "https://a.example", "https://b.example")
	// Drop the divider slot, keeping both panes.
	s.Slots = []Slot{s.Slots[0], s.Slots[2]}
	if err := s.Validate(); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("Validate() = %v, want ErrInvalidLayout", err)
	}
}

func TestValidateRejectsGridWithThreePanes(t *testing.T) {
	s := linearState(ModeHorizontal, "https://a.example", "https://b.example", "https://c.example")
	s.Mode = ModeGrid
	if err := s.Validate(); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("Validate() = %v, want ErrInvalidLayout", err)
	}
}

func TestValidateGridState(t *testing.T) {
	s := linearState(ModeHorizontal, "a", "b", "c", "d")
	s.Mode = ModeGrid
	s.Slots = []Slot{s.Slots[0], s.Slots[2], s.Slots[4], s.Slots[6]}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsRatioSum(t *testing.T) {
	s := linearState(ModeHorizontal, "https://a.example", "https://b.example")
	s.Panes()[0].Ratio = 70
	if err := s.Validate(); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("Validate() = %v, want ErrInvalidLayout", err)
	}
}

func TestValidateRejectsTwoFullPanes(t *testing.T) {
	s := linearState(ModeHorizontal, "https://a.example", "https://b.example")
	for _, p := range s.Panes() {
		p.FullPane = true
	}
	if err := s.Validate(); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("Validate() = %v, want ErrInvalidLayout", err)
	}
}

func TestDividerNeighbors(t *testing.T) {
	s := linearState(ModeHorizontal, "https://a.example", "https://b.example", "https://c.example")
	left, right := s.DividerNeighbors(3)
	if left == nil || right == nil {
		t.Fatalf("DividerNeighbors(3) = %v, %v, want both panes", left, right)
	}
	if left.Order != 2 || right.Order != 4 {
		t.Fatalf("neighbor orders = %d, %d, want 2, 4", left.Order, right.Order)
	}
	if l, r := s.DividerNeighbors(9); l != nil || r != nil {
		t.Fatalf("DividerNeighbors(9) = %v, %v, want nil, nil", l, r)
	}
}

func TestActivePaneFallsBackToFirst(t *testing.T) {
	s := linearState(ModeHorizontal, "https://a.example", "https://b.example")
	if got := s.ActivePane(); got == nil || got.Order != 0 {
		t.Fatalf("ActivePane() = %v, want first pane", got)
	}
	s.ActivePaneID = s.Panes()[1].ID
	if got := s.ActivePane(); got.Order != 2 {
		t.Fatalf("ActivePane() order = %d, want 2", got.Order)
	}
	s.ActivePaneID = "gone"
	if got := s.ActivePane(); got.Order != 0 {
		t.Fatalf("ActivePane() after stale ID, order = %d, want 0", got.Order)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := linearState(ModeHorizontal, "https://a.example", "https://b.example")
	c := s.Clone()
	c.Panes()[0].Ratio = 90
	c.Panes()[1].Ratio = 10
	c.Mode = ModeVertical
	if s.Panes()[0].Ratio != 50 {
		t.Fatalf("clone mutation leaked: ratio = %v, want 50", s.Panes()[0].Ratio)
	}
	if s.Mode != ModeHorizontal {
		t.Fatalf("clone mutation leaked: mode = %v, want horizontal", s.Mode)
	}
}

func TestDisplayTitleFallsBackToHostname(t *testing.T) {
	p := NewPane("a", "https://news.example/path")
	if got := p.DisplayTitle(); got != "news.example" {
		t.Fatalf("DisplayTitle() = %q, want %q", got, "news.example")
	}
	p.Title = "Front Page"
	if got := p.DisplayTitle(); got != "Front Page" {
		t.Fatalf("DisplayTitle() = %q, want %q", got, "Front Page")
	}
}
