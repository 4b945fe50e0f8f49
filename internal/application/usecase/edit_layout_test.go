package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/quadpane/quadpane/internal/domain/entity"
)

func newEditUC() *EditLayoutUseCase {
	n := 0
	return NewEditLayoutUseCase(func() string {
		n++
		return fmt.Sprintf("id%d", n)
	})
}

func mustState(t *testing.T, uc *EditLayoutUseCase, input NewStateInput) *entity.LayoutState {
	t.Helper()
	state, err := uc.NewState(context.Background(), input)
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	return state
}

func assertValid(t *testing.T, state *entity.LayoutState) {
	t.Helper()
	if err := state.Validate(); err != nil {
		t.Fatalf("state invalid after operation: %v", err)
	}
}

func paneOrders(state *entity.LayoutState) []int {
	var orders []int
	for _, p := range state.Panes() {
		orders = append(orders, p.Order)
	}
	return orders
}

func TestNewStateTwoURLs(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"https://a.example", "https://b.example"}})

	assertValid(t, state)
	if state.Mode != entity.ModeHorizontal {
		t.Fatalf("mode = %v, want horizontal", state.Mode)
	}
	if got := len(state.Dividers()); got != 1 {
		t.Fatalf("dividers = %d, want 1", got)
	}
	for _, p := range state.Panes() {
		if p.Ratio != 50 {
			t.Fatalf("ratio = %v, want 50", p.Ratio)
		}
	}
}

func TestNewStateFourURLsDefaultsToGrid(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b", "c", "d"}})

	assertValid(t, state)
	if state.Mode != entity.ModeGrid {
		t.Fatalf("mode = %v, want grid", state.Mode)
	}
	if state.GridColumnPercent != 50 || state.GridRowPercent != 50 {
		t.Fatalf("grid percents = %v/%v, want 50/50", state.GridColumnPercent, state.GridRowPercent)
	}
	if got := len(state.Dividers()); got != 0 {
		t.Fatalf("dividers = %d, want 0 in grid mode", got)
	}
}

func TestNewStateMalformedLayoutTreatedAsOmitted(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{
		URLs: []string{"a", "b", "c", "d"},
		Mode: entity.LayoutMode("diagonal"),
	})
	if state.Mode != entity.ModeGrid {
		t.Fatalf("mode = %v, want grid for four urls", state.Mode)
	}
}

func TestNewStateGridWithTwoURLsFallsBack(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b"}, Mode: entity.ModeGrid})
	if state.Mode != entity.ModeHorizontal {
		t.Fatalf("mode = %v, want horizontal", state.Mode)
	}
}

func TestNewStateExplicitLinearWithFourURLs(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b", "c", "d"}, Mode: entity.ModeHorizontal})

	assertValid(t, state)
	if state.Mode != entity.ModeHorizontal {
		t.Fatalf("mode = %v, want horizontal when explicit", state.Mode)
	}
	if got := len(state.Dividers()); got != 3 {
		t.Fatalf("dividers = %d, want 3", got)
	}
}

func TestNewStateRescalesRatios(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{
		URLs:   []string{"a", "b"},
		Ratios: []float64{60, 40},
	})
	panes := state.Panes()
	if panes[0].Ratio != 60 || panes[1].Ratio != 40 {
		t.Fatalf("ratios = %v/%v, want 60/40", panes[0].Ratio, panes[1].Ratio)
	}

	// Any positive vector is treated as proportions.
	state = mustState(t, uc, NewStateInput{
		URLs:   []string{"a", "b"},
		Ratios: []float64{3, 1},
	})
	panes = state.Panes()
	if panes[0].Ratio != 75 || panes[1].Ratio != 25 {
		t.Fatalf("ratios = %v/%v, want 75/25", panes[0].Ratio, panes[1].Ratio)
	}
}

func TestNewStateRejectsNegativeRatios(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{
		URLs:   []string{"a", "b"},
		Ratios: []float64{120, -20},
	})
	panes := state.Panes()
	if panes[0].Ratio != 50 || panes[1].Ratio != 50 {
		t.Fatalf("ratios = %v/%v, want equal split fallback", panes[0].Ratio, panes[1].Ratio)
	}
}

func TestInsertAtDividerRenumbersWhenNoGap(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b"}})

	p, err := uc.InsertAtDivider(context.Background(), state, 1, "https://c.example")
	if err != nil {
		t.Fatalf("InsertAtDivider() error = %v", err)
	}
	assertValid(t, state)
	// Orders 0,2 have no even gap; doubling opens 0,4 and the insert lands at 2.
	want := []int{0, 2, 4}
	got := paneOrders(state)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("orders = %v, want %v", got, want)
		}
	}
	if state.Panes()[1] != p {
		t.Fatalf("inserted pane not in the middle: orders %v", got)
	}
	for _, pn := range state.Panes() {
		if pn.Ratio < 33.32 || pn.Ratio > 33.35 {
			t.Fatalf("ratio = %v, want about a third", pn.Ratio)
		}
	}
	if sum := state.RatioSum(); math.Abs(sum-100) > 0.001 {
		t.Fatalf("ratio sum = %v, want 100", sum)
	}
}

func TestInsertFourthPaneForcesGrid(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b", "c"}})

	if _, err := uc.InsertAtDivider(context.Background(), state, 1, "d"); err != nil {
		t.Fatalf("InsertAtDivider() error = %v", err)
	}
	assertValid(t, state)
	if state.Mode != entity.ModeGrid {
		t.Fatalf("mode = %v, want grid after fourth insert", state.Mode)
	}
	if state.GridColumnPercent != 50 || state.GridRowPercent != 50 {
		t.Fatalf("grid percents = %v/%v, want 50/50", state.GridColumnPercent, state.GridRowPercent)
	}
}

func TestInsertAtEdge(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b"}})

	head, err := uc.InsertAtEdge(context.Background(), state, EdgeHead, "h")
	if err != nil {
		t.Fatalf("InsertAtEdge(head) error = %v", err)
	}
	assertValid(t, state)
	if state.Panes()[0] != head {
		t.Fatalf("head insert not first: orders %v", paneOrders(state))
	}

	tail, err := uc.InsertAtEdge(context.Background(), state, EdgeTail, "t")
	if err != nil {
		t.Fatalf("InsertAtEdge(tail) error = %v", err)
	}
	assertValid(t, state)
	panes := state.Panes()
	if panes[len(panes)-1] != tail {
		t.Fatalf("tail insert not last: orders %v", paneOrders(state))
	}
	if state.Mode != entity.ModeGrid {
		t.Fatalf("mode = %v, want grid at four panes", state.Mode)
	}
}

func TestInsertRefusedAtLimit(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b", "c", "d"}, Mode: entity.ModeHorizontal})
	before := paneOrders(state)

	if _, err := uc.InsertAtEdge(context.Background(), state, EdgeTail, "e"); !errors.Is(err, entity.ErrPaneLimit) {
		t.Fatalf("InsertAtEdge() error = %v, want ErrPaneLimit", err)
	}
	if _, err := uc.InsertAtDivider(context.Background(), state, 1, "e"); !errors.Is(err, entity.ErrPaneLimit) {
		t.Fatalf("InsertAtDivider() error = %v, want ErrPaneLimit", err)
	}
	after := paneOrders(state)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("state mutated by refused insert: %v -> %v", before, after)
		}
	}
}

func TestInsertAtUnknownDivider(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b"}})
	if _, err := uc.InsertAtDivider(context.Background(), state, 7, "c"); !errors.Is(err, entity.ErrDividerNotFound) {
		t.Fatalf("InsertAtDivider() error = %v, want ErrDividerNotFound", err)
	}
}

func TestRemoveRedistributesRatios(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b", "c"}})

	out, err := uc.Remove(context.Background(), state, 2)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	assertValid(t, state)
	if out.Remaining != 2 {
		t.Fatalf("Remaining = %d, want 2", out.Remaining)
	}
	for _, p := range state.Panes() {
		if p.Ratio != 50 {
			t.Fatalf("ratio = %v, want 50", p.Ratio)
		}
	}
	if got := len(state.Dividers()); got != 1 {
		t.Fatalf("dividers = %d, want 1", got)
	}
}

func TestRemoveFromGridLeavesGrid(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b", "c", "d"}})
	if state.Mode != entity.ModeGrid {
		t.Fatalf("precondition: mode = %v, want grid", state.Mode)
	}

	if _, err := uc.Remove(context.Background(), state, 0); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	assertValid(t, state)
	if state.Mode != entity.ModeHorizontal {
		t.Fatalf("mode = %v, want horizontal after leaving grid", state.Mode)
	}
	if sum := state.RatioSum(); math.Abs(sum-100) > 0.001 {
		t.Fatalf("ratio sum = %v, want 100", sum)
	}
}

func TestRemoveToSinglePromotes(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"https://a.example", "https://b.example"}})

	out, err := uc.Remove(context.Background(), state, 0)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if out.Remaining != 1 {
		t.Fatalf("Remaining = %d, want 1", out.Remaining)
	}
	if out.PromoteURL != "https://b.example" {
		t.Fatalf("PromoteURL = %q, want survivor url", out.PromoteURL)
	}
}

func TestRemoveToZero(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"https://a.example"}})

	out, err := uc.Remove(context.Background(), state, 0)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if out.Remaining != 0 {
		t.Fatalf("Remaining = %d, want 0", out.Remaining)
	}
	if out.PromoteURL != "" {
		t.Fatalf("PromoteURL = %q, want empty with no survivor", out.PromoteURL)
	}
}

func TestRemoveUnknownOrder(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b"}})
	if _, err := uc.Remove(context.Background(), state, 6); !errors.Is(err, entity.ErrPaneNotFound) {
		t.Fatalf("Remove() error = %v, want ErrPaneNotFound", err)
	}
	assertValid(t, state)
}

func TestMoveSwapsWithNeighbor(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b", "c"}})
	first := state.Panes()[0]

	if err := uc.Move(context.Background(), state, 0, MoveRight); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	assertValid(t, state)
	if state.Panes()[1] != first {
		t.Fatalf("pane did not move right: %v", paneOrders(state))
	}

	if err := uc.Move(context.Background(), state, first.Order, MoveLeft); err != nil {
		t.Fatalf("Move() back error = %v", err)
	}
	if state.Panes()[0] != first {
		t.Fatalf("pane did not move back: %v", paneOrders(state))
	}
}

func TestMoveDirectionLabelsRotateInVerticalMode(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b"}, Mode: entity.ModeVertical})

	if err := uc.Move(context.Background(), state, 0, MoveRight); !errors.Is(err, entity.ErrNoAdjacentPane) {
		t.Fatalf("Move(right) in vertical = %v, want ErrNoAdjacentPane", err)
	}
	if err := uc.Move(context.Background(), state, 0, MoveDown); err != nil {
		t.Fatalf("Move(down) in vertical error = %v", err)
	}
	assertValid(t, state)
}

func TestMoveInGrid(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b", "c", "d"}})
	topLeft := state.Panes()[0]

	if err := uc.Move(context.Background(), state, 0, MoveDown); err != nil {
		t.Fatalf("Move(down) in grid error = %v", err)
	}
	assertValid(t, state)
	if state.Panes()[2] != topLeft {
		t.Fatalf("pane did not move to the lower row: %v", paneOrders(state))
	}
	if err := uc.Move(context.Background(), state, topLeft.Order, MoveLeft); !errors.Is(err, entity.ErrNoAdjacentPane) {
		t.Fatalf("Move(left) from left column = %v, want ErrNoAdjacentPane", err)
	}
}

func TestMoveAtBoundary(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b"}})
	if err := uc.Move(context.Background(), state, 0, MoveLeft); !errors.Is(err, entity.ErrNoAdjacentPane) {
		t.Fatalf("Move(left) at boundary = %v, want ErrNoAdjacentPane", err)
	}
}

func TestToggleFullPane(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b", "c"}})

	on, err := uc.ToggleFullPane(context.Background(), state, 2)
	if err != nil || !on {
		t.Fatalf("ToggleFullPane() = %v, %v, want true, nil", on, err)
	}
	if fp := state.FullPane(); fp == nil || fp.Order != 2 {
		t.Fatalf("FullPane() = %v, want pane 2", fp)
	}

	// Toggling another pane moves the flag instead of stacking it.
	if _, err := uc.ToggleFullPane(context.Background(), state, 0); err != nil {
		t.Fatalf("ToggleFullPane() error = %v", err)
	}
	assertValid(t, state)
	if fp := state.FullPane(); fp == nil || fp.Order != 0 {
		t.Fatalf("FullPane() = %v, want pane 0", fp)
	}

	off, err := uc.ToggleFullPane(context.Background(), state, 0)
	if err != nil || off {
		t.Fatalf("ToggleFullPane() = %v, %v, want false, nil", off, err)
	}
	if state.FullPane() != nil {
		t.Fatalf("FullPane() = %v, want nil", state.FullPane())
	}
}

func TestSetModeGridGating(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b"}})

	if err := uc.SetMode(context.Background(), state, entity.ModeGrid); !errors.Is(err, entity.ErrGridRequiresFour) {
		t.Fatalf("SetMode(grid) = %v, want ErrGridRequiresFour", err)
	}
	if state.Mode != entity.ModeHorizontal {
		t.Fatalf("mode changed by refused switch: %v", state.Mode)
	}

	state = mustState(t, uc, NewStateInput{URLs: []string{"a", "b", "c", "d"}, Mode: entity.ModeHorizontal})
	if err := uc.SetMode(context.Background(), state, entity.ModeGrid); err != nil {
		t.Fatalf("SetMode(grid) with four panes error = %v", err)
	}
	assertValid(t, state)
}

func TestLeavingGridEqualizesRatios(t *testing.T) {
	uc := newEditUC()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b", "c", "d"}})
	// Skew what will become ratios, then leave grid.
	for i, p := range state.Panes() {
		p.Ratio = float64(10 + i*20)
	}

	if err := uc.SetMode(context.Background(), state, entity.ModeVertical); err != nil {
		t.Fatalf("SetMode(vertical) error = %v", err)
	}
	assertValid(t, state)
	for _, p := range state.Panes() {
		if p.Ratio != 25 {
			t.Fatalf("ratio = %v, want 25 after leaving grid", p.Ratio)
		}
	}
	if got := len(state.Dividers()); got != 3 {
		t.Fatalf("dividers = %d, want 3", got)
	}
}

func TestOperationSequencePreservesInvariants(t *testing.T) {
	uc := newEditUC()
	ctx := context.Background()
	state := mustState(t, uc, NewStateInput{URLs: []string{"a", "b"}})

	steps := []func() error{
		func() error { _, err := uc.InsertAtEdge(ctx, state, EdgeTail, "c"); return err },
		func() error { return uc.Move(ctx, state, state.Panes()[1].Order, MoveRight) },
		func() error { _, err := uc.InsertAtDivider(ctx, state, state.Dividers()[0].Order, "d"); return err },
		func() error { return uc.SetMode(ctx, state, entity.ModeHorizontal) },
		func() error { _, err := uc.Remove(ctx, state, state.Panes()[2].Order); return err },
		func() error { _, err := uc.ToggleFullPane(ctx, state, state.Panes()[0].Order); return err },
		func() error { _, err := uc.ToggleFullPane(ctx, state, state.Panes()[0].Order); return err },
		func() error { return uc.SetMode(ctx, state, entity.ModeVertical) },
		func() error { _, err := uc.Remove(ctx, state, state.Panes()[0].Order); return err },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
		assertValid(t, state)
	}
}
