// Package usecase contains application logic over the domain entities.
// Use cases are stateless; callers own the LayoutState they mutate.
package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/logging"
)

// IDGenerator produces unique IDs for panes and dividers.
type IDGenerator func() string

// MoveDirection indicates the direction for pane reordering.
type MoveDirection string

const (
	MoveLeft  MoveDirection = "left"
	MoveRight MoveDirection = "right"
	MoveUp    MoveDirection = "up"
	MoveDown  MoveDirection = "down"
)

// EdgePosition addresses the leading or trailing boundary for edge inserts.
type EdgePosition string

const (
	EdgeHead EdgePosition = "head"
	EdgeTail EdgePosition = "tail"
)

// EditLayoutUseCase owns structural edits: insertion, removal, reordering,
// mode transitions and the ordering invariants behind them.
type EditLayoutUseCase struct {
	idGenerator IDGenerator
}

// NewEditLayoutUseCase creates a new structural editor use case.
func NewEditLayoutUseCase(idGenerator IDGenerator) *EditLayoutUseCase {
	return &EditLayoutUseCase{
		idGenerator: idGenerator,
	}
}

// NewStateInput carries the decoded initial descriptor for a composed view.
// Ratios, Titles and Mode may be empty; defaults are applied.
type NewStateInput struct {
	URLs   []string
	Ratios []float64
	Titles []string
	Mode   entity.LayoutMode
}

// NewState builds a valid LayoutState from an initial descriptor.
// Defaults: no mode means horizontal, except exactly four URLs mean grid;
// missing or unusable ratios mean an equal split. More than four URLs are
// truncated to four rather than failing view construction.
func (uc *EditLayoutUseCase) NewState(ctx context.Context, input NewStateInput) (*entity.LayoutState, error) {
	log := logging.FromContext(ctx)

	urls := input.URLs
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one url is required")
	}
	if len(urls) > entity.MaxPanes {
		log.Warn().Int("urls", len(urls)).Msg("truncating initial descriptor to pane limit")
		urls = urls[:entity.MaxPanes]
	}

	mode := input.Mode
	if !mode.Valid() {
		// Malformed is treated the same as omitted.
		mode = ""
	}
	if mode == entity.ModeGrid && len(urls) != entity.MaxPanes {
		mode = entity.ModeHorizontal
	}
	if mode == "" {
		if len(urls) == entity.MaxPanes {
			mode = entity.ModeGrid
		} else {
			mode = entity.ModeHorizontal
		}
	}

	state := entity.NewLayoutState(mode)
	panes := make([]*entity.Pane, 0, len(urls))
	ratios := normalizeRatios(input.Ratios, len(urls))
	for i, u := range urls {
		p := uc.newPane(u)
		p.Order = i * 2
		p.Ratio = ratios[i]
		if i < len(input.Titles) {
			p.Title = input.Titles[i]
		}
		panes = append(panes, p)
	}
	uc.rebuildSlots(state, panes)
	state.ActivePaneID = panes[0].ID

	if err := state.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Int("panes", len(panes)).
		Str("mode", string(state.Mode)).
		Msg("layout state created")
	return state, nil
}

// InsertAtDivider creates a new pane between the divider's neighbors. The new
// order is interpolated between theirs; when no even integer gap remains, all
// orders are renumbered by doubling first. Reaching four panes forces grid
// mode with centered percents.
func (uc *EditLayoutUseCase) InsertAtDivider(ctx context.Context, state *entity.LayoutState, dividerOrder int, url string) (*entity.Pane, error) {
	log := logging.FromContext(ctx)

	if state.PaneCount() >= entity.MaxPanes {
		return nil, entity.ErrPaneLimit
	}
	left, right := state.DividerNeighbors(dividerOrder)
	if left == nil || right == nil {
		return nil, entity.ErrDividerNotFound
	}

	order, ok := evenBetween(left.Order, right.Order)
	if !ok {
		renumberDoubled(state)
		order, ok = evenBetween(left.Order, right.Order)
		if !ok {
			return nil, fmt.Errorf("no order gap after renumbering between %d and %d", left.Order, right.Order)
		}
		log.Debug().Msg("pane orders renumbered to open an insertion gap")
	}

	p := uc.newPane(url)
	p.Order = order
	panes := append(state.Panes(), p)
	sortPanes(panes)
	uc.installInserted(state, panes)
	state.ActivePaneID = p.ID

	log.Debug().
		Int("order", p.Order).
		Int("panes", len(panes)).
		Str("mode", string(state.Mode)).
		Msg("pane inserted at divider")
	return p, nil
}

// InsertAtEdge creates a new pane at the leading or trailing boundary.
func (uc *EditLayoutUseCase) InsertAtEdge(ctx context.Context, state *entity.LayoutState, edge EdgePosition, url string) (*entity.Pane, error) {
	log := logging.FromContext(ctx)

	if state.PaneCount() >= entity.MaxPanes {
		return nil, entity.ErrPaneLimit
	}
	panes := state.Panes()
	if len(panes) == 0 {
		return nil, entity.ErrPaneNotFound
	}

	p := uc.newPane(url)
	switch edge {
	case EdgeHead:
		if panes[0].Order == 0 {
			// No room below zero; shift everyone up to open the slot.
			for _, existing := range panes {
				existing.Order += 2
			}
		}
		p.Order = panes[0].Order - 2
	case EdgeTail:
		p.Order = panes[len(panes)-1].Order + 2
	default:
		return nil, fmt.Errorf("unknown edge %q", edge)
	}

	panes = append(panes, p)
	sortPanes(panes)
	uc.installInserted(state, panes)
	state.ActivePaneID = p.ID

	log.Debug().
		Str("edge", string(edge)).
		Int("order", p.Order).
		Str("mode", string(state.Mode)).
		Msg("pane inserted at edge")
	return p, nil
}

// RemoveOutput reports the result of removing a pane. Remaining counts of
// zero and one tell the owner to close the composed view, the latter with
// the survivor promoted to a standalone page.
type RemoveOutput struct {
	Removed    *entity.Pane
	Remaining  int
	PromoteURL string
}

// Remove deletes the pane with the given order and redistributes ratios
// across the survivors. Dropping below four panes leaves grid mode.
func (uc *EditLayoutUseCase) Remove(ctx context.Context, state *entity.LayoutState, order int) (*RemoveOutput, error) {
	log := logging.FromContext(ctx)

	target := state.PaneByOrder(order)
	if target == nil {
		return nil, entity.ErrPaneNotFound
	}

	panes := make([]*entity.Pane, 0, state.PaneCount()-1)
	for _, p := range state.Panes() {
		if p.Order != order {
			panes = append(panes, p)
		}
	}

	out := &RemoveOutput{Removed: target, Remaining: len(panes)}
	switch len(panes) {
	case 0:
		state.Slots = nil
		state.ActivePaneID = ""
	case 1:
		out.PromoteURL = panes[0].URL
		if state.Mode == entity.ModeGrid {
			state.Mode = entity.ModeHorizontal
		}
		panes[0].Ratio = 100
		state.Slots = []entity.Slot{{Pane: panes[0]}}
		state.ActivePaneID = panes[0].ID
	default:
		if state.Mode == entity.ModeGrid {
			state.Mode = entity.ModeHorizontal
		}
		equalizeRatios(panes)
		uc.rebuildSlots(state, panes)
		if state.ActivePaneID == target.ID {
			state.ActivePaneID = panes[0].ID
		}
	}

	log.Debug().
		Int("order", order).
		Int("remaining", len(panes)).
		Msg("pane removed")
	return out, nil
}

// Move swaps the pane's order with its neighbor in the requested direction.
// Direction labels follow the axis: horizontal mode moves on left/right,
// vertical mode on up/down, grid mode on both (row and column neighbors).
// Ratios travel with their panes.
func (uc *EditLayoutUseCase) Move(ctx context.Context, state *entity.LayoutState, order int, dir MoveDirection) error {
	log := logging.FromContext(ctx)

	p := state.PaneByOrder(order)
	if p == nil {
		return entity.ErrPaneNotFound
	}
	panes := state.Panes()
	idx := state.PaneIndex(order)

	targetIdx, err := adjacentIndex(state.Mode, idx, len(panes), dir)
	if err != nil {
		return err
	}

	neighbor := panes[targetIdx]
	p.Order, neighbor.Order = neighbor.Order, p.Order
	sortPanes(panes)
	uc.rebuildSlots(state, panes)

	log.Debug().
		Int("from_order", neighbor.Order).
		Int("to_order", p.Order).
		Str("direction", string(dir)).
		Msg("pane moved")
	return nil
}

// ToggleFullPane expands the pane to the whole container or restores the
// normal layout when it is already expanded. At most one pane holds the
// flag; toggling one on clears every other.
func (uc *EditLayoutUseCase) ToggleFullPane(ctx context.Context, state *entity.LayoutState, order int) (bool, error) {
	p := state.PaneByOrder(order)
	if p == nil {
		return false, entity.ErrPaneNotFound
	}

	was := p.FullPane
	for _, other := range state.Panes() {
		other.FullPane = false
	}
	p.FullPane = !was

	logging.FromContext(ctx).Debug().
		Int("order", order).
		Bool("full", p.FullPane).
		Msg("full-pane toggled")
	return p.FullPane, nil
}

// SetMode switches the layout mode. Grid requires exactly four panes;
// leaving grid resets every ratio to an equal split and rebuilds dividers.
func (uc *EditLayoutUseCase) SetMode(ctx context.Context, state *entity.LayoutState, mode entity.LayoutMode) error {
	if !mode.Valid() {
		return entity.ErrInvalidMode
	}
	if mode == state.Mode {
		return nil
	}

	panes := state.Panes()
	switch {
	case mode == entity.ModeGrid:
		if len(panes) != entity.MaxPanes {
			return entity.ErrGridRequiresFour
		}
		state.Mode = entity.ModeGrid
		state.Slots = paneSlots(panes)
	case state.Mode == entity.ModeGrid:
		state.Mode = mode
		equalizeRatios(panes)
		uc.rebuildSlots(state, panes)
	default:
		// Linear to linear: same structure, new axis.
		state.Mode = mode
	}

	logging.FromContext(ctx).Debug().
		Str("mode", string(mode)).
		Msg("layout mode set")
	return nil
}

// newPane creates a pane with a fresh ID.
func (uc *EditLayoutUseCase) newPane(url string) *entity.Pane {
	return entity.NewPane(entity.PaneID(uc.idGenerator()), url)
}

// installInserted finishes an insertion: reaching the pane limit forces grid
// mode with centered percents, anything less equalizes ratios and rebuilds
// linear dividers.
func (uc *EditLayoutUseCase) installInserted(state *entity.LayoutState, panes []*entity.Pane) {
	if len(panes) == entity.MaxPanes {
		state.Mode = entity.ModeGrid
		state.GridColumnPercent = 50
		state.GridRowPercent = 50
		state.Slots = paneSlots(panes)
		return
	}
	equalizeRatios(panes)
	uc.rebuildSlots(state, panes)
}

// rebuildSlots re-interleaves panes with fresh dividers in linear modes.
func (uc *EditLayoutUseCase) rebuildSlots(state *entity.LayoutState, panes []*entity.Pane) {
	if state.Mode == entity.ModeGrid {
		state.Slots = paneSlots(panes)
		return
	}
	slots := make([]entity.Slot, 0, 2*len(panes)-1)
	for i, p := range panes {
		if i > 0 {
			slots = append(slots, entity.Slot{Divider: &entity.Divider{
				ID:    uc.idGenerator(),
				Order: oddBetween(panes[i-1].Order, p.Order),
			}})
		}
		slots = append(slots, entity.Slot{Pane: p})
	}
	state.Slots = slots
}

// paneSlots wraps panes as a divider-free slot sequence.
func paneSlots(panes []*entity.Pane) []entity.Slot {
	slots := make([]entity.Slot, len(panes))
	for i, p := range panes {
		slots[i] = entity.Slot{Pane: p}
	}
	return slots
}

func sortPanes(panes []*entity.Pane) {
	sort.Slice(panes, func(i, j int) bool { return panes[i].Order < panes[j].Order })
}

// evenBetween returns an even integer strictly between l and r when one
// exists.
func evenBetween(l, r int) (int, bool) {
	mid := (l + r) / 2
	if mid%2 != 0 {
		mid--
	}
	if mid > l && mid < r {
		return mid, true
	}
	return 0, false
}

// oddBetween returns an odd integer strictly between two even orders.
// Adjacent even orders always leave one.
func oddBetween(l, r int) int {
	mid := (l + r) / 2
	if mid%2 == 0 {
		mid++
	}
	return mid
}

// renumberDoubled doubles every pane order, preserving relative order while
// opening even gaps between all neighbors.
func renumberDoubled(state *entity.LayoutState) {
	for _, p := range state.Panes() {
		p.Order *= 2
	}
}

// equalizeRatios resets all ratios to an equal split summing to exactly 100.
func equalizeRatios(panes []*entity.Pane) {
	if len(panes) == 0 {
		return
	}
	share := roundRatio(100 / float64(len(panes)))
	total := 0.0
	for _, p := range panes[:len(panes)-1] {
		p.Ratio = share
		total += share
	}
	panes[len(panes)-1].Ratio = roundRatio(100 - total)
}

// roundRatio rounds a percentage to two decimal places.
func roundRatio(v float64) float64 {
	return math.Round(v*100) / 100
}

// normalizeRatios rescales a decoded ratio vector to sum to 100, falling
// back to an equal split when it is missing, mismatched or non-positive.
func normalizeRatios(ratios []float64, n int) []float64 {
	out := make([]float64, n)
	usable := len(ratios) == n
	sum := 0.0
	if usable {
		for _, r := range ratios {
			if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
				usable = false
				break
			}
			sum += r
		}
	}
	if !usable || sum == 0 {
		share := roundRatio(100 / float64(n))
		total := 0.0
		for i := 0; i < n-1; i++ {
			out[i] = share
			total += share
		}
		out[n-1] = roundRatio(100 - total)
		return out
	}
	total := 0.0
	for i := 0; i < n-1; i++ {
		out[i] = roundRatio(ratios[i] / sum * 100)
		total += out[i]
	}
	out[n-1] = roundRatio(100 - total)
	return out
}

// adjacentIndex resolves the pane index adjacent to idx in the given
// direction under the mode's axis conventions.
func adjacentIndex(mode entity.LayoutMode, idx, count int, dir MoveDirection) (int, error) {
	target := -1
	switch mode {
	case entity.ModeHorizontal:
		switch dir {
		case MoveLeft:
			target = idx - 1
		case MoveRight:
			target = idx + 1
		}
	case entity.ModeVertical:
		switch dir {
		case MoveUp:
			target = idx - 1
		case MoveDown:
			target = idx + 1
		}
	case entity.ModeGrid:
		// Cells fill rows first: indexes 0 1 on top, 2 3 below.
		switch dir {
		case MoveLeft:
			if idx%2 == 1 {
				target = idx - 1
			}
		case MoveRight:
			if idx%2 == 0 {
				target = idx + 1
			}
		case MoveUp:
			target = idx - 2
		case MoveDown:
			target = idx + 2
		}
	}
	if target < 0 || target >= count {
		return 0, entity.ErrNoAdjacentPane
	}
	return target, nil
}
