package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quadpane/quadpane/internal/application/usecase"
	"github.com/quadpane/quadpane/internal/compositor"
	"github.com/quadpane/quadpane/internal/domain/entity"
	"github.com/quadpane/quadpane/internal/logging"
)

// chromeRows is the fixed vertical space around the layout canvas: title
// bar, status bar (or insert prompt) and help line.
const chromeRows = 3

// inspectorKeyMap defines key bindings for the inspector.
type inspectorKeyMap struct {
	FocusLeft  key.Binding
	FocusRight key.Binding
	FocusUp    key.Binding
	FocusDown  key.Binding
	MoveNext   key.Binding
	MovePrev   key.Binding
	Insert     key.Binding
	Remove     key.Binding
	FullPane   key.Binding
	Horizontal key.Binding
	Vertical   key.Binding
	Grid       key.Binding
	Equalize   key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultInspectorKeyMap() inspectorKeyMap {
	return inspectorKeyMap{
		FocusLeft: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "focus left"),
		),
		FocusRight: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "focus right"),
		),
		FocusUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "focus up"),
		),
		FocusDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "focus down"),
		),
		MoveNext: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "move pane forward"),
		),
		MovePrev: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "move pane back"),
		),
		Insert: key.NewBinding(
			key.WithKeys("+"),
			key.WithHelp("+", "insert pane"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "remove pane"),
		),
		FullPane: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "toggle full-pane"),
		),
		Horizontal: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "horizontal mode"),
		),
		Vertical: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "vertical mode"),
		),
		Grid: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "grid mode"),
		),
		Equalize: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "equalize ratios"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the keys shown in the collapsed help line.
func (k inspectorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Insert, k.Remove, k.FullPane, k.Help, k.Quit}
}

// FullHelp returns all key bindings grouped into columns.
func (k inspectorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.FocusLeft, k.FocusRight, k.FocusUp, k.FocusDown},
		{k.MoveNext, k.MovePrev, k.Insert, k.Remove},
		{k.Horizontal, k.Vertical, k.Grid, k.FullPane},
		{k.Equalize, k.Help, k.Quit},
	}
}

// layoutEventMsg carries one session event into the update loop.
type layoutEventMsg struct {
	event compositor.Event
}

// sessionEndedMsg signals that the session's event stream closed.
type sessionEndedMsg struct{}

// InspectorModel is the interactive geometry inspector. It drives a live
// session with the same operations the browser shell issues and redraws
// from the geometry descriptor after every change.
type InspectorModel struct {
	// UI components
	help  help.Model
	keys  inspectorKeyMap
	input textinput.Model

	// State
	width     int
	height    int
	geometry  entity.Geometry
	encoded   string
	inserting bool
	errMsg    string
	notice    string
	quitting  bool

	// Dependencies
	ctx       context.Context
	session   *compositor.Session
	events    <-chan compositor.Event
	cancelSub func()
	theme     *Theme
}

// NewInspector creates an inspector bound to the session. The caller owns
// the session's lifecycle; the inspector only subscribes to its events.
func NewInspector(ctx context.Context, session *compositor.Session) *InspectorModel {
	theme := NewTheme()
	events, cancel := session.Subscribe()
	return &InspectorModel{
		help:      help.New(),
		keys:      defaultInspectorKeyMap(),
		input:     newURLInput(theme),
		geometry:  session.Geometry(),
		encoded:   session.EncodedState(),
		ctx:       ctx,
		session:   session,
		events:    events,
		cancelSub: cancel,
		theme:     theme,
	}
}

// Init starts listening for session events.
func (m *InspectorModel) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *InspectorModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return sessionEndedMsg{}
		}
		return layoutEventMsg{event: ev}
	}
}

// Update handles messages.
func (m *InspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = msg.Width - 4
		m.resizeContainer()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case layoutEventMsg:
		switch ev := msg.event; ev.Kind {
		case compositor.EventLayoutChanged:
			m.geometry = ev.Geometry
		case compositor.EventStateEncoded:
			m.encoded = ev.Encoded
		case compositor.EventCloseViewPromote:
			m.notice = "one pane left, promote to " + ev.PromoteURL
		case compositor.EventCloseView:
			m.quitting = true
			return m, tea.Quit
		}
		return m, m.waitForEvent()

	case sessionEndedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	if m.inserting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *InspectorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inserting {
		switch msg.Type {
		case tea.KeyEnter:
			url := strings.TrimSpace(m.input.Value())
			m.closePrompt()
			if url != "" {
				m.insertPane(normalizeURL(url))
			}
			return m, nil
		case tea.KeyEsc:
			m.closePrompt()
			return m, nil
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Insert):
		m.inserting = true
		m.errMsg = ""
		m.notice = ""
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.FocusLeft):
		m.moveFocus(usecase.MoveLeft)
	case key.Matches(msg, m.keys.FocusRight):
		m.moveFocus(usecase.MoveRight)
	case key.Matches(msg, m.keys.FocusUp):
		m.moveFocus(usecase.MoveUp)
	case key.Matches(msg, m.keys.FocusDown):
		m.moveFocus(usecase.MoveDown)

	case key.Matches(msg, m.keys.MoveNext):
		m.do(func() error { return m.session.MovePane(m.ctx, m.focusedOrder(), m.forward()) })
	case key.Matches(msg, m.keys.MovePrev):
		m.do(func() error { return m.session.MovePane(m.ctx, m.focusedOrder(), m.backward()) })

	case key.Matches(msg, m.keys.Remove):
		m.do(func() error { return m.session.RemovePane(m.ctx, m.focusedOrder()) })

	case key.Matches(msg, m.keys.FullPane):
		m.do(func() error {
			_, err := m.session.ToggleFullPane(m.ctx, m.focusedOrder())
			return err
		})

	case key.Matches(msg, m.keys.Horizontal):
		m.do(func() error { return m.session.SetMode(m.ctx, entity.ModeHorizontal) })
	case key.Matches(msg, m.keys.Vertical):
		m.do(func() error { return m.session.SetMode(m.ctx, entity.ModeVertical) })
	case key.Matches(msg, m.keys.Grid):
		m.do(func() error { return m.session.SetMode(m.ctx, entity.ModeGrid) })

	case key.Matches(msg, m.keys.Equalize):
		m.do(func() error { return m.session.EqualizeRatios(m.ctx) })
	}
	return m, nil
}

// do runs one session operation, surfacing failures on the status bar and
// pulling fresh geometry on success.
func (m *InspectorModel) do(op func() error) {
	if err := op(); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.notice = ""
	m.refresh()
}

func (m *InspectorModel) refresh() {
	m.geometry = m.session.Geometry()
}

func (m *InspectorModel) resizeContainer() {
	w := m.width
	h := m.height - chromeRows
	if w < 1 || h < 1 {
		return
	}
	if err := m.session.SetContainer(m.ctx, entity.Rect{W: float64(w), H: float64(h)}); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.refresh()
}

func (m *InspectorModel) closePrompt() {
	m.inserting = false
	m.input.Reset()
	m.input.Blur()
}

// insertPane splits the divider after the focused pane, or grows the tail
// edge when the focused pane is last. Grid gutters are overlays, not
// splittable dividers, so grid mode always goes through the edge path.
func (m *InspectorModel) insertPane(url string) {
	m.do(func() error {
		idx := m.focusedIndex()
		linear := m.geometry.Mode != entity.ModeGrid && m.geometry.FullPane == ""
		if linear && idx >= 0 && idx < len(m.geometry.Dividers) {
			_, err := m.session.InsertAtDivider(m.ctx, m.geometry.Dividers[idx].Order, url)
			return err
		}
		_, err := m.session.InsertAtEdge(m.ctx, usecase.EdgeTail, url)
		return err
	})
}

// moveFocus activates the neighbor pane in the given direction, walking
// the reading order the way the layout axes run.
func (m *InspectorModel) moveFocus(dir usecase.MoveDirection) {
	order, ok := m.focusTarget(dir)
	if !ok {
		return
	}
	m.do(func() error { return m.session.SetActivePane(m.ctx, order) })
}

func (m *InspectorModel) focusTarget(dir usecase.MoveDirection) (int, bool) {
	panes := m.geometry.Panes
	idx := m.focusedIndex()
	if idx < 0 || len(panes) < 2 {
		return 0, false
	}

	step := 0
	switch m.geometry.Mode {
	case entity.ModeGrid:
		switch dir {
		case usecase.MoveLeft:
			if idx%2 == 1 {
				step = -1
			}
		case usecase.MoveRight:
			if idx%2 == 0 {
				step = 1
			}
		case usecase.MoveUp:
			if idx >= 2 {
				step = -2
			}
		case usecase.MoveDown:
			if idx < 2 {
				step = 2
			}
		}
	case entity.ModeVertical:
		switch dir {
		case usecase.MoveUp:
			step = -1
		case usecase.MoveDown:
			step = 1
		}
	default:
		switch dir {
		case usecase.MoveLeft:
			step = -1
		case usecase.MoveRight:
			step = 1
		}
	}

	next := idx + step
	if step == 0 || next < 0 || next >= len(panes) {
		return 0, false
	}
	return panes[next].Order, true
}

func (m *InspectorModel) focusedIndex() int {
	for i, p := range m.geometry.Panes {
		if p.Active {
			return i
		}
	}
	if len(m.geometry.Panes) > 0 {
		return 0
	}
	return -1
}

func (m *InspectorModel) focusedOrder() int {
	if idx := m.focusedIndex(); idx >= 0 {
		return m.geometry.Panes[idx].Order
	}
	return 0
}

// forward maps the "move pane forward" key onto the layout's primary axis.
func (m *InspectorModel) forward() usecase.MoveDirection {
	if m.geometry.Mode == entity.ModeVertical {
		return usecase.MoveDown
	}
	return usecase.MoveRight
}

func (m *InspectorModel) backward() usecase.MoveDirection {
	if m.geometry.Mode == entity.ModeVertical {
		return usecase.MoveUp
	}
	return usecase.MoveLeft
}

// View renders the inspector.
func (m *InspectorModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderTitleBar())
	b.WriteString("\n")

	canvas := renderLayout(m.geometry, m.theme)
	b.WriteString(lipgloss.Place(m.width, m.height-chromeRows, lipgloss.Left, lipgloss.Top, canvas))
	b.WriteString("\n")

	if m.inserting {
		b.WriteString(m.theme.InputBar.MaxWidth(m.width).Render(m.input.View()))
	} else {
		b.WriteString(m.renderStatusBar())
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *InspectorModel) renderTitleBar() string {
	parts := []string{
		m.theme.Title.Render("quadpane"),
		m.theme.Badge.Render(string(m.geometry.Mode)),
		m.theme.BadgeMuted.Render(fmt.Sprintf("%d panes", len(m.geometry.Panes))),
	}
	if m.geometry.FullPane != "" {
		parts = append(parts, m.theme.Badge.Render("full"))
	}
	return strings.Join(parts, " ")
}

func (m *InspectorModel) renderStatusBar() string {
	switch {
	case m.errMsg != "":
		return m.theme.ErrorStyle.MaxWidth(m.width).Render(m.errMsg)
	case m.notice != "":
		return m.theme.Subtle.MaxWidth(m.width).Render(m.notice)
	default:
		return m.theme.Subtle.MaxWidth(m.width).Render("state " + m.encoded)
	}
}

func normalizeURL(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

// RunInspector drives the inspector under a fullscreen bubbletea program
// until the user quits or the session ends.
func RunInspector(ctx context.Context, session *compositor.Session) error {
	log := logging.FromContext(ctx)
	model := NewInspector(ctx, session)
	defer model.cancelSub()

	log.Debug().Str("session_id", session.ID()).Msg("inspector starting")
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("inspector: %w", err)
	}
	return nil
}

var _ tea.Model = (*InspectorModel)(nil)
