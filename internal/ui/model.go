package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/nickpending/inbox/internal/api"
	"github.com/nickpending/inbox/internal/commands"
	"github.com/nickpending/inbox/internal/config"
	"github.com/nickpending/inbox/internal/feed"
)

// highlightDuration is how long a jump target stays highlighted
const highlightDuration = 2 * time.Second

// Options wires the model to its data sources
type Options struct {
	Source  feed.Source
	Pins    feed.PinSource      // nil disables the pins modal
	Events  <-chan api.Event    // live notifications; nil falls back to polling
	Config  *config.Config      // nil uses config.Default()
	Logger  *zerolog.Logger
	Metrics *feed.Metrics
	Jump    string // cursor to open at instead of the newest page
	Label   string // where the inbox comes from, for the header
}

// Model represents the application state for the TUI
type Model struct {
	ctx    context.Context
	log    zerolog.Logger
	pane   *feedPane
	pins   feed.PinSource
	events <-chan api.Event
	label  string
	jump   string // startup jump target, consumed by Init

	theme         StyleTheme
	width         int
	height        int
	ready         bool
	statusMessage string
	spinner       spinner.Model
	pollInterval  time.Duration

	pinsModal   PinsModal
	helpModal   HelpModal
	readerModal ReaderModal
	commandMode CommandMode
}

// feedResultMsg carries a finished page fetch back to the UI loop
type feedResultMsg struct {
	res feed.Result
}

// liveEventMsg is a notification from the daemon's event stream
type liveEventMsg struct {
	event api.Event
	ok    bool // false once the stream is closed
}

// pollMsg triggers a local refresh when there is no event stream
type pollMsg struct{}

// statusMsg sets the status line
type statusMsg struct {
	text string
}

// clearStatusMsg is sent to clear the status message after a delay
type clearStatusMsg struct{}

// clearHighlightMsg ends the highlight on path
type clearHighlightMsg struct {
	path string
}

// NewModel creates a new Model instance
func NewModel(ctx context.Context, opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "ui").Logger()
	}
	theme, _ := ThemeByName(cfg.TUI.Theme)

	feedOpts := feed.Options{
		PageSize:       cfg.Feed.PageSize,
		MaxPages:       cfg.Feed.MaxPages,
		LoadThreshold:  cfg.Feed.LoadThreshold,
		StickThreshold: cfg.Feed.StickThreshold,
		Logger:         opts.Logger,
		Metrics:        opts.Metrics,
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle() // drawn inside the gradient header

	m := Model{
		ctx:         ctx,
		log:         log,
		pane:        newFeedPane(opts.Source, feedOpts, theme),
		pins:        opts.Pins,
		label:       opts.Label,
		jump:        opts.Jump,
		theme:       theme,
		spinner:     sp,
		pinsModal:   NewPinsModal(),
		helpModal:   NewHelpModal(),
		readerModal: NewReaderModal(),
		commandMode: NewCommandMode(),
	}
	if cfg.TUI.Live {
		m.events = opts.Events
		if m.events == nil && cfg.GetRefreshInterval() > 0 {
			m.pollInterval = time.Duration(cfg.GetRefreshInterval()) * time.Second
		}
	}
	m.setTheme(theme)
	return m
}

// Init starts the first load and the live update loop
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}

	var req *feed.Request
	if m.jump != "" {
		r, err := m.pane.ctl.JumpToCursor(m.jump)
		if err != nil {
			m.log.Warn().Err(err).Str("cursor", m.jump).Msg("ignoring startup jump")
			cmds = append(cmds, statusCmd(fmt.Sprintf("✗ Bad cursor: %v", err)))
		}
		req = r
	}
	if req == nil {
		req = m.pane.ctl.Start()
	}
	cmds = append(cmds, m.fetch(req))

	switch {
	case m.events != nil:
		cmds = append(cmds, waitForEvent(m.events))
	case m.pollInterval > 0:
		cmds = append(cmds, pollCmd(m.pollInterval))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	// Messages that must be handled whatever has focus
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.pane.SetSize(msg.Width, msg.Height-3) // header, gap, status line
		m.pinsModal.SetSize(msg.Width, msg.Height)
		m.helpModal.SetSize(msg.Width, msg.Height)
		m.readerModal.SetSize(msg.Width, msg.Height)
		m.commandMode.SetWidth(msg.Width)
		return m, m.sync()

	case feedResultMsg:
		cmd = m.complete(msg.res)
		return m, cmd

	case liveEventMsg:
		cmd = m.handleEvent(msg)
		return m, cmd

	case pollMsg:
		return m, tea.Batch(m.sync(m.pane.ctl.Refresh()), pollCmd(m.pollInterval))

	case pinsLoadedMsg:
		m.pinsModal.SetPins(msg.pins, msg.err)
		if msg.err == nil {
			cursors := make([]string, 0, len(msg.pins))
			for _, p := range msg.pins {
				cursors = append(cursors, p.Cursor)
			}
			m.commandMode.SetCursors(cursors)
		}
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMsg:
		cmd = m.setStatus(msg.text)
		return m, cmd

	case clearStatusMsg:
		m.statusMessage = ""
		return m, nil

	case clearHighlightMsg:
		m.pane.ctl.ClearHighlight(msg.path)
		return m, m.sync()

	case copyMsg:
		cmd = m.copy(msg.text, msg.label)
		return m, cmd
	}

	// Command mode has the keyboard first
	if m.commandMode.IsActive() {
		m.commandMode, cmd = m.commandMode.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case commands.ErrorMsg:
		cmd = m.commandMode.SetError(msg.Message)
		return m, cmd
	case commands.HelpMsg:
		m.helpModal.Show()
		return m, nil
	case commands.JumpMsg:
		cmd = m.jumpTo(msg.Cursor)
		return m, cmd
	case commands.TopMsg:
		reqs := m.pane.ctl.ScrollToTop()
		m.pane.selectFirst()
		return m, m.sync(reqs...)
	case commands.BottomMsg:
		m.pane.ctl.ScrollToBottom()
		m.pane.selectLast()
		return m, m.sync()
	case commands.RefreshMsg:
		return m, m.sync(m.pane.ctl.Refresh())
	case commands.ReloadMsg:
		cmd = m.reload()
		return m, cmd
	case commands.PinsMsg:
		cmd = m.openPins()
		return m, cmd
	case commands.YankMsg:
		cmd = m.yank(msg.Target)
		return m, cmd
	case commands.ThemeMsg:
		cmd = m.switchTheme(msg.Name)
		return m, cmd
	}

	// Modals
	switch {
	case m.pinsModal.IsVisible():
		m.pinsModal, cmd = m.pinsModal.Update(msg)
		return m, cmd
	case m.readerModal.IsVisible():
		m.readerModal, cmd = m.readerModal.Update(msg)
		return m, cmd
	case m.helpModal.IsVisible():
		m.helpModal, cmd = m.helpModal.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.pane.vp, cmd = m.pane.vp.Update(msg)
		cmds = append(cmds, cmd, m.scrolled())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Command):
			m.commandMode.Show()
			return m, nil
		case key.Matches(msg, keys.Help):
			m.helpModal.Show()
			return m, nil
		case key.Matches(msg, keys.Down):
			m.pane.move(1)
			cmds = append(cmds, m.scrolled())
		case key.Matches(msg, keys.Up):
			m.pane.move(-1)
			cmds = append(cmds, m.scrolled())
		case key.Matches(msg, keys.PageDown):
			m.pane.vp.HalfViewDown()
			m.pane.selected = ""
			cmds = append(cmds, m.scrolled())
		case key.Matches(msg, keys.PageUp):
			m.pane.vp.HalfViewUp()
			m.pane.selected = ""
			cmds = append(cmds, m.scrolled())
		case key.Matches(msg, keys.Top):
			reqs := m.pane.ctl.ScrollToTop()
			m.pane.selectFirst()
			cmds = append(cmds, m.sync(reqs...))
		case key.Matches(msg, keys.Bottom):
			m.pane.ctl.ScrollToBottom()
			m.pane.selectLast()
			cmds = append(cmds, m.sync())
		case key.Matches(msg, keys.Open):
			m.openReader()
		case key.Matches(msg, keys.Pins):
			cmds = append(cmds, m.openPins())
		case key.Matches(msg, keys.Yank):
			cmds = append(cmds, m.yank("cursor"))
		case key.Matches(msg, keys.Refresh):
			cmds = append(cmds, m.sync(m.pane.ctl.Refresh()))
		case key.Matches(msg, keys.Reload):
			cmds = append(cmds, m.reload())
		case key.Matches(msg, keys.Theme):
			cmds = append(cmds, m.switchTheme(""))
		}
	}

	return m, tea.Batch(cmds...)
}

// sync runs the layout and settle phase after anything that may have
// changed what is rendered, and turns the given and resulting loads into
// fetch commands
func (m Model) sync(reqs ...*feed.Request) tea.Cmd {
	prev := m.pane.lastHighlight
	reqs = append(reqs, m.pane.settle()...)

	var cmds []tea.Cmd
	for _, r := range reqs {
		if r != nil {
			cmds = append(cmds, m.fetch(r))
		}
	}
	if h := m.pane.lastHighlight; h != "" && h != prev {
		cmds = append(cmds, tea.Tick(highlightDuration, func(time.Time) tea.Msg {
			return clearHighlightMsg{path: h}
		}))
	}
	return tea.Batch(cmds...)
}

// scrolled reports a user scroll to the controller. Content shorter than
// the viewport cannot move, so edge loads are checked even when the offset
// stayed put.
func (m Model) scrolled() tea.Cmd {
	return m.sync(m.pane.ctl.OnScroll()...)
}

// fetch runs req off the UI loop
func (m Model) fetch(req *feed.Request) tea.Cmd {
	if req == nil {
		return nil
	}
	ctx, ctl := m.ctx, m.pane.ctl
	return func() tea.Msg {
		return feedResultMsg{res: ctl.Fetch(ctx, req)}
	}
}

// complete merges a fetch result and reports failures the user asked for
func (m *Model) complete(res feed.Result) tea.Cmd {
	ctl := m.pane.ctl
	changed := ctl.Complete(res)

	var cmds []tea.Cmd
	if res.Err != nil && res.Request.Kind == feed.KindNewest && ctl.Err() == nil {
		cmds = append(cmds, m.setStatus(fmt.Sprintf("✗ Reload failed: %v", res.Err)))
	}
	if res.Err != nil && res.Request.Kind == feed.KindAround {
		cmds = append(cmds, m.setStatus(fmt.Sprintf("✗ Jump failed: %v", res.Err)))
		// A failed deep link leaves nothing on screen; fall back to newest
		if ctl.State() == feed.StateInitialLoading && len(ctl.Items()) == 0 {
			cmds = append(cmds, m.fetch(ctl.Start()))
		}
	}
	if changed {
		cmds = append(cmds, m.sync())
	}
	return tea.Batch(cmds...)
}

// handleEvent reacts to a live notification and waits for the next one
func (m *Model) handleEvent(msg liveEventMsg) tea.Cmd {
	if !msg.ok {
		m.log.Warn().Msg("event stream closed")
		m.events = nil
		return nil
	}
	next := waitForEvent(m.events)
	switch msg.event.Type {
	case api.EventInboxChanged, api.EventConnected:
		// On (re)connect, catch up on anything missed while away
		return tea.Batch(next, m.sync(m.pane.ctl.Refresh()))
	case api.EventPinChanged:
		if m.pinsModal.IsVisible() {
			return tea.Batch(next, m.loadPins())
		}
	}
	return next
}

// jumpTo scrolls to the item a cursor names, loading around it if needed
func (m *Model) jumpTo(c string) tea.Cmd {
	req, err := m.pane.ctl.JumpToCursor(c)
	if err != nil {
		return m.setStatus(fmt.Sprintf("✗ Bad cursor: %v", err))
	}
	return m.sync(req)
}

// reload starts over from the newest page
func (m *Model) reload() tea.Cmd {
	return tea.Batch(m.setStatus("Reloading..."), m.sync(m.pane.ctl.Reload()))
}

func (m *Model) openPins() tea.Cmd {
	if m.pins == nil {
		return m.setStatus("Pins are not available for this source")
	}
	m.pinsModal.Open()
	return m.loadPins()
}

func (m Model) loadPins() tea.Cmd {
	ctx, src := m.ctx, m.pins
	return func() tea.Msg {
		pins, err := src.Pinned(ctx)
		return pinsLoadedMsg{pins: pins, err: err}
	}
}

func (m *Model) openReader() {
	items := m.pane.ctl.Items()
	for i, it := range items {
		if it.Path == m.pane.selected {
			m.readerModal.Open(items, i)
			return
		}
	}
}

// yank copies the selected item's cursor or path
func (m *Model) yank(target string) tea.Cmd {
	it, ok := m.pane.Selected()
	if !ok {
		return m.setStatus("Nothing selected")
	}
	if target == "path" {
		return m.copy(it.Path, "Path")
	}
	return m.copy(it.Cursor(), "Cursor")
}

func (m *Model) copy(text, label string) tea.Cmd {
	if err := CopyToClipboard(text); err != nil {
		m.log.Warn().Err(err).Msg("clipboard copy failed")
		return m.setStatus(fmt.Sprintf("✗ Failed to copy %s", strings.ToLower(label)))
	}
	return m.setStatus(fmt.Sprintf("✓ %s copied to clipboard", label))
}

// switchTheme cycles themes, or switches to the named one
func (m *Model) switchTheme(name string) tea.Cmd {
	next := NextTheme(m.theme)
	if name != "" {
		t, ok := ThemeByName(name)
		if !ok {
			return m.commandMode.SetError(fmt.Sprintf("theme: unknown theme '%s'", name))
		}
		next = t
	}
	m.setTheme(next)
	return tea.Batch(m.setStatus("Theme: "+next.Name), m.sync())
}

func (m *Model) setTheme(t StyleTheme) {
	m.theme = t
	m.pane.SetTheme(t)
	m.pinsModal.SetTheme(t)
	m.helpModal.SetTheme(t)
	m.readerModal.SetTheme(t)
	m.commandMode.SetTheme(t)
}

func (m *Model) setStatus(s string) tea.Cmd {
	m.statusMessage = s
	return clearStatusAfterDelay(3 * time.Second)
}

// View renders the current model state
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	base := m.renderMain()

	switch {
	case m.pinsModal.IsVisible():
		return m.pinsModal.ViewWithOverlay(base, m.width, m.height)
	case m.readerModal.IsVisible():
		return m.readerModal.ViewWithOverlay(base, m.width, m.height)
	case m.helpModal.IsVisible():
		return m.helpModal.ViewWithOverlay(base, m.width, m.height)
	}
	return base
}

// renderMain renders the header, the feed and the status or command line
func (m Model) renderMain() string {
	theme := m.theme

	title := " INBOX"
	if m.label != "" {
		title += "  " + m.label
	}
	right := m.pane.stateString()
	switch m.pane.ctl.State() {
	case feed.StateInitialLoading, feed.StateNavigating, feed.StateLoadingEdge:
		right = m.spinner.View() + " " + right
	}
	right = fmt.Sprintf("%s  ◆ %s ", right, time.Now().Format("15:04"))
	spacing := max(m.width-lipgloss.Width(title)-lipgloss.Width(right), 2)
	header := RenderWithGradientBackground(title+strings.Repeat(" ", spacing)+right, m.width, string(theme.Cyan), string(theme.VibrantPurple))

	body := lipgloss.NewStyle().
		Width(m.width).
		Height(m.pane.vp.Height).
		MaxHeight(m.pane.vp.Height).
		Render(m.pane.View())

	var bottom string
	if m.commandMode.IsActive() {
		bottom = m.commandMode.View()
	} else {
		statusStyle := lipgloss.NewStyle().
			Background(theme.DarkGray).
			Foreground(theme.Gray).
			Width(m.width).
			Padding(0, 1)
		statusText := truncate(helpLine(keys.shortHelp()), max(m.width-2, 0))
		switch {
		case strings.HasPrefix(m.statusMessage, "✓"):
			statusText = theme.SuccessStyle().Bold(true).Render(m.statusMessage)
		case strings.HasPrefix(m.statusMessage, "✗"):
			statusText = theme.ErrorStyle().Render(m.statusMessage)
		case m.statusMessage != "":
			statusText = lipgloss.NewStyle().Foreground(theme.Cyan).Bold(true).Render(m.statusMessage)
		}
		bottom = statusStyle.Render(statusText)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, bottom)
}

// helpLine formats bindings as "key:desc" pairs
func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+":"+h.Desc)
	}
	return strings.Join(parts, "  ")
}

// waitForEvent returns a command that delivers the next live event
func waitForEvent(events <-chan api.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		return liveEventMsg{event: ev, ok: ok}
	}
}

// pollCmd returns a command that triggers a local refresh after interval
func pollCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

// statusCmd sets the status line from a command
func statusCmd(s string) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: s}
	}
}

// clearStatusAfterDelay returns a command that clears the status message after a delay
func clearStatusAfterDelay(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
