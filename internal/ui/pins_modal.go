package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nickpending/inbox/internal/commands"
	"github.com/nickpending/inbox/internal/feed"
)

// pinsLoadedMsg carries the result of listing pinned items
type pinsLoadedMsg struct {
	pins []feed.Pin
	err  error
}

// copyMsg asks the model to put text on the clipboard
type copyMsg struct {
	text  string
	label string // what was copied, for the status line
}

// PinsModal lists pinned items; Enter jumps to the selected one
type PinsModal struct {
	Modal
	theme   StyleTheme
	pins    []feed.Pin
	cursor  int
	loading bool
	err     error
	now     func() time.Time
}

// NewPinsModal creates a new PinsModal instance
func NewPinsModal() PinsModal {
	return PinsModal{
		Modal: NewModal("PINNED", 70, 20),
		theme: CleanCyberTheme,
		now:   time.Now,
	}
}

// SetSize updates the modal size based on terminal dimensions
func (m *PinsModal) SetSize(width, height int) {
	m.setSize(width, height, 0.6, 40, 10)
}

// SetTheme updates the modal colors
func (m *PinsModal) SetTheme(theme StyleTheme) {
	m.theme = theme
}

// Open shows the modal in its loading state
func (m *PinsModal) Open() {
	m.Show()
	m.loading = true
	m.err = nil
}

// SetPins fills the modal with a listing result
func (m *PinsModal) SetPins(pins []feed.Pin, err error) {
	m.loading = false
	m.err = err
	if err != nil {
		return
	}
	m.pins = pins
	if m.cursor >= len(pins) {
		m.cursor = max(len(pins)-1, 0)
	}
}

// Selected returns the highlighted pin
func (m PinsModal) Selected() (feed.Pin, bool) {
	if m.cursor < 0 || m.cursor >= len(m.pins) {
		return feed.Pin{}, false
	}
	return m.pins[m.cursor], true
}

// Update handles input for the pins modal
func (m PinsModal) Update(msg tea.Msg) (PinsModal, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "p":
			m.Hide()
		case "j", "down":
			if m.cursor < len(m.pins)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "enter":
			pin, ok := m.Selected()
			if !ok {
				return m, nil
			}
			m.Hide()
			return m, func() tea.Msg {
				return commands.JumpMsg{Cursor: pin.Cursor}
			}
		case "y":
			pin, ok := m.Selected()
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg {
				return copyMsg{text: pin.Cursor, label: "Cursor"}
			}
		}

	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	}
	return m, nil
}

// View renders the pin list
func (m PinsModal) View() string {
	if !m.visible {
		return ""
	}
	theme := m.theme
	var lines []string

	switch {
	case m.loading:
		lines = append(lines, theme.MutedStyle().Render("Loading pins..."))
	case m.err != nil:
		lines = append(lines, theme.ErrorStyle().Render("⚠ "+m.err.Error()))
	case len(m.pins) == 0:
		lines = append(lines, theme.MutedStyle().Italic(true).Render("Nothing pinned."))
	default:
		// Keep the cursor in the visible window of rows
		rows := max(m.height-6, 1)
		start := 0
		if m.cursor >= rows {
			start = m.cursor - rows + 1
		}
		end := min(start+rows, len(m.pins))
		for i := start; i < end; i++ {
			lines = append(lines, m.renderPin(i))
		}
	}

	lines = append(lines, "", theme.MutedStyle().Italic(true).Render("enter:jump  y:copy cursor  esc:close"))
	m.SetContent(strings.Join(lines, "\n"))
	return m.Modal.View(theme)
}

func (m PinsModal) renderPin(i int) string {
	theme := m.theme
	pin := m.pins[i]

	selector := "  "
	textStyle := theme.TextStyle()
	if i == m.cursor {
		selector = theme.SelectedStyle().Render("▸ ")
		textStyle = theme.SelectedStyle()
	}

	age := ""
	if t, err := time.Parse(time.RFC3339Nano, pin.PinnedAt); err == nil {
		ago := "just now"
		if d := formatAge(m.now().Sub(t)); d != "now" {
			ago = d + " ago"
		}
		age = theme.MutedStyle().Render(fmt.Sprintf(" pinned %s", ago))
	}
	text := truncate(pin.DisplayText, max(m.width-lipgloss.Width(age)-8, 8))
	return selector + theme.PinStyle().Render("★ ") + textStyle.Render(text) + age
}

// ViewWithOverlay renders the modal over the feed
func (m PinsModal) ViewWithOverlay(backgroundView string, width, height int) string {
	if !m.visible {
		return backgroundView
	}
	return overlay(backgroundView, m.View(), m.width+4, width, height)
}
