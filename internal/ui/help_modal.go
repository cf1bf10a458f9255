package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type helpEntry struct{ key, desc string }

type helpSection struct {
	title   string
	entries []helpEntry
}

// helpSections are laid out in two columns, left to right
var helpSections = []helpSection{
	{"NAVIGATION", []helpEntry{
		{"j/↓", "Next (newer) item"}, {"g", "Oldest loaded item"},
		{"k/↑", "Previous (older) item"}, {"G", "Newest item, follow"},
		{"ctrl+d", "Half page down"}, {"ctrl+u", "Half page up"},
	}},
	{"ACTIONS", []helpEntry{
		{"Enter", "Read item"}, {"p", "Pinned items"},
		{"y", "Copy item cursor"}, {"t", "Next theme"},
		{"r", "Check for new items"}, {"R", "Reload from newest"},
	}},
	{"COMMAND MODE (:)", []helpEntry{
		{":jump <cursor>", "Go to item"}, {":pins", "Pinned items"},
		{":top", "Oldest loaded"}, {":bottom", "Newest, follow"},
		{":refresh", "Check for new"}, {":reload", "Reload from newest"},
		{":yank [path]", "Copy cursor/path"}, {":theme [name]", "Switch theme"},
		{":help", "Show this help"}, {":quit", "Exit"},
	}},
	{"PINS & READER", []helpEntry{
		{"j/k", "Move / scroll"}, {"Enter", "Jump to pin"},
		{"h/l", "Previous / next item"}, {"ESC", "Close"},
	}},
}

// HelpModal lists key bindings and commands
type HelpModal struct {
	Modal
	theme StyleTheme
}

func NewHelpModal() HelpModal {
	return HelpModal{Modal: NewModal("", 80, 30), theme: CleanCyberTheme}
}

func (m *HelpModal) SetSize(width, height int) {
	m.setSize(width, height, 0.75, 50, 20)
}

func (m *HelpModal) SetTheme(theme StyleTheme) {
	m.theme = theme
}

// Update closes the modal on esc, q or ?
func (m HelpModal) Update(msg tea.Msg) (HelpModal, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "?":
			m.Hide()
		}
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	}
	return m, nil
}

func (m HelpModal) View() string {
	if !m.visible {
		return ""
	}
	theme := m.theme
	inner := m.width - 4
	note := lipgloss.NewStyle().Foreground(theme.Gray).Italic(true)

	var b strings.Builder
	b.WriteString(m.centered(lipgloss.NewStyle().Foreground(theme.Cyan).Bold(true), "KEYBOARD SHORTCUTS"))
	b.WriteString("\n\n")
	b.WriteString(m.centered(note, "Newest items are at the bottom. Scroll up to load older ones."))
	b.WriteString("\n\n")

	rule := lipgloss.NewStyle().Foreground(theme.Cyan).Bold(true)
	for _, s := range helpSections {
		head := "── " + s.title + " "
		b.WriteString(rule.Render(head + strings.Repeat("─", max(0, inner-4-lipgloss.Width(head)))))
		b.WriteString("\n")
		for i := 0; i < len(s.entries); i += 2 {
			left := m.entry(s.entries[i])
			if i+1 == len(s.entries) {
				b.WriteString(left + "\n")
				continue
			}
			right := m.entry(s.entries[i+1])
			if m.width > 70 {
				gap := max(2, m.width/2-lipgloss.Width(left))
				b.WriteString(left + strings.Repeat(" ", gap) + right + "\n")
			} else {
				b.WriteString(left + "\n" + right + "\n")
			}
		}
		b.WriteString("\n")
	}
	b.WriteString(m.centered(note, "Press ESC or ? to close"))

	m.SetContent(b.String())
	return m.Modal.View(theme)
}

func (m HelpModal) entry(e helpEntry) string {
	key := lipgloss.NewStyle().Foreground(m.theme.Purple).Bold(true).Render(e.key)
	pad := strings.Repeat(" ", max(0, 12-lipgloss.Width(e.key)))
	return "  " + key + pad + lipgloss.NewStyle().Foreground(m.theme.White).Render(e.desc)
}

func (m HelpModal) centered(style lipgloss.Style, text string) string {
	pad := max(0, (m.width-4-lipgloss.Width(text))/2)
	return style.Render(strings.Repeat(" ", pad) + text)
}

func (m HelpModal) ViewWithOverlay(backgroundView string, width, height int) string {
	if !m.visible {
		return backgroundView
	}
	return overlay(backgroundView, m.View(), m.width+4, width, height)
}
