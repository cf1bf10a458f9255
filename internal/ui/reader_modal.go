package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nickpending/inbox/internal/feed"
)

// ReaderModal shows one item's metadata and its full text preview
type ReaderModal struct {
	Modal    // Embed base modal
	items    []feed.Item
	cursor   int
	viewport viewport.Model
	previews *previewRenderer
	theme    StyleTheme
}

// NewReaderModal creates a new ReaderModal instance
func NewReaderModal() ReaderModal {
	return ReaderModal{
		Modal:    NewModal("", 90, 30),
		viewport: viewport.New(0, 0),
		theme:    CleanCyberTheme,
		previews: newPreviewRenderer(0, CleanCyberTheme),
	}
}

// SetSize updates the modal size based on terminal dimensions
func (m *ReaderModal) SetSize(width, height int) {
	m.setSize(width, height, 0.85, 60, 15)

	// Leave room for the title, metadata block and footer
	m.viewport.Width = m.width - 4
	m.viewport.Height = max(m.height-9, 5)
	m.previews.reset(m.viewport.Width, m.theme)
	if m.visible {
		m.UpdateContent()
	}
}

// SetTheme updates the modal colors
func (m *ReaderModal) SetTheme(theme StyleTheme) {
	m.theme = theme
	m.previews.reset(m.viewport.Width, theme)
	if m.visible {
		m.UpdateContent()
	}
}

// Open shows items[cursor]; h and l step through the rest
func (m *ReaderModal) Open(items []feed.Item, cursor int) {
	m.items = items
	m.cursor = cursor
	m.Show()
	m.UpdateContent()
}

// Current returns the item being read
func (m ReaderModal) Current() (feed.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return feed.Item{}, false
	}
	return m.items[m.cursor], true
}

// Update handles input for the reader modal
func (m ReaderModal) Update(msg tea.Msg) (ReaderModal, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "enter":
			m.Hide()
		case "l", "right":
			if m.cursor < len(m.items)-1 {
				m.cursor++
				m.UpdateContent()
			}
		case "h", "left":
			if m.cursor > 0 {
				m.cursor--
				m.UpdateContent()
			}
		case "j", "down":
			m.viewport.LineDown(1)
		case "k", "up":
			m.viewport.LineUp(1)
		case "pgdown", " ":
			m.viewport.ViewDown()
		case "pgup":
			m.viewport.ViewUp()
		case "home", "g":
			m.viewport.GotoTop()
		case "end", "G":
			m.viewport.GotoBottom()
		case "y":
			if it, ok := m.Current(); ok {
				return m, func() tea.Msg {
					return copyMsg{text: it.Cursor(), label: "Cursor"}
				}
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	}
	return m, cmd
}

// UpdateContent renders the current item's preview into the viewport
func (m *ReaderModal) UpdateContent() {
	it, ok := m.Current()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	body := m.previews.Render(it)
	if body == "" {
		body = m.theme.MutedStyle().Italic(true).Render("No preview available for this item.")
	}
	m.viewport.SetContent(body)
	m.viewport.GotoTop()
}

// View renders the reader modal
func (m ReaderModal) View() string {
	if !m.visible {
		return ""
	}
	theme := m.theme
	it, ok := m.Current()
	if !ok {
		m.SetContent(theme.MutedStyle().Render("Nothing to read."))
		return m.Modal.View(theme)
	}

	var content strings.Builder

	title := lipgloss.NewStyle().Foreground(theme.White).Bold(true).Render(truncate(it.Name, m.width-24))
	position := lipgloss.NewStyle().Foreground(theme.Cyan).Bold(true).
		Render(fmt.Sprintf("ITEM %d of %d", m.cursor+1, len(m.items)))
	spacing := max(2, m.width-4-lipgloss.Width(title)-lipgloss.Width(position))
	content.WriteString(title + strings.Repeat(" ", spacing) + position)
	content.WriteString("\n")

	label := theme.MutedStyle()
	meta := []string{label.Render("path    ") + theme.TagStyle().Render(it.Path)}
	if created := it.Created(); !created.IsZero() {
		meta = append(meta, label.Render("created ")+theme.TextStyle().Render(created.Local().Format("2006-01-02 15:04:05")))
	}
	var details []string
	if it.Size != nil {
		details = append(details, formatSize(*it.Size))
	}
	if it.MimeType != nil {
		details = append(details, *it.MimeType)
	}
	if it.IsPinned {
		details = append(details, theme.PinStyle().Render("★ pinned"))
	}
	if len(details) > 0 {
		meta = append(meta, label.Render("details ")+theme.TextStyle().Render(strings.Join(details, " · ")))
	}
	content.WriteString(strings.Join(meta, "\n"))
	content.WriteString("\n\n")

	content.WriteString(m.viewport.View())
	content.WriteString("\n")
	content.WriteString(theme.MutedStyle().Italic(true).Render("h/l:prev/next  j/k:scroll  y:copy cursor  esc:close"))

	m.SetContent(content.String())
	return m.Modal.View(theme)
}

// ViewWithOverlay renders the modal over the feed
func (m ReaderModal) ViewWithOverlay(backgroundView string, width, height int) string {
	if !m.visible {
		return backgroundView
	}
	return overlay(backgroundView, m.View(), m.width+4, width, height)
}
